package store

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/sudo-paras-shah/blog-test/pkg/migration"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// OpenSQLite はSQLiteデータベースを開く。親ディレクトリがなければ作成する。
func OpenSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("データディレクトリの作成に失敗: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// SQLiteは書き込みを直列化する必要があるため接続を1本に絞る
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewSQLiteStore はSQLiteに投稿を保存するストアを生成し、マイグレーションを適用する。
func NewSQLiteStore(db *sql.DB) (*SQLStore, error) {
	if err := migration.Run(db, sqliteMigrations, "migrations/sqlite", "posts"); err != nil {
		return nil, fmt.Errorf("投稿テーブルの初期化に失敗: %w", err)
	}
	return newSQLStore(db, dialectSQLite), nil
}
