package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// OpenPostgres はpgxドライバーでPostgreSQLに接続し、疎通を確認する。
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("データベースに接続できません: %w", err)
	}
	return db, nil
}

// gooseUp はテストで差し替えられるようにした goose.UpContext。
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// MigratePostgres は埋め込みのマイグレーションをgooseで適用する。
func MigratePostgres(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(postgresMigrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("マイグレーションの方言設定に失敗: %w", err)
	}
	if err := gooseUp(ctx, db, "migrations/postgres"); err != nil {
		return fmt.Errorf("マイグレーションの適用に失敗: %w", err)
	}
	return nil
}

// NewPostgresStore はPostgreSQLに投稿を保存するストアを生成する。
// スキーマは MigratePostgres で事前に作成しておく。
func NewPostgresStore(db *sql.DB) *SQLStore {
	return newSQLStore(db, dialectPostgres)
}
