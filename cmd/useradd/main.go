// ローカル認証バックエンドにユーザーを追加するコマンド。
// IDENTITY_BACKEND=local で運用する場合に、ログイン可能なアカウントを作成する。
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/sudo-paras-shah/blog-test/internal/identity"
	"github.com/sudo-paras-shah/blog-test/internal/store"
)

func main() {
	// .env がなくても続行する
	_ = godotenv.Load()

	defaultDB := os.Getenv("SQLITE_PATH")
	if defaultDB == "" {
		defaultDB = "data/blog.db"
	}

	email := flag.String("email", "", "作成するユーザーのメールアドレス")
	password := flag.String("password", "", "作成するユーザーのパスワード")
	dbPath := flag.String("db", defaultDB, "SQLiteデータベースファイルのパス")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	db, err := store.OpenSQLite(*dbPath)
	if err != nil {
		log.Fatalf("データベース接続に失敗: %v", err)
	}
	defer db.Close()

	// トークンは発行しないため、秘密鍵と有効期間はスキーマ作成のためだけに渡す
	provider, err := identity.NewLocalProvider(db, "useradd", time.Hour)
	if err != nil {
		log.Fatalf("ユーザーテーブルの初期化に失敗: %v", err)
	}

	user, err := provider.CreateUser(context.Background(), *email, *password)
	if errors.Is(err, identity.ErrUserExists) {
		log.Fatalf("既に登録されているメールアドレスです: %s", *email)
	}
	if err != nil {
		log.Fatalf("ユーザーの作成に失敗: %v", err)
	}
	log.Printf("ユーザーを作成しました: id=%s email=%s", user.ID, user.Email)
}
