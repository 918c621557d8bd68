// ブログサービスのエントリポイント。
// 投稿のCRUD APIとCookieベースのセッション認証を提供する。
// 設定はデフォルト値、.env、環境変数、コマンドライン引数の順に読み込む。
package main

import (
	"context"
	"log"
	"os"

	"github.com/sudo-paras-shah/blog-test/internal/blog"
	"github.com/sudo-paras-shah/blog-test/internal/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	server, err := blog.NewServer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("ブログサーバーの初期化に失敗: %v", err)
	}
	defer server.Close()

	log.Printf("ブログサービスを起動します: :%s (identity=%s, store=%s)", cfg.Port, cfg.IdentityBackend, cfg.StoreBackend)
	if err := server.Run(); err != nil {
		log.Fatalf("ブログサービスの起動に失敗: %v", err)
	}
}
