package config

import (
	"flag"
	"fmt"
	"io"
)

// parseFlags はコマンドライン引数で設定を上書きする。
//
// 対応する引数:
//
//	-p string   リッスンポート
//	-i string   認証プロバイダー（hosted / local）
//	-s string   投稿ストア（hosted / sqlite / postgres）
//	-db string  SQLiteデータベースファイルのパス
//	-d string   PostgreSQLの接続文字列
//	-public string  静的ページのディレクトリ
//	-secure-cookie  セッションCookieにSecure属性を付ける
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("blog", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Port, "p", cfg.Port, "listen port")
	fs.StringVar(&cfg.IdentityBackend, "i", cfg.IdentityBackend, "identity backend (hosted, local)")
	fs.StringVar(&cfg.StoreBackend, "s", cfg.StoreBackend, "post store backend (hosted, sqlite, postgres)")
	fs.StringVar(&cfg.SQLitePath, "db", cfg.SQLitePath, "sqlite database path")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "postgres DSN")
	fs.StringVar(&cfg.PublicDir, "public", cfg.PublicDir, "static page directory")
	fs.BoolVar(&cfg.CookieSecure, "secure-cookie", cfg.CookieSecure, "set Secure on the session cookie")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("コマンドライン引数の解析に失敗: %w", err)
	}
	return nil
}
