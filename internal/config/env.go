package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// dotEnvFile は起動時に読み込む .env ファイルのパス。
const dotEnvFile = ".env"

// loadDotEnv はカレントディレクトリの .env を環境変数に読み込む。
// ファイルが無い場合は何もしない。既存の環境変数は上書きしない。
func loadDotEnv() error {
	if err := godotenv.Load(dotEnvFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf(".env の読み込みに失敗: %w", err)
	}
	return nil
}

// parseEnv は環境変数で設定を上書きする。
func parseEnv(cfg *Config) error {
	cfg.Port = getEnvOr("PORT", cfg.Port)
	cfg.HostedURL = strings.TrimRight(getEnvOr("SUPABASE_URL", cfg.HostedURL), "/")
	cfg.HostedAnonKey = getEnvOr("SUPABASE_ANON_KEY", cfg.HostedAnonKey)
	cfg.IdentityBackend = getEnvOr("IDENTITY_BACKEND", cfg.IdentityBackend)
	cfg.StoreBackend = getEnvOr("STORE_BACKEND", cfg.StoreBackend)
	cfg.SQLitePath = getEnvOr("SQLITE_PATH", cfg.SQLitePath)
	cfg.DatabaseDSN = getEnvOr("DATABASE_DSN", cfg.DatabaseDSN)
	cfg.JWTSecret = getEnvOr("JWT_SECRET", cfg.JWTSecret)
	cfg.PublicDir = getEnvOr("PUBLIC_DIR", cfg.PublicDir)
	cfg.LoginRedirect = getEnvOr("LOGIN_REDIRECT", cfg.LoginRedirect)

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	var err error
	if cfg.AccessTokenTTL, err = getEnvDuration("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return err
	}
	if cfg.UpstreamTimeout, err = getEnvDuration("UPSTREAM_TIMEOUT", cfg.UpstreamTimeout); err != nil {
		return err
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COOKIE_SECURE が不正です: %w", err)
		}
		cfg.CookieSecure = b
	}
	return nil
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// getEnvDuration は "30s" 形式の環境変数を time.Duration として取得する。
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s が不正です: %w", key, err)
	}
	return d, nil
}

// splitList はカンマ区切りの文字列を空要素を除いて分割する。
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
