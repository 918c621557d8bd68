package blog

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/sudo-paras-shah/blog-test/internal/config"
	"github.com/sudo-paras-shah/blog-test/internal/identity"
	"github.com/sudo-paras-shah/blog-test/internal/store"
	"github.com/sudo-paras-shah/blog-test/pkg/httpclient"
)

// backends は起動時に一度だけ構築し、全リクエストで共有するバックエンド。
type backends struct {
	posts    store.Store
	identity identity.Provider
	closers  []io.Closer
}

// newHostedClient はホスト型バックエンド向けのHTTPクライアントを生成する。
// 呼び出し元のトークンがない要求は匿名キーで送信される。
func newHostedClient(cfg *config.Config) *httpclient.Client {
	return httpclient.New(cfg.HostedURL,
		httpclient.WithTimeout(cfg.UpstreamTimeout),
		httpclient.WithHeader("apikey", cfg.HostedAnonKey),
		httpclient.WithHeader("Authorization", "Bearer "+cfg.HostedAnonKey),
	)
}

// openBackends は設定に従って投稿ストアと認証プロバイダーを構築する。
func openBackends(ctx context.Context, cfg *config.Config) (_ *backends, err error) {
	b := &backends{}
	defer func() {
		// 途中で失敗した場合は開いた接続を閉じる
		if err != nil {
			for _, c := range b.closers {
				_ = c.Close()
			}
		}
	}()

	var hosted *httpclient.Client
	if cfg.IdentityBackend == config.BackendHosted || cfg.StoreBackend == config.BackendHosted {
		hosted = newHostedClient(cfg)
	}

	var sqliteDB *sql.DB
	if cfg.UsesSQLite() {
		sqliteDB, err = store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, sqliteDB)
	}

	switch cfg.IdentityBackend {
	case config.BackendHosted:
		b.identity = identity.NewHostedProvider(hosted)
	case config.BackendLocal:
		b.identity, err = identity.NewLocalProvider(sqliteDB, cfg.JWTSecret, cfg.AccessTokenTTL)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("未対応の認証バックエンドです: %q", cfg.IdentityBackend)
	}

	switch cfg.StoreBackend {
	case config.BackendHosted:
		b.posts = store.NewHostedStore(hosted)
	case config.BackendSQLite:
		b.posts, err = store.NewSQLiteStore(sqliteDB)
		if err != nil {
			return nil, err
		}
	case config.BackendPostgres:
		db, err := store.OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db)
		if err := store.MigratePostgres(ctx, db); err != nil {
			return nil, err
		}
		b.posts = store.NewPostgresStore(db)
	default:
		return nil, fmt.Errorf("未対応の投稿ストアです: %q", cfg.StoreBackend)
	}

	return b, nil
}
