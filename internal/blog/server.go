package blog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sudo-paras-shah/blog-test/internal/config"
	"github.com/sudo-paras-shah/blog-test/internal/identity"
	"github.com/sudo-paras-shah/blog-test/internal/store"
	"github.com/sudo-paras-shah/blog-test/pkg/middleware"
)

// Server はブログサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg は起動時に構築した設定。
	cfg *config.Config
	// posts は投稿ストア。
	posts store.Store
	// identity は認証プロバイダー。
	identity identity.Provider
	// cookie はセッションCookieの属性。
	cookie middleware.CookieConfig
	// closers はClose時に解放するリソース。
	closers []io.Closer
}

// NewServer は設定に従ってバックエンドを初期化し、新しいブログサーバーを生成する。
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("バックエンドの初期化に失敗: %w", err)
	}
	s := newServer(cfg, b.posts, b.identity)
	s.closers = b.closers
	return s, nil
}

// newServer は投稿ストアと認証プロバイダーを受け取ってサーバーを組み立てる。
func newServer(cfg *config.Config, posts store.Store, provider identity.Provider) *Server {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	cookie := middleware.DefaultCookieConfig()
	cookie.Secure = cfg.CookieSecure

	s := &Server{
		router:   router,
		cfg:      cfg,
		posts:    posts,
		identity: provider,
		cookie:   cookie,
	}
	s.setupRoutes()
	return s
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.cfg.Port))
}

// Handler はルーティング済みのHTTPハンドラーを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close はデータベース接続などのリソースを解放する。
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// resolver は認証プロバイダーのトークン検証をセッションゲート用の関数に変換する。
func resolver(p identity.Provider) middleware.ResolveFunc {
	return func(ctx context.Context, token string) (*middleware.Identity, error) {
		user, err := p.GetUser(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.Identity{UserID: user.ID, Email: user.Email}, nil
	}
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	resolve := resolver(s.identity)
	requireSession := middleware.SessionAuth(resolve, s.cookie)

	api := s.router.Group("/api")
	{
		// 認証不要
		api.GET("/posts", s.handleList())
		api.GET("/posts/:id", s.handleGet())
		api.POST("/login", s.handleLogin())
		api.GET("/logout", s.handleLogout())
		api.POST("/logout", s.handleLogout())
		api.GET("/auth/status", middleware.SessionStatus(resolve, s.cookie), s.handleAuthStatus())
	}

	// 認証必須
	posts := s.router.Group("/api/posts")
	posts.Use(requireSession)
	{
		posts.GET("/me", s.handleListMine())
		posts.POST("", s.handleCreate())
		posts.PATCH("/:id", s.handleUpdate())
		posts.DELETE("/:id", s.handleDelete())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "blog"})
	})

	s.setupPages()
}
