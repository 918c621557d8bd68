package blog

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sudo-paras-shah/blog-test/internal/identity"
	"github.com/sudo-paras-shah/blog-test/pkg/middleware"
)

// messageInvalidCredentials はログイン失敗時の固定メッセージ。
// 認証プロバイダーのエラー詳細は返さない。
const messageInvalidCredentials = "Invalid credentials"

// loginRequest はログインリクエストの構造。JSONとフォームの両方を受け付ける。
type loginRequest struct {
	// Email はメールアドレス。
	Email string `json:"email" form:"email" binding:"required,email"`
	// Password はパスワード。
	Password string `json:"password" form:"password" binding:"required"`
}

// handleLogin はログインを処理するハンドラを返す。
// 成功するとアクセストークンをCookieに設定してリダイレクトする。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBind(&req); err != nil {
			invalidBody(c, err)
			return
		}

		session, err := s.identity.SignInWithPassword(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if !errors.Is(err, identity.ErrInvalidCredentials) {
				log.Printf("[Auth] サインインエラー: %v", err)
			}
			c.JSON(http.StatusUnauthorized, gin.H{"message": messageInvalidCredentials})
			return
		}

		middleware.SetSessionCookie(c, s.cookie, session.AccessToken)
		c.Redirect(http.StatusFound, s.cfg.LoginRedirect)
	}
}

// handleLogout はログアウトを処理するハンドラを返す。
// 認証プロバイダーには問い合わせず、Cookieを削除するだけ。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.ClearSessionCookie(c, s.cookie)
		c.Redirect(http.StatusFound, s.cfg.LoginRedirect)
	}
}

// handleAuthStatus はログイン状態を返すハンドラを返す。
func (s *Server) handleAuthStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"isLoggedIn": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"isLoggedIn": true, "email": id.Email})
	}
}
