package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookieName はアクセストークンを保持するCookieの名前。
const SessionCookieName = "auth_token"

// SessionMaxAge はセッションCookieの有効期間。
const SessionMaxAge = 30 * 24 * time.Hour

// messageAuthRequired は認証ゲートが拒否したときの固定メッセージ。
const messageAuthRequired = "Authentication required."

// コンテキストキー。ハンドラーは Get* 関数経由で参照する。
const (
	contextKeyUserID      = "user_id"
	contextKeyEmail       = "email"
	contextKeyAccessToken = "access_token"
)

var (
	// ErrNoCredential はリクエストに認証情報が含まれていないことを表す。
	ErrNoCredential = errors.New("認証情報がありません")
	// ErrInvalidCredential は認証情報からユーザーを解決できなかったことを表す。
	ErrInvalidCredential = errors.New("認証情報が無効です")
)

// Identity は認証ゲートが解決した認証済みユーザー。
type Identity struct {
	// UserID はユーザーの一意識別子。
	UserID string
	// Email はユーザーのメールアドレス（表示用）。
	Email string
}

// ResolveFunc はアクセストークンからユーザーを解決する関数。
// 外部の認証プロバイダーへの問い合わせを想定する。
type ResolveFunc func(ctx context.Context, token string) (*Identity, error)

// CookieConfig はセッションCookieの属性。
type CookieConfig struct {
	// Name はCookie名。
	Name string
	// Path はCookieのパス。
	Path string
	// MaxAge は有効期間。
	MaxAge time.Duration
	// Secure はHTTPS接続のみで送信するかどうか。
	Secure bool
	// SameSite はSameSite属性。
	SameSite http.SameSite
}

// DefaultCookieConfig はデフォルトのCookie属性を返す。
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     SessionCookieName,
		Path:     "/",
		MaxAge:   SessionMaxAge,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	}
}

// Authenticate は生のアクセストークンからユーザーを解決する。
// トークンが空の場合はプロバイダーに問い合わせずに ErrNoCredential を返す。
// プロバイダーがエラーを返すかユーザーを返さない場合は ErrInvalidCredential を返す。
func Authenticate(ctx context.Context, resolve ResolveFunc, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNoCredential
	}

	identity, err := resolve(ctx, token)
	if err != nil {
		return nil, errors.Join(ErrInvalidCredential, err)
	}
	if identity == nil || identity.UserID == "" {
		return nil, ErrInvalidCredential
	}
	return identity, nil
}

// ExtractTokens はリクエストからCookieと Authorization: Bearer ヘッダーのトークンを取り出す。
// どちらも無い場合は空文字列を返す。
func ExtractTokens(c *gin.Context, cookie CookieConfig) (fromCookie, fromHeader string) {
	if v, err := c.Cookie(cookie.Name); err == nil {
		fromCookie = v
	}
	if bearer, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); found {
		fromHeader = strings.TrimSpace(bearer)
	}
	return fromCookie, fromHeader
}

// resolveRequest はCookie、Bearerヘッダーの順にトークンを検証する。
// Cookieの解決に失敗してもヘッダーが有効なら認証済みとし、staleCookie で古いCookieを報告する。
func resolveRequest(c *gin.Context, resolve ResolveFunc, cookie CookieConfig) (identity *Identity, token string, staleCookie bool, err error) {
	fromCookie, fromHeader := ExtractTokens(c, cookie)
	ctx := c.Request.Context()

	err = ErrNoCredential
	if fromCookie != "" {
		if identity, err = Authenticate(ctx, resolve, fromCookie); err == nil {
			return identity, fromCookie, false, nil
		}
		staleCookie = true
	}
	if fromHeader != "" {
		if identity, err = Authenticate(ctx, resolve, fromHeader); err == nil {
			return identity, fromHeader, staleCookie, nil
		}
	}
	return nil, "", staleCookie, err
}

// SessionAuth は認証ゲートとして動作するGinミドルウェアを返す。
// 解決に成功した場合、コンテキストに "user_id"、"email"、"access_token" を設定する。
// 失敗した場合は401を返す。無効なCookieが残っていれば削除する。
func SessionAuth(resolve ResolveFunc, cookie CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, token, staleCookie, err := resolveRequest(c, resolve, cookie)
		if staleCookie {
			ClearSessionCookie(c, cookie)
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": messageAuthRequired,
			})
			return
		}

		setIdentity(c, identity, token)
		c.Next()
	}
}

// SessionStatus はログイン状態を判定するGinミドルウェアを返す。
// SessionAuth と同じ解決を行うが、失敗してもリクエストを拒否しない。
// 結果は GetIdentity で参照する。
func SessionStatus(resolve ResolveFunc, cookie CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, token, _, err := resolveRequest(c, resolve, cookie); err == nil {
			setIdentity(c, identity, token)
		}
		c.Next()
	}
}

// SetSessionCookie はアクセストークンをセッションCookieとして設定する。
func SetSessionCookie(c *gin.Context, cookie CookieConfig, token string) {
	c.SetSameSite(cookie.SameSite)
	c.SetCookie(cookie.Name, token, int(cookie.MaxAge.Seconds()), cookie.Path, "", cookie.Secure, true)
}

// ClearSessionCookie はセッションCookieを削除する。
func ClearSessionCookie(c *gin.Context, cookie CookieConfig) {
	c.SetSameSite(cookie.SameSite)
	c.SetCookie(cookie.Name, "", -1, cookie.Path, "", cookie.Secure, true)
}

// setIdentity は解決したユーザーとトークンをコンテキストに設定する。
func setIdentity(c *gin.Context, identity *Identity, token string) {
	c.Set(contextKeyUserID, identity.UserID)
	c.Set(contextKeyEmail, identity.Email)
	c.Set(contextKeyAccessToken, token)
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// SessionAuth または SessionStatus が事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	return c.GetString(contextKeyUserID)
}

// GetEmail はGinコンテキストからメールアドレスを取得する。
func GetEmail(c *gin.Context) string {
	return c.GetString(contextKeyEmail)
}

// GetAccessToken はGinコンテキストから呼び出し元のアクセストークンを取得する。
func GetAccessToken(c *gin.Context) string {
	return c.GetString(contextKeyAccessToken)
}

// GetIdentity はGinコンテキストから解決済みのユーザーを取得する。
func GetIdentity(c *gin.Context) (*Identity, bool) {
	userID := GetUserID(c)
	if userID == "" {
		return nil, false
	}
	return &Identity{UserID: userID, Email: GetEmail(c)}, true
}
