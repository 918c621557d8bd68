// Package identity は認証プロバイダーを提供する。
//
// パスワードによるサインインと、アクセストークンからのユーザー解決の2操作のみを扱う。
// ホスト型の認証APIを呼び出す HostedProvider と、
// SQLiteのユーザーテーブルとJWTで完結する LocalProvider がある。
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials はメールアドレスまたはパスワードが正しくないことを表す。
	ErrInvalidCredentials = errors.New("メールアドレスまたはパスワードが正しくありません")
	// ErrInvalidToken はアクセストークンが無効または期限切れであることを表す。
	ErrInvalidToken = errors.New("アクセストークンが無効です")
	// ErrUserExists は同じメールアドレスのユーザーが既に存在することを表す。
	ErrUserExists = errors.New("ユーザーは既に存在します")
)

// User は認証プロバイダーが管理するユーザー。
type User struct {
	// ID はユーザーの一意識別子。
	ID string `json:"id"`
	// Email はメールアドレス。
	Email string `json:"email"`
}

// Session はサインインで発行されたセッション。
type Session struct {
	// AccessToken はAPI呼び出しに使うアクセストークン。
	AccessToken string `json:"access_token"`
	// ExpiresAt はアクセストークンの有効期限。
	ExpiresAt time.Time `json:"expires_at"`
	// User はサインインしたユーザー。
	User User `json:"user"`
}

// Provider は認証プロバイダーのインターフェース。
type Provider interface {
	// SignInWithPassword はメールアドレスとパスワードでサインインする。
	// 認証に失敗した場合は ErrInvalidCredentials を返す。
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	// GetUser はアクセストークンからユーザーを解決する。
	// トークンが無効な場合は ErrInvalidToken を返す。
	GetUser(ctx context.Context, accessToken string) (*User, error)
}
