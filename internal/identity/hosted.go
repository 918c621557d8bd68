package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sudo-paras-shah/blog-test/pkg/httpclient"
)

// HostedProvider はホスト型の認証API（GoTrue互換）を呼び出す認証プロバイダー。
type HostedProvider struct {
	// client は認証APIへのHTTPクライアント。
	client *httpclient.Client
}

// NewHostedProvider は新しいHostedProviderを生成する。
// client には apikey ヘッダーを設定済みのクライアントを渡す。
func NewHostedProvider(client *httpclient.Client) *HostedProvider {
	return &HostedProvider{client: client}
}

// tokenResponse はパスワードグラントのレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	ExpiresAt   int64  `json:"expires_at"`
	User        User   `json:"user"`
}

// SignInWithPassword はパスワードグラントでアクセストークンを取得する。
// 4xxはすべて ErrInvalidCredentials として扱い、上流のメッセージは返さない。
func (p *HostedProvider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	query := url.Values{}
	query.Set("grant_type", "password")

	var resp tokenResponse
	err := p.client.PostJSON(ctx, "/auth/v1/token", query, map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		if status := httpclient.StatusCode(err); status >= 400 && status < 500 {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("認証APIの呼び出しに失敗: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	if resp.ExpiresAt > 0 {
		expiresAt = time.Unix(resp.ExpiresAt, 0)
	}

	return &Session{
		AccessToken: resp.AccessToken,
		ExpiresAt:   expiresAt,
		User:        resp.User,
	}, nil
}

// GetUser はアクセストークンを認証APIに渡してユーザーを解決する。
func (p *HostedProvider) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}

	var user User
	ctx = httpclient.WithBearerToken(ctx, accessToken)
	if err := p.client.GetJSON(ctx, "/auth/v1/user", nil, &user); err != nil {
		switch httpclient.StatusCode(err) {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		return nil, fmt.Errorf("ユーザー情報の取得に失敗: %w", err)
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}
	return &user, nil
}
