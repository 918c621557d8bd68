package store

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sudo-paras-shah/blog-test/pkg/httpclient"
)

// postsPath はデータAPIの posts テーブルのパス。
const postsPath = "/rest/v1/posts"

// HostedStore はホスト型のデータAPI（PostgREST互換）に投稿を保存するストア。
type HostedStore struct {
	// client はデータAPIへのHTTPクライアント。
	client *httpclient.Client
}

// NewHostedStore は新しいHostedStoreを生成する。
// client には apikey と匿名キーのAuthorizationを設定済みのクライアントを渡す。
func NewHostedStore(client *httpclient.Client) *HostedStore {
	return &HostedStore{client: client}
}

// eq はPostgRESTの等価フィルター値を返す。
func eq(v string) string {
	return "eq." + v
}

// returnRepresentation は変更後の行をレスポンスで返させるヘッダー。
func returnRepresentation() http.Header {
	h := http.Header{}
	h.Set("Prefer", "return=representation")
	return h
}

// List は投稿を作成日時の降順で返す。
func (s *HostedStore) List(ctx context.Context, opts ListOptions) ([]Post, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "created_at.desc")
	if opts.UserID != "" {
		query.Set("user_id", eq(opts.UserID))
	}

	posts := []Post{}
	if err := s.client.GetJSON(ctx, postsPath, query, &posts); err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗: %w", err)
	}
	return posts, nil
}

// Get は投稿を1件返す。
func (s *HostedStore) Get(ctx context.Context, id string) (*Post, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("id", eq(id))

	var posts []Post
	if err := s.client.GetJSON(ctx, postsPath, query, &posts); err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗: %w", err)
	}
	if len(posts) == 0 {
		return nil, ErrNotFound
	}
	return &posts[0], nil
}

// Create は投稿を作成する。
// コンテキストに呼び出し元のトークンがあれば、そのユーザーとして挿入する。
func (s *HostedStore) Create(ctx context.Context, in NewPost) (*Post, error) {
	query := url.Values{}
	query.Set("select", "*")

	var created []Post
	err := s.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   postsPath,
		Query:  query,
		Header: returnRepresentation(),
		Body:   in,
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("投稿の作成に失敗: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("投稿の作成に失敗: データAPIが作成した行を返しませんでした")
	}
	return &created[0], nil
}

// Update はIDと所有者IDの両方に一致する投稿を更新する。
func (s *HostedStore) Update(ctx context.Context, id, ownerID string, changes Changes) (int64, error) {
	var updated []Post
	err := s.client.Do(ctx, httpclient.Request{
		Method: http.MethodPatch,
		Path:   postsPath,
		Query:  ownedRowQuery(id, ownerID),
		Header: returnRepresentation(),
		Body:   changes,
	}, &updated)
	if err != nil {
		return 0, fmt.Errorf("投稿の更新に失敗: %w", err)
	}
	return int64(len(updated)), nil
}

// Delete はIDと所有者IDの両方に一致する投稿を削除する。
func (s *HostedStore) Delete(ctx context.Context, id, ownerID string) (int64, error) {
	var deleted []Post
	err := s.client.Do(ctx, httpclient.Request{
		Method: http.MethodDelete,
		Path:   postsPath,
		Query:  ownedRowQuery(id, ownerID),
		Header: returnRepresentation(),
	}, &deleted)
	if err != nil {
		return 0, fmt.Errorf("投稿の削除に失敗: %w", err)
	}
	return int64(len(deleted)), nil
}

// ownedRowQuery はIDと所有者IDで1行に絞り込むクエリを返す。
func ownedRowQuery(id, ownerID string) url.Values {
	query := url.Values{}
	query.Set("id", eq(id))
	query.Set("user_id", eq(ownerID))
	return query
}
