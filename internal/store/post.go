// Package store は投稿（posts）の永続化を提供する。
//
// ホスト型のデータAPIを呼び出す HostedStore と、
// SQLite / PostgreSQL に直接保存する SQLStore がある。
// 更新と削除は常に投稿IDと所有者IDの両方で絞り込む。
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sudo-paras-shah/blog-test/pkg/httpclient"
)

// ErrNotFound は指定した投稿が存在しないことを表す。
var ErrNotFound = errors.New("投稿が見つかりません")

// ID は投稿の識別子。ストアが採番し、アプリケーションからは不透明な文字列として扱う。
// データAPIが数値IDを返す場合も文字列として保持する。
type ID string

// UnmarshalJSON は文字列と数値の両方のIDを受け付ける。
func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("IDの形式が不正です: %s", data)
	}
	*id = ID(n.String())
	return nil
}

// Post はブログの投稿。
type Post struct {
	// ID は投稿の一意識別子。
	ID ID `json:"id"`
	// Title はタイトル。
	Title string `json:"title"`
	// Content は本文。
	Content string `json:"content"`
	// UserID は投稿を作成したユーザーのID。
	UserID string `json:"user_id"`
	// CreatedAt は作成日時。一覧はこの降順で返す。
	CreatedAt time.Time `json:"created_at"`

	// numericID はデータAPIがIDを数値で返したかどうか。クライアントにも数値のまま返す。
	numericID bool
}

// postFields はメソッドを持たないPostの別名。JSON変換の再帰を避ける。
type postFields Post

// UnmarshalJSON はIDが数値で渡されたかどうかを記録して読み取る。
func (p *Post) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var fields postFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*p = Post(fields)

	id := bytes.TrimSpace(raw.ID)
	p.numericID = len(id) > 0 && id[0] != '"' && !bytes.Equal(id, []byte("null"))
	return nil
}

// MarshalJSON は数値で受け取ったIDを数値のまま書き出す。
func (p Post) MarshalJSON() ([]byte, error) {
	if !p.numericID {
		return json.Marshal(postFields(p))
	}
	return json.Marshal(struct {
		ID json.Number `json:"id"`
		postFields
	}{ID: json.Number(p.ID), postFields: postFields(p)})
}

// NewPost は投稿作成時の入力。
type NewPost struct {
	// Title はタイトル。
	Title string `json:"title"`
	// Content は本文。
	Content string `json:"content"`
	// UserID は所有者となるユーザーのID。認証ゲートが解決した値を設定する。
	UserID string `json:"user_id"`
}

// Changes は投稿更新時の変更内容。nilのフィールドは変更しない。
type Changes struct {
	// Title は新しいタイトル。
	Title *string `json:"title,omitempty"`
	// Content は新しい本文。
	Content *string `json:"content,omitempty"`
}

// Empty は変更内容が空かどうかを返す。
func (c Changes) Empty() bool {
	return c.Title == nil && c.Content == nil
}

// ListOptions は一覧取得の絞り込み条件。
type ListOptions struct {
	// UserID が空でない場合、そのユーザーの投稿のみを返す。
	UserID string
}

// Store は投稿ストアのインターフェース。
type Store interface {
	// List は投稿を作成日時の降順で返す。
	List(ctx context.Context, opts ListOptions) ([]Post, error)
	// Get は投稿を1件返す。存在しない場合は ErrNotFound を返す。
	Get(ctx context.Context, id string) (*Post, error)
	// Create は投稿を作成し、採番後の投稿を返す。
	Create(ctx context.Context, in NewPost) (*Post, error)
	// Update はIDと所有者IDの両方に一致する投稿を更新し、更新件数を返す。
	Update(ctx context.Context, id, ownerID string, changes Changes) (int64, error)
	// Delete はIDと所有者IDの両方に一致する投稿を削除し、削除件数を返す。
	Delete(ctx context.Context, id, ownerID string) (int64, error)
}

// WithAccessToken は呼び出し元のアクセストークンをコンテキストに設定する。
// ホスト型ストアはこのトークンでデータAPIを呼び出し、行レベルの認可を適用させる。
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return httpclient.WithBearerToken(ctx, token)
}

// Message はストアのエラーからクライアントに返すメッセージを取り出す。
// データAPIのエラーはそのメッセージを、それ以外は最も内側のエラーの文言を返す。
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *httpclient.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return err.Error()
		}
		err = inner
	}
}
