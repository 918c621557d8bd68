package blog

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sudo-paras-shah/blog-test/internal/store"
	"github.com/sudo-paras-shah/blog-test/pkg/middleware"
)

// APIレスポンスのメッセージ。
const (
	messagePostUpdated = "Post updated successfully"
	messagePostDeleted = "Post deleted successfully"
	messagePostMissing = "Post not found."
)

// createPostRequest は投稿作成リクエストの構造。
// 所有者はセッションから決まるため、本文に user_id があっても受け付けない。
type createPostRequest struct {
	// Title はタイトル。
	Title string `json:"title" form:"title" binding:"required,max=200"`
	// Content は本文。
	Content string `json:"content" form:"content" binding:"required"`
}

// updatePostRequest は投稿更新リクエストの構造。指定したフィールドのみ更新する。
type updatePostRequest struct {
	// Title は新しいタイトル。
	Title *string `json:"title" form:"title" binding:"omitempty,max=200"`
	// Content は新しい本文。
	Content *string `json:"content" form:"content"`
}

// changes はリクエストをストアの変更内容に変換する。
func (r updatePostRequest) changes() (store.Changes, error) {
	if r.Title == nil && r.Content == nil {
		return store.Changes{}, errors.New("title or content is required")
	}
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return store.Changes{}, errors.New("title must not be empty")
	}
	return store.Changes{Title: r.Title, Content: r.Content}, nil
}

// badRequest は入力検証エラーを400で返す。
func badRequest(c *gin.Context, reason string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request: " + reason})
}

// invalidBody はリクエスト本文のバインドエラーを400で返す。
func invalidBody(c *gin.Context, err error) {
	badRequest(c, describeBindError(err))
}

// storeError はストアのエラーを500で返す。メッセージはストアのものをそのまま返す。
func storeError(c *gin.Context, op string, err error) {
	log.Printf("[Blog] %s: %v", op, err)
	c.JSON(http.StatusInternalServerError, gin.H{"message": store.Message(err)})
}

// handleList は全投稿の一覧を処理するハンドラを返す。
// 認証状態に関わらず同じ結果を返すため、呼び出し元のトークンは使わない。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		posts, err := s.posts.List(c.Request.Context(), store.ListOptions{})
		if err != nil {
			storeError(c, "投稿一覧取得エラー", err)
			return
		}
		c.JSON(http.StatusOK, posts)
	}
}

// handleListMine はログイン中のユーザーの投稿一覧を処理するハンドラを返す。
func (s *Server) handleListMine() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := store.WithAccessToken(c.Request.Context(), middleware.GetAccessToken(c))
		posts, err := s.posts.List(ctx, store.ListOptions{UserID: middleware.GetUserID(c)})
		if err != nil {
			storeError(c, "自分の投稿一覧取得エラー", err)
			return
		}
		c.JSON(http.StatusOK, posts)
	}
}

// handleGet は投稿1件の取得を処理するハンドラを返す。
func (s *Server) handleGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := s.posts.Get(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": messagePostMissing})
			return
		}
		if err != nil {
			storeError(c, "投稿取得エラー", err)
			return
		}
		c.JSON(http.StatusOK, post)
	}
}

// handleCreate は投稿作成を処理するハンドラを返す。
// 所有者は常にセッションゲートが解決したユーザーになる。
func (s *Server) handleCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createPostRequest
		if err := c.ShouldBind(&req); err != nil {
			invalidBody(c, err)
			return
		}

		ctx := store.WithAccessToken(c.Request.Context(), middleware.GetAccessToken(c))
		post, err := s.posts.Create(ctx, store.NewPost{
			Title:   req.Title,
			Content: req.Content,
			UserID:  middleware.GetUserID(c),
		})
		if err != nil {
			storeError(c, "投稿作成エラー", err)
			return
		}
		c.JSON(http.StatusCreated, post)
	}
}

// handleUpdate は投稿更新を処理するハンドラを返す。
// 他人の投稿と存在しない投稿は区別せず404を返す。
func (s *Server) handleUpdate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updatePostRequest
		if err := c.ShouldBind(&req); err != nil {
			invalidBody(c, err)
			return
		}
		changes, err := req.changes()
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx := store.WithAccessToken(c.Request.Context(), middleware.GetAccessToken(c))
		n, err := s.posts.Update(ctx, c.Param("id"), middleware.GetUserID(c), changes)
		if err != nil {
			storeError(c, "投稿更新エラー", err)
			return
		}
		if n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"message": messagePostMissing})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": messagePostUpdated})
	}
}

// handleDelete は投稿削除を処理するハンドラを返す。
func (s *Server) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := store.WithAccessToken(c.Request.Context(), middleware.GetAccessToken(c))
		n, err := s.posts.Delete(ctx, c.Param("id"), middleware.GetUserID(c))
		if err != nil {
			storeError(c, "投稿削除エラー", err)
			return
		}
		if n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"message": messagePostMissing})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": messagePostDeleted})
	}
}
