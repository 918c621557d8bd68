package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError は上流サービスが2xx以外を返したことを表す。
type APIError struct {
	// Status はHTTPステータスコード。
	Status int
	// Message は上流サービスが返したエラーメッセージ。
	Message string
	// Body はレスポンスボディそのもの。
	Body string
}

// Error はerrorインターフェースの実装。
func (e *APIError) Error() string {
	return fmt.Sprintf("HTTPエラー: status=%d, message=%s", e.Status, e.Message)
}

// newAPIError はレスポンスボディからメッセージを取り出してAPIErrorを生成する。
// PostgREST は "message"、GoTrue は "msg" / "error_description" を使う。
func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status, Body: string(body)}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"message", "msg", "error_description", "error"} {
			if s, ok := payload[key].(string); ok && s != "" {
				e.Message = s
				break
			}
		}
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// StatusCode はerrがAPIErrorの場合にそのステータスコードを返す。それ以外は0。
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
