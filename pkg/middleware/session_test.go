package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testToken はテスト用リゾルバーが受け付けるトークン。
const testToken = "valid-token"

// newTestResolver はtestTokenのみを受け付けるリゾルバーを返す。
// calls はリゾルバーの呼び出し回数を記録する。
func newTestResolver(calls *atomic.Int32) ResolveFunc {
	return func(_ context.Context, token string) (*Identity, error) {
		if calls != nil {
			calls.Add(1)
		}
		if token != testToken {
			return nil, errors.New("invalid JWT")
		}
		return &Identity{UserID: "user-1", Email: "a@b.com"}, nil
	}
}

// findCookie はレスポンスから指定名のCookieを探す。
func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// TestAuthenticate はAuthenticate関数を検証する。
func TestAuthenticate(t *testing.T) {
	t.Parallel()

	t.Run("トークンが空の場合はプロバイダーを呼ばずにErrNoCredentialを返すこと", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		_, err := Authenticate(context.Background(), newTestResolver(&calls), "")
		if !errors.Is(err, ErrNoCredential) {
			t.Errorf("err = %v, want ErrNoCredential", err)
		}
		if calls.Load() != 0 {
			t.Errorf("リゾルバー呼び出し回数 = %d, want 0", calls.Load())
		}
	})

	t.Run("プロバイダーがエラーを返した場合はErrInvalidCredentialを返すこと", func(t *testing.T) {
		t.Parallel()

		_, err := Authenticate(context.Background(), newTestResolver(nil), "bad-token")
		if !errors.Is(err, ErrInvalidCredential) {
			t.Errorf("err = %v, want ErrInvalidCredential", err)
		}
	})

	t.Run("プロバイダーがユーザーを返さない場合はErrInvalidCredentialを返すこと", func(t *testing.T) {
		t.Parallel()

		resolve := func(context.Context, string) (*Identity, error) { return nil, nil }
		_, err := Authenticate(context.Background(), resolve, "token")
		if !errors.Is(err, ErrInvalidCredential) {
			t.Errorf("err = %v, want ErrInvalidCredential", err)
		}
	})

	t.Run("有効なトークンでユーザーが返ること", func(t *testing.T) {
		t.Parallel()

		identity, err := Authenticate(context.Background(), newTestResolver(nil), testToken)
		if err != nil {
			t.Fatalf("Authenticate()でエラーが発生: %v", err)
		}
		if identity.UserID != "user-1" || identity.Email != "a@b.com" {
			t.Errorf("identity = %+v", identity)
		}
	})
}

// TestSessionAuth はSessionAuthミドルウェアを検証する。
func TestSessionAuth(t *testing.T) {
	t.Parallel()

	// newRouter は保護されたルートを1つ持つルーターを生成する。
	newRouter := func(calls *atomic.Int32, handlerCalled *bool) *gin.Engine {
		router := gin.New()
		router.Use(SessionAuth(newTestResolver(calls), DefaultCookieConfig()))
		router.GET("/protected", func(c *gin.Context) {
			if handlerCalled != nil {
				*handlerCalled = true
			}
			c.JSON(http.StatusOK, gin.H{
				"user_id": GetUserID(c),
				"email":   GetEmail(c),
				"token":   GetAccessToken(c),
			})
		})
		return router
	}

	t.Run("有効なCookieでユーザー情報とトークンがコンテキストに設定されること", func(t *testing.T) {
		t.Parallel()

		router := newRouter(nil, nil)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: testToken})
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスボディのパースに失敗: %v", err)
		}
		if body["user_id"] != "user-1" {
			t.Errorf("user_id = %q, want %q", body["user_id"], "user-1")
		}
		if body["email"] != "a@b.com" {
			t.Errorf("email = %q, want %q", body["email"], "a@b.com")
		}
		if body["token"] != testToken {
			t.Errorf("token = %q, want %q", body["token"], testToken)
		}
	})

	t.Run("Bearerヘッダーでも認証できること", func(t *testing.T) {
		t.Parallel()

		router := newRouter(nil, nil)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+testToken)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("認証情報が無い場合は401でプロバイダーもハンドラーも呼ばれないこと", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		handlerCalled := false
		router := newRouter(&calls, &handlerCalled)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスボディのパースに失敗: %v", err)
		}
		if body["message"] != "Authentication required." {
			t.Errorf("message = %q, want %q", body["message"], "Authentication required.")
		}
		if calls.Load() != 0 {
			t.Errorf("リゾルバー呼び出し回数 = %d, want 0", calls.Load())
		}
		if handlerCalled {
			t.Error("ハンドラーが呼ばれるべきではない")
		}
		if c := findCookie(w, SessionCookieName); c != nil {
			t.Errorf("Cookieが無いのにSet-Cookieが返った: %v", c)
		}
	})

	t.Run("無効なCookieの場合は401でCookieが削除されること", func(t *testing.T) {
		t.Parallel()

		handlerCalled := false
		router := newRouter(nil, &handlerCalled)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale-token"})
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if handlerCalled {
			t.Error("ハンドラーが呼ばれるべきではない")
		}
		c := findCookie(w, SessionCookieName)
		if c == nil {
			t.Fatal("古いCookieを削除するSet-Cookieが返っていない")
		}
		if c.MaxAge >= 0 || c.Value != "" {
			t.Errorf("Cookieが削除されていない: %+v", c)
		}
	})

	t.Run("同じセッションでもリクエストごとに検証されること", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		router := newRouter(&calls, nil)
		for range 3 {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: testToken})
			router.ServeHTTP(httptest.NewRecorder(), req)
		}

		if calls.Load() != 3 {
			t.Errorf("リゾルバー呼び出し回数 = %d, want 3", calls.Load())
		}
	})

	t.Run("無効なCookieがあっても有効なBearerヘッダーで認証されること", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		handlerCalled := false
		router := newRouter(&calls, &handlerCalled)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale-token"})
		req.Header.Set("Authorization", "Bearer "+testToken)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if !handlerCalled {
			t.Error("ハンドラーが呼ばれていない")
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスボディのパースに失敗: %v", err)
		}
		if body["token"] != testToken {
			t.Errorf("token = %q, want %q", body["token"], testToken)
		}
		if calls.Load() != 2 {
			t.Errorf("リゾルバー呼び出し回数 = %d, want 2", calls.Load())
		}
		c := findCookie(w, SessionCookieName)
		if c == nil || c.MaxAge >= 0 {
			t.Errorf("古いCookieが削除されていない: %+v", c)
		}
	})

	t.Run("有効なCookieは無効なBearerヘッダーより優先されること", func(t *testing.T) {
		t.Parallel()

		router := newRouter(nil, nil)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: testToken})
		req.Header.Set("Authorization", "Bearer stale-token")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if c := findCookie(w, SessionCookieName); c != nil {
			t.Errorf("有効なCookieが削除された: %+v", c)
		}
	})
}

// TestSessionStatus はSessionStatusミドルウェアを検証する。
func TestSessionStatus(t *testing.T) {
	t.Parallel()

	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(SessionStatus(newTestResolver(nil), DefaultCookieConfig()))
		router.GET("/status", func(c *gin.Context) {
			identity, ok := GetIdentity(c)
			if !ok {
				c.JSON(http.StatusOK, gin.H{"isLoggedIn": false})
				return
			}
			c.JSON(http.StatusOK, gin.H{"isLoggedIn": true, "email": identity.Email})
		})
		return router
	}

	tests := []struct {
		name       string
		cookie     string
		wantLogged bool
	}{
		{name: "Cookieが無い場合は未ログインで200が返ること", cookie: "", wantLogged: false},
		{name: "無効なCookieでも拒否されず未ログインになること", cookie: "bad", wantLogged: false},
		{name: "有効なCookieでログイン済みになること", cookie: testToken, wantLogged: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()

			newRouter().ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("レスポンスボディのパースに失敗: %v", err)
			}
			if body["isLoggedIn"] != tt.wantLogged {
				t.Errorf("isLoggedIn = %v, want %v", body["isLoggedIn"], tt.wantLogged)
			}
			if tt.wantLogged && body["email"] != "a@b.com" {
				t.Errorf("email = %v, want a@b.com", body["email"])
			}
		})
	}
}

// TestSessionCookie はSetSessionCookieとClearSessionCookieを検証する。
func TestSessionCookie(t *testing.T) {
	t.Parallel()

	t.Run("HttpOnlyで30日間有効なCookieが設定されること", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		SetSessionCookie(c, DefaultCookieConfig(), "tok")

		cookie := findCookie(w, SessionCookieName)
		if cookie == nil {
			t.Fatal("Cookieが設定されていない")
		}
		if cookie.Value != "tok" {
			t.Errorf("Value = %q, want %q", cookie.Value, "tok")
		}
		if !cookie.HttpOnly {
			t.Error("HttpOnlyが設定されていない")
		}
		if cookie.MaxAge != 30*24*60*60 {
			t.Errorf("MaxAge = %d, want %d", cookie.MaxAge, 30*24*60*60)
		}
		if cookie.Path != "/" {
			t.Errorf("Path = %q, want %q", cookie.Path, "/")
		}
		if cookie.SameSite != http.SameSiteLaxMode {
			t.Errorf("SameSite = %v, want Lax", cookie.SameSite)
		}
		if cookie.Secure {
			t.Error("デフォルトではSecureは設定されない")
		}
	})

	t.Run("Secure指定時はSecure属性が付くこと", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultCookieConfig()
		cfg.Secure = true
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		SetSessionCookie(c, cfg, "tok")

		cookie := findCookie(w, SessionCookieName)
		if cookie == nil || !cookie.Secure {
			t.Errorf("Secure属性が設定されていない: %+v", cookie)
		}
	})

	t.Run("ClearSessionCookieで期限切れのCookieが設定されること", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		ClearSessionCookie(c, DefaultCookieConfig())

		cookie := findCookie(w, SessionCookieName)
		if cookie == nil {
			t.Fatal("Cookieが設定されていない")
		}
		if cookie.MaxAge >= 0 {
			t.Errorf("MaxAge = %d, want < 0", cookie.MaxAge)
		}
	})
}

// TestGetIdentity はコンテキストからの取得関数を検証する。
func TestGetIdentity(t *testing.T) {
	t.Parallel()

	t.Run("user_idが設定されていない場合はfalseが返ること", func(t *testing.T) {
		t.Parallel()

		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		if _, ok := GetIdentity(c); ok {
			t.Error("GetIdentity()がtrueを返した")
		}
		if got := GetUserID(c); got != "" {
			t.Errorf("GetUserID() = %q, want empty string", got)
		}
	})

	t.Run("user_idが文字列以外の型の場合に空文字列が返ること", func(t *testing.T) {
		t.Parallel()

		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set("user_id", 12345)
		if got := GetUserID(c); got != "" {
			t.Errorf("GetUserID() = %q, want empty string", got)
		}
	})
}
