package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニック発生時にリクエストとマッチしたルート、認証済みならユーザーIDをログに出力し、
// 500エラーを返す。パニックの詳細はレスポンスに含めない。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[PANIC] %s %s route=%s user=%s: %v",
					c.Request.Method, c.Request.URL.Path, routeOf(c), orDash(GetUserID(c)), r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"message": "Internal server error.",
				})
			}
		}()
		c.Next()
	}
}

// routeOf はリクエストにマッチしたルートのパターンを返す。未定義ルートでは "-"。
func routeOf(c *gin.Context) string {
	return orDash(c.FullPath())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
