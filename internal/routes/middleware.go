package routes

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"calendar-todo/backend/internal/handlers"
	"calendar-todo/backend/internal/services"
)

// AuthMiddleware はセッションCookieまたはBearerトークンを検証し、ユーザーIDをコンテキストに設定するミドルウェアです。
func AuthMiddleware(jwtService *services.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := jwtService.ValidateToken(extractToken(c))
		if err != nil {
			msg := "Invalid or expired token"
			if errors.Is(err, services.ErrNotAuthenticated) {
				msg = "Not authenticated"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(handlers.ContextUserIDKey, claims.UserID)
		c.Next()
	}
}

// extractToken はCookieを優先し、無ければ Authorization ヘッダーからトークンを取り出します。
func extractToken(c *gin.Context) string {
	if token, err := c.Cookie(handlers.SessionCookieName); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}

// RequestLogger はリクエストごとにメソッド・パス・ステータス・処理時間を記録します。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
