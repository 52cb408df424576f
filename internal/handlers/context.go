// Package handlers はHTTPリクエストを処理するginハンドラーを提供します。
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextUserIDKey は認証ミドルウェアがユーザーIDを格納するキーです。
const ContextUserIDKey = "user_id"

// currentUserID はコンテキストから認証済みユーザーIDを取り出します。
// 取り出せない場合はレスポンスを書き込んで false を返します。
func currentUserID(c *gin.Context) (int, bool) {
	userIDVal, exists := c.Get(ContextUserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return 0, false
	}
	userID, ok := userIDVal.(int)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID type in context"})
		return 0, false
	}
	return userID, true
}
