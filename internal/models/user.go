package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionDuration はセッションの有効期間です。
// サーバーのJWT・Cookieとクライアントのセッションで同じ値を使います。
const SessionDuration = time.Hour

// User はユーザーのデータベース構造体を表します。
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // JSONに出さない
	CreatedAt    time.Time `json:"-"`
}

// AuthRequest はログイン・登録共通のリクエストボディです。
type AuthRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"` // 生パスワード
}

// JWTClaims はセッショントークンのクレームです。
type JWTClaims struct {
	UserID int `json:"userId"`
	jwt.RegisteredClaims
}

// Session はクライアント側に保存されるセッション情報です。
type Session struct {
	User     User      `json:"user"`
	IssuedAt time.Time `json:"issuedAt"`
}

// Expired は now 時点で有効期間を過ぎているかを返します。
func (s Session) Expired(now time.Time) bool {
	return now.Sub(s.IssuedAt) > SessionDuration
}
