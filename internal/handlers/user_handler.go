package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"calendar-todo/backend/internal/models"
	"calendar-todo/backend/internal/repositories"
	"calendar-todo/backend/internal/services"
)

// SessionCookieName はセッショントークンを保持するCookie名です。
const SessionCookieName = "token"

// UserHandler はユーザー関連のハンドラーを管理します。
type UserHandler struct {
	userService  *services.UserService
	jwtService   *services.JWTService
	secureCookie bool
}

// NewUserHandler は新しいUserHandlerを作成します。secureCookie は本番環境で true にします。
func NewUserHandler(userService *services.UserService, jwtService *services.JWTService, secureCookie bool) *UserHandler {
	return &UserHandler{userService: userService, jwtService: jwtService, secureCookie: secureCookie}
}

func (h *UserHandler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, maxAge, "/", "", h.secureCookie, true)
}

// issueSession はトークンを発行してCookieに設定し、ユーザー情報を返します。
func (h *UserHandler) issueSession(c *gin.Context, status int, user *models.User) {
	token, err := h.jwtService.GenerateToken(user.ID)
	if err != nil {
		log.Error().Err(err).Int("user_id", user.ID).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	h.setSessionCookie(c, token, int(models.SessionDuration.Seconds()))
	c.JSON(status, user)
}

// RegisterHandler はユーザー登録を処理します。
func (h *UserHandler) RegisterHandler(c *gin.Context) {
	var req models.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	user, err := h.userService.RegisterUser(req)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateUsername) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
			return
		}
		log.Error().Err(err).Msg("Failed to register user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	log.Info().Int("user_id", user.ID).Msg("User registered")
	h.issueSession(c, http.StatusCreated, user)
}

// LoginHandler はユーザーログインを処理します。
func (h *UserHandler) LoginHandler(c *gin.Context) {
	var req models.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	user, err := h.userService.AuthenticateUser(req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		log.Error().Err(err).Msg("Failed to authenticate user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.issueSession(c, http.StatusOK, user)
}

// LogoutHandler はセッションCookieを削除します。
func (h *UserHandler) LogoutHandler(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// MeHandler は認証済みユーザーの情報を返します。
func (h *UserHandler) MeHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		log.Error().Err(err).Int("user_id", userID).Msg("Failed to fetch user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, user)
}
