// Package testutil はテストで共通して使うセットアップ処理を提供します。
package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"calendar-todo/backend/internal/config"
	"calendar-todo/backend/internal/database"
	"calendar-todo/backend/internal/handlers"
	"calendar-todo/backend/internal/models"
	"calendar-todo/backend/internal/repositories"
	"calendar-todo/backend/internal/routes"
)

const (
	TestJWTSecret = "test-secret"
	// シードユーザー
	NormalUsername = "normal_user"
	OtherUsername  = "other_user"
	TestPassword   = "password123"
)

// TestConfig はテスト用の設定を返します。
func TestConfig() *config.Config {
	return &config.Config{
		Port:           0,
		AppEnv:         "test",
		DBDriver:       database.DriverSQLite,
		JWTSecret:      TestJWTSecret,
		AllowedOrigins: []string{"http://localhost:3000"},
	}
}

// SetupTestDB は一時ディレクトリのSQLiteでテスト用データベースを作成し、テストユーザーを投入します。
func SetupTestDB(t *testing.T) (*sql.DB, *gin.Engine, *repositories.TaskRepository, *repositories.UserRepository) {
	t.Helper()

	db, err := database.Open(database.DriverSQLite, database.SQLiteDSN(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, database.DriverSQLite))

	userRepo := repositories.NewUserRepository(db)
	CreateTestUser(t, userRepo, NormalUsername, TestPassword)
	CreateTestUser(t, userRepo, OtherUsername, TestPassword)

	router := SetupTestRouter(t, db)
	return db, router, repositories.NewTaskRepository(db), userRepo
}

// SetupTestRouter はテスト用のGinルーターをセットアップします。
func SetupTestRouter(t *testing.T, db *sql.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return routes.SetupRouter(db, TestConfig())
}

// CreateTestUser はパスワードをハッシュ化してユーザーを直接作成します。
func CreateTestUser(t *testing.T, userRepo *repositories.UserRepository, username, password string) *models.User {
	t.Helper()
	hashedPassword, err := repositories.HashPassword(password)
	require.NoError(t, err)

	createdUser, err := userRepo.Create(&models.User{Username: username, PasswordHash: hashedPassword})
	require.NoError(t, err)
	require.NotZero(t, createdUser.ID)
	return createdUser
}

// LoginAndGetCookie はログインしてセッションCookieを返します。
func LoginAndGetCookie(t *testing.T, router *gin.Engine, username, password string) (*http.Cookie, error) {
	t.Helper()
	body, _ := json.Marshal(models.AuthRequest{Username: username, Password: password})

	req, _ := http.NewRequest(http.MethodPost, "/api/login", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		return nil, fmt.Errorf("login failed with status %d: %s", resp.Code, resp.Body.String())
	}
	for _, c := range resp.Result().Cookies() {
		if c.Name == handlers.SessionCookieName {
			return c, nil
		}
	}
	return nil, fmt.Errorf("session cookie not found in login response")
}

// DoJSON はCookie付きでJSONリクエストを送り、レスポンスを返します。
func DoJSON(t *testing.T, router *gin.Engine, method, path string, cookie *http.Cookie, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, _ := http.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

// CreateTestTask はAPI経由でタスクを作成します。
func CreateTestTask(t *testing.T, router *gin.Engine, cookie *http.Cookie, title string, day time.Time, remindOn *time.Time) *models.Task {
	t.Helper()
	resp := DoJSON(t, router, http.MethodPost, "/api/tasks", cookie, models.CreateTaskRequest{
		Title:     title,
		CreatedAt: day,
		RemindOn:  remindOn,
	})
	require.Equal(t, http.StatusCreated, resp.Code, "タスク作成に失敗しました: %s", resp.Body.String())

	var created models.Task
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	return &created
}
