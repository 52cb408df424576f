// Package routes はルーティングを行います。
package routes

import (
	"database/sql"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"calendar-todo/backend/internal/config"
	"calendar-todo/backend/internal/handlers"
	"calendar-todo/backend/internal/repositories"
	"calendar-todo/backend/internal/services"
)

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(db *sql.DB, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())

	// CORS対策 (Cookieを送るため AllowCredentials が必要)
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// リポジトリ
	taskRepo := repositories.NewTaskRepository(db)
	userRepo := repositories.NewUserRepository(db)

	// サービス
	taskService := services.NewTaskService(taskRepo)
	userService := services.NewUserService(userRepo)
	jwtService := services.NewJWTService(cfg.JWTSecret)

	// ハンドラー
	userHandler := handlers.NewUserHandler(userService, jwtService, cfg.IsProduction())
	taskHandler := handlers.NewTaskHandler(taskService)

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api.GET("/dbcheck", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database connection failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Database connection is healthy"})
	})

	// /api/auth/* と旧来の /api/* の両方を受け付ける
	for _, g := range []*gin.RouterGroup{api.Group("/auth"), api} {
		g.POST("/register", userHandler.RegisterHandler)
		g.POST("/login", userHandler.LoginHandler)
		g.POST("/logout", userHandler.LogoutHandler)
	}

	authorized := api.Group("/")
	authorized.Use(AuthMiddleware(jwtService))
	{
		authorized.GET("/user", userHandler.MeHandler)
		authorized.GET("/tasks", taskHandler.GetTasksHandler)
		authorized.GET("/tasks/:id", taskHandler.GetTaskHandler)
		authorized.POST("/tasks", taskHandler.CreateTaskHandler)
		authorized.PUT("/tasks/:id", taskHandler.UpdateTaskHandler)
		authorized.DELETE("/tasks/:id", taskHandler.DeleteTaskHandler)
	}

	return r
}
