// Package config は環境変数と .env ファイルからアプリケーション設定を読み込みます。
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingJWTSecret は JWT_SECRET が設定されていない場合に返されます。
var ErrMissingJWTSecret = errors.New("JWT_SECRET environment variable not set")

// Config はAPIサーバーの設定値を保持します。
type Config struct {
	Port           int
	AppEnv         string
	LogLevel       string
	DBDriver       string
	DBUser         string
	DBPass         string
	DBHost         string
	DBPort         string
	DBName         string
	SQLitePath     string
	JWTSecret      string
	AllowedOrigins []string
}

// Load は .env (存在すれば) を読み込んだ上で環境変数から設定を構築します。
func Load() (*Config, error) {
	// .env が無くても環境変数だけで動かせるようにする
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	cfg := &Config{
		Port:           port,
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		DBUser:         getEnv("DB_USER", ""),
		DBPass:         getEnv("DB_PASS", ""),
		DBHost:         getEnv("DB_HOST", "127.0.0.1"),
		DBPort:         getEnv("DB_PORT", "3306"),
		DBName:         getEnv("DB_NAME", "todo"),
		SQLitePath:     getEnv("SQLITE_PATH", "./todo.db"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	if cfg.DBDriver != "mysql" && cfg.DBDriver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return cfg, nil
}

// IsProduction は本番環境かどうかを返します。Cookie の Secure 属性の判定に使います。
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
