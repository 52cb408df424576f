package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("未対応のDB_DRIVERはエラー", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("DB_DRIVER", "postgres")

		cfg, err := Load()
		require.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("環境変数から読み込む", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("DB_DRIVER", "SQLite")
		t.Setenv("PORT", "9090")
		t.Setenv("APP_ENV", "production")
		t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, http://example.com ,")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, "sqlite", cfg.DBDriver)
		assert.True(t, cfg.IsProduction())
		assert.Equal(t, []string{"http://localhost:3000", "http://example.com"}, cfg.AllowedOrigins)
	})

	t.Run("JWT_SECRET が無い場合はエラー", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		t.Setenv("DB_DRIVER", "mysql")

		_, err := Load()
		assert.ErrorIs(t, err, ErrMissingJWTSecret)
	})

	t.Run("PORT が数値でない場合はエラー", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("PORT", "abc")

		_, err := Load()
		assert.Error(t, err)
	})
}
