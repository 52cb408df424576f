// Package repositories はデータベース操作を行うリポジトリを提供します。
package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt" // パスワードのハッシュ化用
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"calendar-todo/backend/internal/models"
)

// UserRepository はusersテーブルを操作します。
type UserRepository struct {
	DB *sql.DB
}

// NewUserRepository は新しいUserRepositoryインスタンスを作成します。
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// HashPassword は与えられたパスワードをbcryptでハッシュ化します。
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedPassword), nil
}

// VerifyPassword はハッシュ化されたパスワードと平文のパスワードを比較します。
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

var (
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrUserNotFound      = errors.New("user not found")
)

// Create は新しいユーザーをデータベースに挿入します。
func (r *UserRepository) Create(u *models.User) (*models.User, error) {
	result, err := r.DB.Exec("INSERT INTO users (username, password_hash) VALUES (?, ?)", u.Username, u.PasswordHash)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicateUsername
		}
		log.Error().Err(err).Str("username", u.Username).Msg("Failed to insert user")
		return nil, fmt.Errorf("could not insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("could not get last insert ID: %w", err)
	}
	u.ID = int(id)
	return u, nil
}

// FindByUsername はユーザー名でユーザーを検索します。
func (r *UserRepository) FindByUsername(username string) (*models.User, error) {
	return r.findOne("SELECT id, username, password_hash, created_at FROM users WHERE username = ?", username)
}

// FindByID はIDでユーザーを検索します。
func (r *UserRepository) FindByID(id int) (*models.User, error) {
	return r.findOne("SELECT id, username, password_hash, created_at FROM users WHERE id = ?", id)
}

// Count は登録済みユーザー数を返します。
func (r *UserRepository) Count() (int, error) {
	var n int
	if err := r.DB.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("could not count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) findOne(query string, arg interface{}) (*models.User, error) {
	var u models.User
	var createdAt sql.NullTime
	err := r.DB.QueryRow(query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		log.Error().Err(err).Msg("Failed to query user")
		return nil, fmt.Errorf("could not query user: %w", err)
	}
	if createdAt.Valid {
		u.CreatedAt = createdAt.Time.UTC()
	}
	return &u, nil
}

// isDuplicateKey はMySQLの1062またはSQLiteのUNIQUE制約違反かどうかを判定します。
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return false
}
