// Package services はアプリケーションのビジネスロジックを提供します。
package services

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"calendar-todo/backend/internal/models"
	"calendar-todo/backend/internal/repositories"
)

// ErrInvalidCredentials はユーザー名またはパスワードが一致しない場合に返されます。
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserService はユーザー関連のビジネスロジックを扱います。
type UserService struct {
	userRepo *repositories.UserRepository
}

// NewUserService は新しいUserServiceを作成します。
func NewUserService(userRepo *repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// RegisterUser はユーザーを登録します。既に使われているユーザー名は ErrDuplicateUsername になります。
func (s *UserService) RegisterUser(req models.AuthRequest) (*models.User, error) {
	if _, err := s.userRepo.FindByUsername(req.Username); err == nil {
		return nil, repositories.ErrDuplicateUsername
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, err
	}

	hashedPassword, err := repositories.HashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash password")
		return nil, err
	}

	// 事前チェックとINSERTの間に同名登録が割り込んでもUNIQUE制約で弾かれる
	createdUser, err := s.userRepo.Create(&models.User{Username: req.Username, PasswordHash: hashedPassword})
	if err != nil {
		return nil, err
	}
	createdUser.PasswordHash = "" // レスポンスにパスワードを含めない
	return createdUser, nil
}

// AuthenticateUser はユーザーを認証し、成功したらユーザーを返します。
func (s *UserService) AuthenticateUser(req models.AuthRequest) (*models.User, error) {
	foundUser, err := s.userRepo.FindByUsername(req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := repositories.VerifyPassword(foundUser.PasswordHash, req.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	foundUser.PasswordHash = ""
	return foundUser, nil
}

// GetUser はIDでユーザーを取得します。
func (s *UserService) GetUser(id int) (*models.User, error) {
	u, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}
