// Package session はログイン中のユーザーとセッションの有効期限を管理します。
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"calendar-todo/backend/internal/client"
	"calendar-todo/backend/internal/models"
	"calendar-todo/backend/internal/scheduler"
)

// AuthAPI はManagerが使う認証エンドポイントです。*client.Client が満たします。
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*models.User, error)
	Register(ctx context.Context, username, password string) (*models.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
}

// DefaultCheckInterval はセッション期限を確認する間隔です。
const DefaultCheckInterval = time.Minute

// Manager は認証済みユーザーとセッションの有効期限を保持します。
type Manager struct {
	api   AuthAPI
	store Store
	now   func() time.Time
	loop  *scheduler.Loop

	mu      sync.RWMutex
	user    *models.User
	err     string
	loading bool
}

// Option はManagerの設定を変更します。
type Option func(*Manager)

// WithClock は現在時刻の取得方法を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCheckInterval は期限確認の間隔を変更します。
func WithCheckInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.loop = scheduler.New("session-check", d, func(time.Time) { m.CheckSessionExpiration() })
	}
}

// NewManager は新しいManagerを作成します。
func NewManager(api AuthAPI, store Store, opts ...Option) *Manager {
	m := &Manager{api: api, store: store, now: time.Now}
	m.loop = scheduler.New("session-check", DefaultCheckInterval, func(time.Time) { m.CheckSessionExpiration() })
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CurrentUser はログイン中のユーザーを返します。未ログインなら nil です。
func (m *Manager) CurrentUser() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Err は直前の操作で発生したエラーメッセージを返します。
func (m *Manager) Err() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// IsLoading は認証操作の実行中かを返します。
func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

func (m *Manager) begin(clearErr bool) {
	m.mu.Lock()
	m.loading = true
	if clearErr {
		m.err = ""
	}
	m.mu.Unlock()
}

func (m *Manager) finish(errMsg string) {
	m.mu.Lock()
	m.loading = false
	if errMsg != "" {
		m.err = errMsg
	}
	m.mu.Unlock()
}

// Login はログインし、成功したらセッションを保存します。
func (m *Manager) Login(ctx context.Context, username, password string) error {
	m.begin(true)
	u, err := m.api.Login(ctx, username, password)
	if err != nil {
		msg := "An error occurred during login"
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			msg = "Invalid username or password"
		}
		log.Warn().Err(err).Str("username", username).Msg("Login failed")
		m.finish(msg)
		return err
	}
	m.establish(u)
	m.finish("")
	return nil
}

// Register はユーザーを登録し、成功したらセッションを保存します。
func (m *Manager) Register(ctx context.Context, username, password string) error {
	m.begin(true)
	u, err := m.api.Register(ctx, username, password)
	if err != nil {
		msg := "An error occurred during registration"
		var apiErr *client.APIError
		switch {
		case errors.Is(err, client.ErrUsernameTaken):
			msg = "Username already exists"
		case errors.As(err, &apiErr):
			msg = "Registration failed"
			if apiErr.Message != "" {
				msg = apiErr.Message
			}
		}
		log.Warn().Err(err).Str("username", username).Msg("Register failed")
		m.finish(msg)
		return err
	}
	m.establish(u)
	m.finish("")
	return nil
}

// Logout はローカルのセッションを必ず削除し、その後サーバーにCookieの削除を依頼します。
// サーバー呼び出しが失敗してもログイン状態には戻りません。
func (m *Manager) Logout(ctx context.Context) error {
	m.begin(false)
	m.clearLocal()

	if err := m.api.Logout(ctx); err != nil {
		log.Warn().Err(err).Msg("Logout request failed")
		m.finish("An error occurred during logout")
		return err
	}
	m.finish("")
	return nil
}

// CheckSessionExpiration は保存済みセッションを確認します。
// 有効期限内ならユーザーを復元して true を返し、期限切れならログアウトして false を返します。
func (m *Manager) CheckSessionExpiration() bool {
	s, err := m.store.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load session")
		return false
	}
	if s == nil {
		return false
	}
	if s.Expired(m.now()) {
		log.Info().Int("user_id", s.User.ID).Msg("Session expired")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = m.Logout(ctx)
		return false
	}

	u := s.User
	m.mu.Lock()
	m.user = &u
	m.mu.Unlock()
	return true
}

// Restore は起動時の復元処理です。ローカルのセッションが無効なら、
// サーバー側でまだ有効なCookieからユーザーを取得してセッションを作り直します。
func (m *Manager) Restore(ctx context.Context) bool {
	if m.CheckSessionExpiration() {
		return true
	}
	u, err := m.api.Me(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("No server session to restore")
		return false
	}
	m.establish(u)
	return true
}

// Start は定期的なセッション期限の確認を開始します。
func (m *Manager) Start(ctx context.Context) error {
	return m.loop.Start(ctx)
}

// Stop は定期確認を停止します。
func (m *Manager) Stop() {
	m.loop.Stop()
}

func (m *Manager) establish(u *models.User) {
	user := *u
	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()

	if err := m.store.Save(models.Session{User: user, IssuedAt: m.now()}); err != nil {
		log.Error().Err(err).Msg("Failed to save session")
	}
}

func (m *Manager) clearLocal() {
	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		log.Error().Err(err).Msg("Failed to clear session")
	}
}
