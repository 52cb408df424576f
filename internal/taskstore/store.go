// Package taskstore はログイン中ユーザーのタスクをクライアント側でキャッシュし、
// 作成・更新・削除をAPIに仲介します。
package taskstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"calendar-todo/backend/internal/client"
	"calendar-todo/backend/internal/models"
)

// TaskAPI はStoreが使うタスクエンドポイントです。*client.Client が満たします。
type TaskAPI interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, req models.CreateTaskRequest) (*models.Task, error)
	UpdateTask(ctx context.Context, id int, upd models.UpdateTaskRequest) (*models.Task, error)
	DeleteTask(ctx context.Context, id int) error
}

// UserSource はログイン中のユーザーを返します。*session.Manager が満たします。
type UserSource interface {
	CurrentUser() *models.User
}

// ErrTaskNotCached はキャッシュに無いタスクを更新しようとした場合に返されます。
var ErrTaskNotCached = errors.New("task not in cache")

// Store はタスクのキャッシュです。並行して呼び出しても安全です。
// 同じタスクへの更新が同時に進行した場合の整合性は保証しません。
type Store struct {
	api   TaskAPI
	users UserSource

	mu      sync.RWMutex
	tasks   []models.Task
	err     string
	loading bool
}

// New は新しいStoreを作成します。
func New(api TaskAPI, users UserSource) *Store {
	return &Store{api: api, users: users}
}

// Tasks はキャッシュの複製を返します。
func (s *Store) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

// TasksOn は day と同じ暦日 (loc 基準) のタスクを返します。
func (s *Store) TasksOn(day time.Time, loc *time.Location) []models.Task {
	var out []models.Task
	for _, t := range s.Tasks() {
		if models.SameDay(t.CreatedAt, day, loc) {
			out = append(out, t)
		}
	}
	return out
}

// Err は直前の操作で発生したエラーメッセージを返します。
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// IsLoading は一覧取得・作成の実行中かを返します。
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) clearErr() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
}

func (s *Store) fail(op string, err error) error {
	msg := fmt.Sprintf("Failed to %s: %s", op, describe(err))
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
	log.Warn().Err(err).Str("op", op).Msg("Task request failed")
	return fmt.Errorf("%s: %w", op, err)
}

func describe(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return http.StatusText(apiErr.StatusCode)
	}
	return "An unknown error occurred"
}

// FetchTasks はサーバーの一覧でキャッシュを置き換えます。未ログインなら何もしません。
func (s *Store) FetchTasks(ctx context.Context) error {
	if s.users.CurrentUser() == nil {
		return nil
	}
	s.setLoading(true)
	defer s.setLoading(false)
	s.clearErr()

	tasks, err := s.api.ListTasks(ctx)
	if err != nil {
		return s.fail("fetch tasks", err)
	}

	s.mu.Lock()
	s.tasks = append([]models.Task(nil), tasks...)
	s.mu.Unlock()
	return nil
}

// CreateTask はタスクを作成し、サーバーが返したタスクをキャッシュに追加します。
func (s *Store) CreateTask(ctx context.Context, req models.CreateTaskRequest) (*models.Task, error) {
	s.setLoading(true)
	defer s.setLoading(false)
	s.clearErr()

	created, err := s.api.CreateTask(ctx, req)
	if err != nil {
		return nil, s.fail("create task", err)
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, created.Clone())
	s.mu.Unlock()
	return created, nil
}

// UpdateTask は楽観的更新を行います。キャッシュを先に書き換えてからAPIを呼び、
// 失敗した場合は更新前のスナップショットに戻します。
func (s *Store) UpdateTask(ctx context.Context, id int, upd models.UpdateTaskRequest) (*models.Task, error) {
	s.clearErr()

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, s.fail("update task", ErrTaskNotCached)
	}
	snapshot := s.tasks[idx].Clone()
	upd.ApplyTo(&s.tasks[idx])
	s.mu.Unlock()

	updated, err := s.api.UpdateTask(ctx, id, upd)
	if err != nil {
		s.mu.Lock()
		if i := s.indexOf(id); i >= 0 {
			s.tasks[i] = snapshot
		}
		s.mu.Unlock()
		return nil, s.fail("update task", err)
	}

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.tasks[i] = updated.Clone()
	}
	s.mu.Unlock()
	return updated, nil
}

// DeleteTask はサーバーで削除が成功した後にキャッシュから取り除きます。
func (s *Store) DeleteTask(ctx context.Context, id int) error {
	s.clearErr()

	if err := s.api.DeleteTask(ctx, id); err != nil {
		return s.fail("delete task", err)
	}

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	}
	s.mu.Unlock()
	return nil
}

// Reset はキャッシュを空にします。ログアウト時に使います。
func (s *Store) Reset() {
	s.mu.Lock()
	s.tasks = nil
	s.err = ""
	s.mu.Unlock()
}

// indexOf は s.mu を保持した状態で呼び出します。
func (s *Store) indexOf(id int) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
