// Package reminder はタスクのリマインド時刻からアプリ内通知を生成します。
package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"calendar-todo/backend/internal/models"
	"calendar-todo/backend/internal/scheduler"
)

// DefaultInterval はリマインドを確認する間隔です。
const DefaultInterval = 5 * time.Second

// ReminderTitle は通知のタイトルです。
const ReminderTitle = "Task Reminder"

// TaskSource はスキャン対象のタスクを返します。*taskstore.Store が満たします。
type TaskSource interface {
	Tasks() []models.Task
}

// Engine は前回の確認時刻から今回までにリマインド時刻を迎えたタスクを通知にします。
type Engine struct {
	tasks    TaskSource
	now      func() time.Time
	loc      *time.Location
	onNotify func(models.Notification)
	loop     *scheduler.Loop

	mu            sync.Mutex
	lastCheck     time.Time
	notifications []models.Notification
}

// Option はEngineの設定を変更します。
type Option func(*Engine)

// WithClock は現在時刻の取得方法を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation は通知時刻を表示するタイムゾーンを指定します。既定は time.Local です。
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithNotifyFunc は新しい通知ごとに呼ばれる関数を設定します。
func WithNotifyFunc(fn func(models.Notification)) Option {
	return func(e *Engine) { e.onNotify = fn }
}

// WithInterval はスキャン間隔を変更します。
func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.loop = scheduler.New("reminder-scan", d, func(time.Time) { e.Scan(e.now()) })
	}
}

// NewEngine は新しいEngineを作成します。前回の確認時刻は作成時刻で初期化されます。
func NewEngine(tasks TaskSource, opts ...Option) *Engine {
	e := &Engine{tasks: tasks, now: time.Now, loc: time.Local}
	e.loop = scheduler.New("reminder-scan", DefaultInterval, func(time.Time) { e.Scan(e.now()) })
	for _, opt := range opts {
		opt(e)
	}
	e.lastCheck = e.now()
	return e
}

// Scan は (前回の確認時刻, now] にリマインド時刻がある未完了タスクごとに通知を1件作り、
// 確認時刻を now に進めます。作成した通知を返します。
func (e *Engine) Scan(now time.Time) []models.Notification {
	tasks := e.tasks.Tasks()

	e.mu.Lock()
	from := e.lastCheck
	var created []models.Notification
	for _, t := range tasks {
		if t.RemindOn == nil || t.IsCompleted {
			continue
		}
		remindAt := t.RemindOn.In(e.loc)
		if remindAt.After(from) && !remindAt.After(now) {
			created = append(created, e.appendLocked(t.ID, ReminderTitle, "It's time for: "+t.Title, now))
		}
	}
	e.lastCheck = now
	e.mu.Unlock()

	for _, n := range created {
		log.Debug().Int("task_id", n.TaskID).Str("notification_id", n.ID).Msg("Reminder fired")
		if e.onNotify != nil {
			e.onNotify(n)
		}
	}
	return created
}

// AddNotification は任意の通知を追加します。
func (e *Engine) AddNotification(taskID int, title, message string) models.Notification {
	e.mu.Lock()
	n := e.appendLocked(taskID, title, message, e.now())
	e.mu.Unlock()

	if e.onNotify != nil {
		e.onNotify(n)
	}
	return n
}

func (e *Engine) appendLocked(taskID int, title, message string, at time.Time) models.Notification {
	n := models.Notification{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		Title:     title,
		Message:   message,
		CreatedAt: at.In(e.loc),
	}
	e.notifications = append(e.notifications, n)
	return n
}

// MarkAsRead は通知を既読にします。通知は一覧に残ります。
func (e *Engine) MarkAsRead(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.notifications {
		if e.notifications[i].ID == id {
			e.notifications[i].IsRead = true
			return true
		}
	}
	return false
}

// ClearNotifications はすべての通知を削除します。確認時刻は変わらないので過去のリマインドは再通知されません。
func (e *Engine) ClearNotifications() {
	e.mu.Lock()
	e.notifications = nil
	e.mu.Unlock()
}

// Notifications は通知の複製を返します。
func (e *Engine) Notifications() []models.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Notification(nil), e.notifications...)
}

// UnreadCount は未読の通知数を返します。
func (e *Engine) UnreadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, notif := range e.notifications {
		if !notif.IsRead {
			n++
		}
	}
	return n
}

// LastCheck は前回の確認時刻を返します。
func (e *Engine) LastCheck() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastCheck
}

// Start は定期スキャンを開始します。
func (e *Engine) Start(ctx context.Context) error {
	return e.loop.Start(ctx)
}

// Stop は定期スキャンを停止します。
func (e *Engine) Stop() {
	e.loop.Stop()
}
