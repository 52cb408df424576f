package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendar-todo/backend/internal/models"
)

type staticTasks struct {
	mu    sync.Mutex
	tasks []models.Task
}

func (s *staticTasks) Tasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Task(nil), s.tasks...)
}

func (s *staticTasks) set(tasks ...models.Task) {
	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()
}

var t0 = time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := t0.Add(d)
	return &t
}

func newEngine(src TaskSource, opts ...Option) *Engine {
	opts = append([]Option{WithClock(func() time.Time { return t0 }), WithLocation(time.UTC)}, opts...)
	return NewEngine(src, opts...)
}

func TestScan(t *testing.T) {
	t.Run("窓に入ったリマインドは一度だけ通知される", func(t *testing.T) {
		src := &staticTasks{}
		src.set(models.Task{ID: 1, Title: "stretch", RemindOn: at(3 * time.Second)})
		e := newEngine(src)

		first := e.Scan(t0.Add(5 * time.Second))
		require.Len(t, first, 1)
		assert.Equal(t, 1, first[0].TaskID)
		assert.Equal(t, "Task Reminder", first[0].Title)
		assert.Equal(t, "It's time for: stretch", first[0].Message)
		assert.False(t, first[0].IsRead)
		assert.NotEmpty(t, first[0].ID)

		second := e.Scan(t0.Add(10 * time.Second))
		assert.Empty(t, second)
		assert.Len(t, e.Notifications(), 1)
	})

	t.Run("境界ちょうどの時刻は今回の窓に含まれ次回には含まれない", func(t *testing.T) {
		src := &staticTasks{}
		src.set(models.Task{ID: 1, Title: "edge", RemindOn: at(5 * time.Second)})
		e := newEngine(src)

		assert.Len(t, e.Scan(t0.Add(5*time.Second)), 1)
		assert.Empty(t, e.Scan(t0.Add(10*time.Second)))
	})

	t.Run("作成時刻ちょうどのリマインドは通知されない", func(t *testing.T) {
		src := &staticTasks{}
		src.set(models.Task{ID: 1, Title: "past", RemindOn: at(0)})
		e := newEngine(src)
		assert.Empty(t, e.Scan(t0.Add(5*time.Second)))
	})

	t.Run("完了済みとリマインド無しは対象外", func(t *testing.T) {
		src := &staticTasks{}
		src.set(
			models.Task{ID: 1, Title: "done", RemindOn: at(2 * time.Second), IsCompleted: true},
			models.Task{ID: 2, Title: "no reminder"},
			models.Task{ID: 3, Title: "future", RemindOn: at(time.Minute)},
		)
		e := newEngine(src)
		assert.Empty(t, e.Scan(t0.Add(5*time.Second)))
		assert.Equal(t, t0.Add(5*time.Second), e.LastCheck())
	})

	t.Run("タイムゾーンが違っても同じ瞬間として扱う", func(t *testing.T) {
		jst := time.FixedZone("JST", 9*60*60)
		remind := t0.Add(2 * time.Second).In(jst)
		src := &staticTasks{}
		src.set(models.Task{ID: 1, Title: "tokyo", RemindOn: &remind})
		e := newEngine(src, WithLocation(jst))

		got := e.Scan(t0.Add(5 * time.Second))
		require.Len(t, got, 1)
		assert.Equal(t, jst, got[0].CreatedAt.Location())
	})

	t.Run("キャッシュに後から入ったタスクも窓内なら通知される", func(t *testing.T) {
		src := &staticTasks{}
		e := newEngine(src)
		assert.Empty(t, e.Scan(t0.Add(5*time.Second)))

		src.set(models.Task{ID: 1, Title: "late", RemindOn: at(7 * time.Second)})
		assert.Len(t, e.Scan(t0.Add(10*time.Second)), 1)
	})

	t.Run("通知コールバックが呼ばれる", func(t *testing.T) {
		src := &staticTasks{}
		src.set(models.Task{ID: 1, Title: "cb", RemindOn: at(time.Second)})
		var got []models.Notification
		e := newEngine(src, WithNotifyFunc(func(n models.Notification) { got = append(got, n) }))

		e.Scan(t0.Add(5 * time.Second))
		require.Len(t, got, 1)
		assert.Equal(t, 1, got[0].TaskID)
	})
}

func TestNotifications(t *testing.T) {
	src := &staticTasks{}
	src.set(
		models.Task{ID: 1, Title: "a", RemindOn: at(time.Second)},
		models.Task{ID: 2, Title: "b", RemindOn: at(2 * time.Second)},
	)
	e := newEngine(src)
	created := e.Scan(t0.Add(5 * time.Second))
	require.Len(t, created, 2)

	t.Run("既読にしても一覧に残る", func(t *testing.T) {
		assert.True(t, e.MarkAsRead(created[0].ID))
		assert.False(t, e.MarkAsRead("missing"))
		assert.Len(t, e.Notifications(), 2)
		assert.Equal(t, 1, e.UnreadCount())
	})

	t.Run("クリア後も過去のリマインドは再通知されない", func(t *testing.T) {
		e.ClearNotifications()
		assert.Empty(t, e.Notifications())
		assert.Empty(t, e.Scan(t0.Add(10*time.Second)))
	})

	t.Run("任意の通知を追加できる", func(t *testing.T) {
		n := e.AddNotification(2, "Custom", "hello")
		assert.Equal(t, []models.Notification{n}, e.Notifications())
		assert.Equal(t, 1, e.UnreadCount())
	})
}

func TestEngineStartStop(t *testing.T) {
	src := &staticTasks{}
	e := NewEngine(src, WithInterval(time.Second))
	require.NoError(t, e.Start(context.Background()))

	remind := time.Now().Add(200 * time.Millisecond)
	src.set(models.Task{ID: 1, Title: "live", RemindOn: &remind})

	assert.Eventually(t, func() bool { return len(e.Notifications()) == 1 }, 3*time.Second, 50*time.Millisecond)
	e.Stop()
}
