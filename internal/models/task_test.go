package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestUpdateTaskRequestApplyTo(t *testing.T) {
	remind := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	base := Task{ID: 1, Title: "original", CreatedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), UserID: 7}

	t.Run("指定したフィールドだけ更新される", func(t *testing.T) {
		task := base.Clone()
		UpdateTaskRequest{IsCompleted: boolPtr(true)}.ApplyTo(&task)

		assert.True(t, task.IsCompleted)
		assert.False(t, task.IsImportant)
		assert.Equal(t, "original", task.Title)
		assert.Nil(t, task.RemindOn)
	})

	t.Run("空のタイトルは無視される", func(t *testing.T) {
		task := base.Clone()
		UpdateTaskRequest{Title: strPtr("  ")}.ApplyTo(&task)
		assert.Equal(t, "original", task.Title)
	})

	t.Run("全フィールドを更新できる", func(t *testing.T) {
		task := base.Clone()
		UpdateTaskRequest{
			Title:       strPtr("renamed"),
			RemindOn:    &remind,
			IsImportant: boolPtr(true),
			IsCompleted: boolPtr(true),
		}.ApplyTo(&task)

		assert.Equal(t, "renamed", task.Title)
		assert.True(t, remind.Equal(*task.RemindOn))
		assert.True(t, task.IsImportant)
		assert.True(t, task.IsCompleted)
		assert.Equal(t, 7, task.UserID)
	})
}

func TestTaskClone(t *testing.T) {
	remind := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	original := Task{ID: 1, RemindOn: &remind}

	clone := original.Clone()
	*clone.RemindOn = clone.RemindOn.Add(time.Hour)

	assert.True(t, remind.Equal(*original.RemindOn), "複製を変更しても元のタスクは変わらない")
}

func TestSameDay(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	a := time.Date(2025, 1, 1, 16, 0, 0, 0, time.UTC) // JSTでは1/2 01:00
	b := time.Date(2025, 1, 2, 10, 0, 0, 0, tokyo)

	assert.True(t, SameDay(a, b, tokyo))
	assert.False(t, SameDay(a, b, time.UTC))
}

func TestSessionExpired(t *testing.T) {
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := Session{User: User{ID: 1, Username: "alice"}, IssuedAt: issued}

	assert.False(t, s.Expired(issued.Add(SessionDuration)))
	assert.True(t, s.Expired(issued.Add(SessionDuration+time.Second)))
}

func TestParseClientTime(t *testing.T) {
	t.Run("日付だけならUTCの0時", func(t *testing.T) {
		got, err := ParseClientTime("2025-08-01")
		require.NoError(t, err)
		assert.True(t, got.Equal(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("オフセットの無い日時はローカル時刻", func(t *testing.T) {
		got, err := ParseClientTime("2025-08-01T09:30:00")
		require.NoError(t, err)
		assert.True(t, got.Equal(time.Date(2025, 8, 1, 9, 30, 0, 0, time.Local)))
	})

	t.Run("RFC 3339はオフセットを保つ", func(t *testing.T) {
		got, err := ParseClientTime("2025-08-01T09:30:00+09:00")
		require.NoError(t, err)
		assert.True(t, got.Equal(time.Date(2025, 8, 1, 0, 30, 0, 0, time.UTC)))
	})

	t.Run("解釈できない値はエラー", func(t *testing.T) {
		_, err := ParseClientTime("08/01/2025")
		assert.Error(t, err)
	})
}

func TestCreateTaskRequestUnmarshalJSON(t *testing.T) {
	var req CreateTaskRequest
	err := json.Unmarshal([]byte(`{"title":"a","createdAt":"2025-08-01","remindOn":"2025-08-01T09:30:00","isImportant":true,"isCompleted":false}`), &req)
	require.NoError(t, err)
	assert.Equal(t, "a", req.Title)
	assert.True(t, req.IsImportant)
	assert.True(t, req.CreatedAt.Equal(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, req.RemindOn)
	assert.True(t, req.RemindOn.Equal(time.Date(2025, 8, 1, 9, 30, 0, 0, time.Local)))

	req = CreateTaskRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"title":"a","createdAt":"2025-08-01","remindOn":null}`), &req))
	assert.Nil(t, req.RemindOn)

	assert.Error(t, json.Unmarshal([]byte(`{"title":"a","createdAt":"tomorrow"}`), &req))
}

func TestUpdateTaskRequestUnmarshalJSON(t *testing.T) {
	var upd UpdateTaskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"b","remindOn":"2025-08-02T18:00:00","isCompleted":true}`), &upd))
	require.NotNil(t, upd.Title)
	assert.Equal(t, "b", *upd.Title)
	require.NotNil(t, upd.IsCompleted)
	assert.True(t, *upd.IsCompleted)
	assert.Nil(t, upd.IsImportant)
	require.NotNil(t, upd.RemindOn)
	assert.True(t, upd.RemindOn.Equal(time.Date(2025, 8, 2, 18, 0, 0, 0, time.Local)))

	upd = UpdateTaskRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"isImportant":false}`), &upd))
	assert.Nil(t, upd.RemindOn)
	require.NotNil(t, upd.IsImportant)
	assert.False(t, *upd.IsImportant)
}
