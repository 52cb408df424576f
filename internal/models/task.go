// Package models はAPIとクライアントで共有するデータ構造を定義します。
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Task はカレンダーの1日に紐づくユーザーのタスクです。
type Task struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	CreatedAt   time.Time  `json:"createdAt"` // タスクが属する日
	RemindOn    *time.Time `json:"remindOn"`  // リマインド時刻 (任意)
	IsImportant bool       `json:"isImportant"`
	IsCompleted bool       `json:"isCompleted"`
	UserID      int        `json:"userID"`
}

// CreateTaskRequest はタスク作成時のリクエストボディです。
type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	CreatedAt   time.Time  `json:"createdAt"`
	RemindOn    *time.Time `json:"remindOn"`
	IsImportant bool       `json:"isImportant"`
	IsCompleted bool       `json:"isCompleted"`
}

// UpdateTaskRequest はタスクの部分更新です。nil のフィールドは変更しません。
type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	RemindOn    *time.Time `json:"remindOn,omitempty"`
	IsImportant *bool      `json:"isImportant,omitempty"`
	IsCompleted *bool      `json:"isCompleted,omitempty"`
}

// 日付だけの値 (2006-01-02) はUTCの0時、オフセットの無い日時 (2006-01-02T15:04:05) は
// サーバーのローカル時刻として読みます。RFC 3339 の値はそのままです。
var clientTimeLayouts = []struct {
	layout string
	loc    *time.Location
}{
	{"2006-01-02", time.UTC},
	{"2006-01-02T15:04:05", nil},
	{"2006-01-02T15:04", nil},
}

// ParseClientTime はブラウザのクライアントが送る日付・日時の文字列を解釈します。
func ParseClientTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, l := range clientTimeLayouts {
		loc := l.loc
		if loc == nil {
			loc = time.Local
		}
		if t, err := time.ParseInLocation(l.layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

// parseOptionalTime は null と空文字を nil として扱います。
func parseOptionalTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := ParseClientTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UnmarshalJSON は createdAt と remindOn を ParseClientTime で読みます。
func (r *CreateTaskRequest) UnmarshalJSON(data []byte) error {
	type plain CreateTaskRequest
	aux := struct {
		*plain
		CreatedAt *string `json:"createdAt"`
		RemindOn  *string `json:"remindOn"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	createdAt, err := parseOptionalTime(aux.CreatedAt)
	if err != nil {
		return fmt.Errorf("createdAt: %w", err)
	}
	r.CreatedAt = time.Time{}
	if createdAt != nil {
		r.CreatedAt = *createdAt
	}
	if r.RemindOn, err = parseOptionalTime(aux.RemindOn); err != nil {
		return fmt.Errorf("remindOn: %w", err)
	}
	return nil
}

// UnmarshalJSON は remindOn を ParseClientTime で読みます。
func (u *UpdateTaskRequest) UnmarshalJSON(data []byte) error {
	type plain UpdateTaskRequest
	aux := struct {
		*plain
		RemindOn *string `json:"remindOn"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if u.RemindOn, err = parseOptionalTime(aux.RemindOn); err != nil {
		return fmt.Errorf("remindOn: %w", err)
	}
	return nil
}

// ApplyTo は部分更新を t に適用します。
// 空のタイトルと null のリマインド時刻は無視されます。
func (u UpdateTaskRequest) ApplyTo(t *Task) {
	if u.Title != nil && strings.TrimSpace(*u.Title) != "" {
		t.Title = *u.Title
	}
	if u.RemindOn != nil {
		remindOn := *u.RemindOn
		t.RemindOn = &remindOn
	}
	if u.IsImportant != nil {
		t.IsImportant = *u.IsImportant
	}
	if u.IsCompleted != nil {
		t.IsCompleted = *u.IsCompleted
	}
}

// Clone はRemindOnのポインタも含めてタスクを複製します。
func (t Task) Clone() Task {
	if t.RemindOn != nil {
		remindOn := *t.RemindOn
		t.RemindOn = &remindOn
	}
	return t
}

// SameDay は2つの時刻が loc 上で同じ暦日かどうかを返します。
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
