package models

import "time"

// Notification はリマインド時刻を過ぎたタスクから生成されるアプリ内通知です。
// サーバーには保存されません。
type Notification struct {
	ID        string    `json:"id"`
	TaskID    int       `json:"taskId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	IsRead    bool      `json:"isRead"`
}
