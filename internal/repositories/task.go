package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"calendar-todo/backend/internal/models"
)

// ErrTaskNotFound はタスクが存在しないか、他のユーザーのタスクである場合に返されます。
// 両者を区別しないことで他人のタスクの存在を漏らしません。
var ErrTaskNotFound = errors.New("task not found or unauthorized")

const taskColumns = "id, user_id, title, created_at, remind_on, is_important, is_completed"

// TaskRepository はtasksテーブルを操作します。すべてのクエリはuser_idで絞り込まれます。
type TaskRepository struct {
	DB *sql.DB
}

// NewTaskRepository は新しいTaskRepositoryインスタンスを作成します。
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var remindOn sql.NullTime
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.CreatedAt, &remindOn, &t.IsImportant, &t.IsCompleted); err != nil {
		return nil, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	if remindOn.Valid {
		r := remindOn.Time.UTC()
		t.RemindOn = &r
	}
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// FindByUserID はユーザーのタスクを日付順に取得します。
func (r *TaskRepository) FindByUserID(userID int) ([]*models.Task, error) {
	rows, err := r.DB.Query("SELECT "+taskColumns+" FROM tasks WHERE user_id = ? ORDER BY created_at, id", userID)
	if err != nil {
		log.Error().Err(err).Int("user_id", userID).Msg("Failed to query tasks")
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate tasks: %w", err)
	}
	return tasks, nil
}

// FindByID はユーザーが所有する指定IDのタスクを取得します。
func (r *TaskRepository) FindByID(id, userID int) (*models.Task, error) {
	return r.findByID(r.DB, id, userID)
}

type queryRower interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

func (r *TaskRepository) findByID(q queryRower, id, userID int) (*models.Task, error) {
	t, err := scanTask(q.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?", id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		log.Error().Err(err).Int("task_id", id).Int("user_id", userID).Msg("Failed to query task")
		return nil, fmt.Errorf("could not query task: %w", err)
	}
	return t, nil
}

// Create は新しいタスクを挿入します。
func (r *TaskRepository) Create(t *models.Task) (*models.Task, error) {
	result, err := r.DB.Exec(
		"INSERT INTO tasks (user_id, title, created_at, remind_on, is_important, is_completed) VALUES (?, ?, ?, ?, ?, ?)",
		t.UserID, t.Title, t.CreatedAt.UTC(), nullTime(t.RemindOn), t.IsImportant, t.IsCompleted,
	)
	if err != nil {
		log.Error().Err(err).Int("user_id", t.UserID).Msg("Failed to insert task")
		return nil, fmt.Errorf("could not insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("could not get last insert ID: %w", err)
	}
	return r.FindByID(int(id), t.UserID)
}

// Update はユーザーが所有するタスクに部分更新を適用し、更新後のタスクを返します。
func (r *TaskRepository) Update(id, userID int, upd models.UpdateTaskRequest) (*models.Task, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	t, err := r.findByID(tx, id, userID)
	if err != nil {
		return nil, err
	}
	upd.ApplyTo(t)

	_, err = tx.Exec(
		"UPDATE tasks SET title = ?, remind_on = ?, is_important = ?, is_completed = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?",
		t.Title, nullTime(t.RemindOn), t.IsImportant, t.IsCompleted, id, userID,
	)
	if err != nil {
		log.Error().Err(err).Int("task_id", id).Int("user_id", userID).Msg("Failed to update task")
		return nil, fmt.Errorf("could not update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit task update: %w", err)
	}
	return t, nil
}

// Delete はユーザーが所有するタスクを削除します。
func (r *TaskRepository) Delete(id, userID int) error {
	res, err := r.DB.Exec("DELETE FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		log.Error().Err(err).Int("task_id", id).Int("user_id", userID).Msg("Failed to delete task")
		return fmt.Errorf("could not delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get affected rows: %w", err)
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}
