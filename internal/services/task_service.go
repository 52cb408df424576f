package services

import (
	"errors"
	"strings"

	"calendar-todo/backend/internal/models"
	"calendar-todo/backend/internal/repositories"
)

// ErrInvalidTask は作成リクエストに必須項目が欠けている場合に返されます。
var ErrInvalidTask = errors.New("title and createdAt are required")

// TaskService はタスク関連のビジネスロジックを扱います。
type TaskService struct {
	taskRepo *repositories.TaskRepository
}

// NewTaskService は新しいTaskServiceを作成します。
func NewTaskService(taskRepo *repositories.TaskRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo}
}

// GetTasks はユーザーのタスクを取得します。
func (s *TaskService) GetTasks(userID int) ([]*models.Task, error) {
	return s.taskRepo.FindByUserID(userID)
}

// GetTask はユーザーが所有するタスクを取得します。
func (s *TaskService) GetTask(id, userID int) (*models.Task, error) {
	return s.taskRepo.FindByID(id, userID)
}

// CreateTask は新しいタスクを作成します。所有者は常に認証済みユーザーです。
func (s *TaskService) CreateTask(req models.CreateTaskRequest, userID int) (*models.Task, error) {
	if strings.TrimSpace(req.Title) == "" || req.CreatedAt.IsZero() {
		return nil, ErrInvalidTask
	}
	return s.taskRepo.Create(&models.Task{
		Title:       req.Title,
		CreatedAt:   req.CreatedAt,
		RemindOn:    req.RemindOn,
		IsImportant: req.IsImportant,
		IsCompleted: req.IsCompleted,
		UserID:      userID,
	})
}

// UpdateTask はユーザーが所有するタスクを部分更新します。
func (s *TaskService) UpdateTask(id int, upd models.UpdateTaskRequest, userID int) (*models.Task, error) {
	return s.taskRepo.Update(id, userID, upd)
}

// DeleteTask はユーザーが所有するタスクを削除します。
func (s *TaskService) DeleteTask(id, userID int) error {
	return s.taskRepo.Delete(id, userID)
}
