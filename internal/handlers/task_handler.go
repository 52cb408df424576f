package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"calendar-todo/backend/internal/models"
	"calendar-todo/backend/internal/repositories"
	"calendar-todo/backend/internal/services"
)

// TaskHandler はタスク関連のハンドラーを管理します。
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler は新しいTaskHandlerを作成します。
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func parseTaskID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return 0, false
	}
	return id, true
}

func respondTaskError(c *gin.Context, err error, msg string) {
	if errors.Is(err, repositories.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found or unauthorized"})
		return
	}
	log.Error().Err(err).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// GetTasksHandler は認証済みユーザーのタスク一覧を返します。
func (h *TaskHandler) GetTasksHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	tasks, err := h.taskService.GetTasks(userID)
	if err != nil {
		respondTaskError(c, err, "Failed to fetch tasks")
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GetTaskHandler は指定IDのタスクを返します。
func (h *TaskHandler) GetTaskHandler(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	task, err := h.taskService.GetTask(id, userID)
	if err != nil {
		respondTaskError(c, err, "Failed to fetch task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// CreateTaskHandler は新しいタスクを作成します。
func (h *TaskHandler) CreateTaskHandler(c *gin.Context) {
	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	task, err := h.taskService.CreateTask(req, userID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTask) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
			return
		}
		respondTaskError(c, err, "Failed to create task")
		return
	}
	c.JSON(http.StatusCreated, task)
}

// UpdateTaskHandler はタスクを部分更新し、更新後のタスクを返します。
func (h *TaskHandler) UpdateTaskHandler(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	var req models.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	task, err := h.taskService.UpdateTask(id, req, userID)
	if err != nil {
		respondTaskError(c, err, "Failed to update task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTaskHandler はタスクを削除します。
func (h *TaskHandler) DeleteTaskHandler(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(id, userID); err != nil {
		respondTaskError(c, err, "Failed to delete task")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}
