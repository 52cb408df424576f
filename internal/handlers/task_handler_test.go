package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendar-todo/backend/internal/models"
	"calendar-todo/backend/testutil"
)

var testDay = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func decodeTasks(t *testing.T, body []byte) []models.Task {
	t.Helper()
	var tasks []models.Task
	require.NoError(t, json.Unmarshal(body, &tasks))
	return tasks
}

func TestCreateTask(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	cookie, err := testutil.LoginAndGetCookie(t, r, testutil.NormalUsername, testutil.TestPassword)
	require.NoError(t, err)

	t.Run("タスクを作成できる", func(t *testing.T) {
		remind := testDay.Add(9 * time.Hour)
		resp := testutil.DoJSON(t, r, http.MethodPost, "/api/tasks", cookie, models.CreateTaskRequest{
			Title:       "Buy milk",
			CreatedAt:   testDay,
			RemindOn:    &remind,
			IsImportant: true,
		})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		var created models.Task
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
		assert.NotZero(t, created.ID)
		assert.Equal(t, "Buy milk", created.Title)
		assert.True(t, testDay.Equal(created.CreatedAt))
		require.NotNil(t, created.RemindOn)
		assert.True(t, remind.Equal(*created.RemindOn))
		assert.True(t, created.IsImportant)
		assert.False(t, created.IsCompleted)
		assert.Equal(t, 1, created.UserID)
	})

	t.Run("ブラウザ形式の日付と日時で作成できる", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodPost, "/api/tasks", cookie, map[string]interface{}{
			"title":       "a",
			"createdAt":   "2025-08-01",
			"remindOn":    "2025-08-01T09:30:00",
			"isImportant": false,
			"isCompleted": false,
		})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		var created models.Task
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
		assert.True(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC).Equal(created.CreatedAt))
		require.NotNil(t, created.RemindOn)
		assert.True(t, time.Date(2025, 8, 1, 9, 30, 0, 0, time.Local).Equal(*created.RemindOn))
	})

	t.Run("リマインド無しのブラウザ形式で作成できる", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodPost, "/api/tasks", cookie, map[string]interface{}{
			"title":     "a",
			"createdAt": "2025-08-01",
			"remindOn":  nil,
		})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		var created models.Task
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
		assert.Nil(t, created.RemindOn)
	})

	t.Run("解釈できない日付は400", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodPost, "/api/tasks", cookie, map[string]interface{}{"title": "a", "createdAt": "08/01/2025"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("タイトルが無い場合は400", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodPost, "/api/tasks", cookie, map[string]interface{}{"createdAt": testDay})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("日付が無い場合は400", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodPost, "/api/tasks", cookie, map[string]interface{}{"title": "no day"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("未認証の場合は401", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodPost, "/api/tasks", nil, models.CreateTaskRequest{Title: "x", CreatedAt: testDay})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.JSONEq(t, `{"error":"Not authenticated"}`, resp.Body.String())
	})

	t.Run("不正なトークンの場合は401", func(t *testing.T) {
		bad := &http.Cookie{Name: "token", Value: "not-a-jwt"}
		resp := testutil.DoJSON(t, r, http.MethodGet, "/api/tasks", bad, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.JSONEq(t, `{"error":"Invalid or expired token"}`, resp.Body.String())
	})
}

func TestTaskAuthorizationBoundary(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	owner, err := testutil.LoginAndGetCookie(t, r, testutil.NormalUsername, testutil.TestPassword)
	require.NoError(t, err)
	other, err := testutil.LoginAndGetCookie(t, r, testutil.OtherUsername, testutil.TestPassword)
	require.NoError(t, err)

	ownTask := testutil.CreateTestTask(t, r, owner, "owner task", testDay, nil)
	testutil.CreateTestTask(t, r, other, "other task", testDay, nil)

	t.Run("一覧には自分のタスクだけが含まれる", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodGet, "/api/tasks", other, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		tasks := decodeTasks(t, resp.Body.Bytes())
		require.Len(t, tasks, 1)
		assert.Equal(t, "other task", tasks[0].Title)
	})

	t.Run("他人のタスクは取得できない", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodGet, "/api/tasks/"+itoa(ownTask.ID), other, nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.JSONEq(t, `{"error":"Task not found or unauthorized"}`, resp.Body.String())
	})

	t.Run("他人のタスクは更新できない", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodPut, "/api/tasks/"+itoa(ownTask.ID), other, map[string]interface{}{"title": "hijacked", "isCompleted": true})
		assert.Equal(t, http.StatusNotFound, resp.Code)

		resp = testutil.DoJSON(t, r, http.MethodGet, "/api/tasks/"+itoa(ownTask.ID), owner, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		var got models.Task
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
		assert.Equal(t, "owner task", got.Title)
		assert.False(t, got.IsCompleted)
	})

	t.Run("他人のタスクは削除できず一覧も変わらない", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodDelete, "/api/tasks/"+itoa(ownTask.ID), other, nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)

		resp = testutil.DoJSON(t, r, http.MethodGet, "/api/tasks", owner, nil)
		tasks := decodeTasks(t, resp.Body.Bytes())
		require.Len(t, tasks, 1)
		assert.Equal(t, ownTask.ID, tasks[0].ID)
	})
}

func TestUpdateTask(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	cookie, err := testutil.LoginAndGetCookie(t, r, testutil.NormalUsername, testutil.TestPassword)
	require.NoError(t, err)

	remind := testDay.Add(8 * time.Hour)
	task := testutil.CreateTestTask(t, r, cookie, "write report", testDay, &remind)

	t.Run("完了にした直後の一覧に1件だけ反映される", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodPut, "/api/tasks/"+itoa(task.ID), cookie, map[string]interface{}{"isCompleted": true})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		resp = testutil.DoJSON(t, r, http.MethodGet, "/api/tasks", cookie, nil)
		tasks := decodeTasks(t, resp.Body.Bytes())
		require.Len(t, tasks, 1)
		assert.Equal(t, task.ID, tasks[0].ID)
		assert.True(t, tasks[0].IsCompleted)
	})

	t.Run("空のタイトルとnullのリマインドは無視される", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodPut, "/api/tasks/"+itoa(task.ID), cookie, map[string]interface{}{
			"title":       "",
			"remindOn":    nil,
			"isImportant": true,
		})
		require.Equal(t, http.StatusOK, resp.Code)

		var updated models.Task
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
		assert.Equal(t, "write report", updated.Title)
		require.NotNil(t, updated.RemindOn)
		assert.True(t, remind.Equal(*updated.RemindOn))
		assert.True(t, updated.IsImportant)
	})

	t.Run("存在しないIDは404", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodPut, "/api/tasks/9999", cookie, map[string]interface{}{"isCompleted": true})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("数値でないIDは400", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodPut, "/api/tasks/abc", cookie, map[string]interface{}{"isCompleted": true})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestDeleteTask(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	cookie, err := testutil.LoginAndGetCookie(t, r, testutil.NormalUsername, testutil.TestPassword)
	require.NoError(t, err)

	keep := testutil.CreateTestTask(t, r, cookie, "keep", testDay, nil)
	drop := testutil.CreateTestTask(t, r, cookie, "drop", testDay, nil)

	t.Run("削除に成功するとメッセージを返す", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodDelete, "/api/tasks/"+itoa(drop.ID), cookie, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, `{"message":"Task deleted successfully"}`, resp.Body.String())
	})

	t.Run("存在しないIDは404で一覧は変わらない", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodDelete, "/api/tasks/"+itoa(drop.ID), cookie, nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)

		resp = testutil.DoJSON(t, r, http.MethodGet, "/api/tasks", cookie, nil)
		tasks := decodeTasks(t, resp.Body.Bytes())
		require.Len(t, tasks, 1)
		assert.Equal(t, keep.ID, tasks[0].ID)
	})
}
