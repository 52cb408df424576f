// Package client はタスクAPIのHTTPクライアントを提供します。
// セッションCookieはクッキージャーで保持します。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"calendar-todo/backend/internal/models"
)

const sessionCookieName = "token"

var (
	// ErrUnauthorized はセッションが無いか無効な場合です。
	ErrUnauthorized = errors.New("not authenticated")
	// ErrInvalidCredentials はログイン情報が一致しない場合です。
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUsernameTaken は登録しようとしたユーザー名が使用済みの場合です。
	ErrUsernameTaken = errors.New("username already exists")
	// ErrNotFound はタスクが存在しないか他人のものである場合です。
	ErrNotFound = errors.New("not found or unauthorized")
)

// APIError はAPIが返したエラーレスポンスです。
type APIError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api error: %d %s", e.StatusCode, e.Message)
}

// Unwrap により errors.Is(err, ErrNotFound) などで判定できます。
func (e *APIError) Unwrap() error { return e.kind }

// NewAPIError はステータスコードとメッセージからAPIErrorを作ります。
func NewAPIError(status int, msg string) *APIError {
	e := &APIError{StatusCode: status, Message: msg}
	switch {
	case status == http.StatusUnauthorized && msg == "Invalid credentials":
		e.kind = ErrInvalidCredentials
	case status == http.StatusUnauthorized:
		e.kind = ErrUnauthorized
	case status == http.StatusNotFound:
		e.kind = ErrNotFound
	case status == http.StatusBadRequest && msg == "Username already exists":
		e.kind = ErrUsernameTaken
	}
	return e
}

// Client はタスクAPIのクライアントです。
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// Option はClientの設定を変更します。
type Option func(*Client)

// WithHTTPClient は使用する http.Client を差し替えます。クッキージャーが無ければ追加します。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New は baseURL (例: http://localhost:8080) に対するクライアントを作成します。
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	c := &Client{baseURL: u, http: &http.Client{Timeout: 15 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Token は現在保持しているセッショントークンを返します。
func (c *Client) Token() string {
	for _, ck := range c.http.Jar.Cookies(c.baseURL) {
		if ck.Name == sessionCookieName {
			return ck.Value
		}
	}
	return ""
}

// SetToken は保存済みのセッショントークンをクッキージャーに戻します。
func (c *Client) SetToken(token string) {
	c.http.Jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:   sessionCookieName,
		Value:  token,
		Path:   "/",
		MaxAge: int(models.SessionDuration.Seconds()),
	}})
}

// Login はログインしてセッションCookieを受け取ります。
func (c *Client) Login(ctx context.Context, username, password string) (*models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodPost, "/api/auth/login", models.AuthRequest{Username: username, Password: password}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Register はユーザーを登録してセッションCookieを受け取ります。
func (c *Client) Register(ctx context.Context, username, password string) (*models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodPost, "/api/auth/register", models.AuthRequest{Username: username, Password: password}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout はサーバーにセッションCookieの削除を依頼します。
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me はCookieのセッションからユーザーを取得します。
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/user", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListTasks は自分のタスク一覧を取得します。
func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask はタスクを作成し、サーバーが採番したタスクを返します。
func (c *Client) CreateTask(ctx context.Context, req models.CreateTaskRequest) (*models.Task, error) {
	var t models.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask はタスクを部分更新し、更新後のタスクを返します。
func (c *Client) UpdateTask(ctx context.Context, id int, upd models.UpdateTaskRequest) (*models.Task, error) {
	var t models.Task
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+strconv.Itoa(id), upd, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask はタスクを削除します。
func (c *Client) DeleteTask(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+strconv.Itoa(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return NewAPIError(resp.StatusCode, payload.Error)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
