package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"calendar-todo/backend/internal/client"
	"calendar-todo/backend/internal/models"
	"calendar-todo/backend/internal/reminder"
	"calendar-todo/backend/internal/scheduler"
	"calendar-todo/backend/internal/session"
	"calendar-todo/backend/internal/taskstore"
)

var errNotLoggedIn = errors.New("not logged in (run `todo login`)")

// refreshInterval は watch 中にタスク一覧を取り直す間隔です。
const refreshInterval = 30 * time.Second

type app struct {
	out       io.Writer
	api       *client.Client
	sessions  *session.Manager
	tasks     *taskstore.Store
	tokenPath string
	loc       *time.Location
}

func newApp(opts globalOptions, out io.Writer) (*app, error) {
	api, err := client.New(opts.APIURL)
	if err != nil {
		return nil, err
	}
	a := &app{
		out:       out,
		api:       api,
		tokenPath: filepath.Join(opts.Dir, "token"),
		loc:       time.Local,
	}
	if data, err := os.ReadFile(a.tokenPath); err == nil {
		api.SetToken(strings.TrimSpace(string(data)))
	}
	a.sessions = session.NewManager(api, session.NewFileStore(filepath.Join(opts.Dir, "session.json")))
	a.tasks = taskstore.New(api, a.sessions)
	return a, nil
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register", "login":
		return a.cmdAuth(ctx, cmd, args)
	case "logout":
		return a.cmdLogout(ctx)
	case "whoami":
		return a.cmdWhoami(ctx)
	case "tasks":
		return a.cmdTasks(ctx, args)
	case "add":
		return a.cmdAdd(ctx, args)
	case "done", "important", "edit":
		return a.cmdUpdate(ctx, cmd, args)
	case "rm":
		return a.cmdRemove(ctx, args)
	case "stats":
		return a.cmdStats(ctx, args)
	case "watch":
		return a.cmdWatch(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// saveToken はクッキージャーのトークンをファイルに書き出します。トークンが無ければ削除します。
func (a *app) saveToken() error {
	token := a.api.Token()
	if token == "" {
		if err := os.Remove(a.tokenPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(a.tokenPath), 0o700); err != nil {
		return err
	}
	return os.WriteFile(a.tokenPath, []byte(token), 0o600)
}

// requireUser はセッションを復元し、タスク一覧を読み込みます。
func (a *app) requireUser(ctx context.Context) (*models.User, error) {
	if !a.sessions.Restore(ctx) {
		return nil, errNotLoggedIn
	}
	if err := a.saveToken(); err != nil {
		log.Warn().Err(err).Msg("Failed to persist token")
	}
	if err := a.tasks.FetchTasks(ctx); err != nil {
		return nil, errors.New(a.tasks.Err())
	}
	return a.sessions.CurrentUser(), nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (a *app) cmdAuth(ctx context.Context, cmd string, args []string) error {
	fs := newFlagSet(cmd)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password (env TODO_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv("TODO_PASSWORD")
	}
	if *username == "" || *password == "" {
		return errors.New("both -u and -p (or TODO_PASSWORD) are required")
	}

	var err error
	if cmd == "register" {
		err = a.sessions.Register(ctx, *username, *password)
	} else {
		err = a.sessions.Login(ctx, *username, *password)
	}
	if err != nil {
		return errors.New(a.sessions.Err())
	}
	if err := a.saveToken(); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	fmt.Fprintf(a.out, "logged in as %s\n", a.sessions.CurrentUser().Username)
	return nil
}

func (a *app) cmdLogout(ctx context.Context) error {
	err := a.sessions.Logout(ctx)
	a.tasks.Reset()
	// サーバーが応答しなくてもローカルのトークンは消す
	if rmErr := os.Remove(a.tokenPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return rmErr
	}
	if err != nil {
		fmt.Fprintln(a.out, "logged out locally:", a.sessions.Err())
		return nil
	}
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	if !a.sessions.Restore(ctx) {
		return errNotLoggedIn
	}
	u := a.sessions.CurrentUser()
	fmt.Fprintf(a.out, "%s (id %d)\n", u.Username, u.ID)
	return nil
}

func (a *app) parseDay(s string) (time.Time, error) {
	if s == "" {
		y, m, d := time.Now().In(a.loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, a.loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, a.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

// parseRemind は HH:MM を day の時刻として、それ以外は RFC 3339 として解釈します。
func (a *app) parseRemind(s string, day time.Time) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if hm, err := time.ParseInLocation("15:04", s, a.loc); err == nil {
		t := time.Date(day.Year(), day.Month(), day.Day(), hm.Hour(), hm.Minute(), 0, 0, a.loc)
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder time %q (want HH:MM or RFC 3339)", s)
	}
	return &t, nil
}

func (a *app) printTask(t models.Task) {
	mark := " "
	if t.IsCompleted {
		mark = "x"
	}
	star := " "
	if t.IsImportant {
		star = "*"
	}
	line := fmt.Sprintf("[%s]%s %4d  %s  %s", mark, star, t.ID, t.CreatedAt.In(a.loc).Format("2006-01-02"), t.Title)
	if t.RemindOn != nil {
		line += "  (remind " + t.RemindOn.In(a.loc).Format("2006-01-02 15:04") + ")"
	}
	fmt.Fprintln(a.out, line)
}

func (a *app) cmdTasks(ctx context.Context, args []string) error {
	fs := newFlagSet("tasks")
	dayStr := fs.String("day", "", "only tasks for this day (YYYY-MM-DD)")
	important := fs.Bool("important", false, "only important tasks")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	tasks := a.tasks.Tasks()
	if *dayStr != "" {
		day, err := a.parseDay(*dayStr)
		if err != nil {
			return err
		}
		tasks = a.tasks.TasksOn(day, a.loc)
	}
	if *important {
		var filtered []models.Task
		for _, t := range tasks {
			if t.IsImportant {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	if len(tasks) == 0 {
		fmt.Fprintln(a.out, "no tasks")
		return nil
	}
	for _, t := range tasks {
		a.printTask(t)
	}
	return nil
}

func (a *app) cmdAdd(ctx context.Context, args []string) error {
	fs := newFlagSet("add")
	title := fs.String("title", "", "task title")
	dayStr := fs.String("day", "", "day the task belongs to (default today)")
	remindStr := fs.String("remind", "", "reminder time (HH:MM or RFC 3339)")
	important := fs.Bool("important", false, "mark as important")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*title) == "" {
		return errors.New("-title is required")
	}
	day, err := a.parseDay(*dayStr)
	if err != nil {
		return err
	}
	remind, err := a.parseRemind(*remindStr, day)
	if err != nil {
		return err
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	created, err := a.tasks.CreateTask(ctx, models.CreateTaskRequest{
		Title:       *title,
		CreatedAt:   day,
		RemindOn:    remind,
		IsImportant: *important,
	})
	if err != nil {
		return errors.New(a.tasks.Err())
	}
	a.printTask(*created)
	return nil
}

func parseID(fs *flag.FlagSet) (int, error) {
	if fs.NArg() != 1 {
		return 0, errors.New("exactly one task ID is required")
	}
	id, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		return 0, fmt.Errorf("invalid task ID %q", fs.Arg(0))
	}
	return id, nil
}

func (a *app) cmdUpdate(ctx context.Context, cmd string, args []string) error {
	fs := newFlagSet(cmd)
	undo := fs.Bool("undo", false, "mark as not completed")
	off := fs.Bool("off", false, "unmark important")
	title := fs.String("title", "", "new title")
	remindStr := fs.String("remind", "", "new reminder time")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID(fs)
	if err != nil {
		return err
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	var upd models.UpdateTaskRequest
	switch cmd {
	case "done":
		completed := !*undo
		upd.IsCompleted = &completed
	case "important":
		important := !*off
		upd.IsImportant = &important
	case "edit":
		if *title != "" {
			upd.Title = title
		}
		if *remindStr != "" {
			day := time.Now().In(a.loc)
			for _, t := range a.tasks.Tasks() {
				if t.ID == id {
					day = t.CreatedAt.In(a.loc)
				}
			}
			remind, err := a.parseRemind(*remindStr, day)
			if err != nil {
				return err
			}
			upd.RemindOn = remind
		}
	}

	updated, err := a.tasks.UpdateTask(ctx, id, upd)
	if err != nil {
		if errors.Is(err, taskstore.ErrTaskNotCached) || errors.Is(err, client.ErrNotFound) {
			return fmt.Errorf("task %d not found", id)
		}
		return errors.New(a.tasks.Err())
	}
	a.printTask(*updated)
	return nil
}

func (a *app) cmdRemove(ctx context.Context, args []string) error {
	fs := newFlagSet("rm")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID(fs)
	if err != nil {
		return err
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}
	if err := a.tasks.DeleteTask(ctx, id); err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return fmt.Errorf("task %d not found", id)
		}
		return errors.New(a.tasks.Err())
	}
	fmt.Fprintf(a.out, "deleted task %d\n", id)
	return nil
}

func (a *app) cmdStats(ctx context.Context, args []string) error {
	fs := newFlagSet("stats")
	dayStr := fs.String("day", "", "only tasks for this day (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	tasks := a.tasks.Tasks()
	if *dayStr != "" {
		day, err := a.parseDay(*dayStr)
		if err != nil {
			return err
		}
		tasks = a.tasks.TasksOn(day, a.loc)
	}
	st := taskstore.Summarize(tasks)
	fmt.Fprintf(a.out, "to do: %d  completed: %d  important: %d\n", st.ToDo, st.Completed, st.Important)
	fmt.Fprintf(a.out, "%d%% - %s %s\n", st.Progress, st.Headline, st.Detail)
	return nil
}

// cmdWatch はタスク一覧を定期的に取り直しながら、リマインドを標準出力に流します。
func (a *app) cmdWatch(ctx context.Context) error {
	u, err := a.requireUser(ctx)
	if err != nil {
		return err
	}

	engine := reminder.NewEngine(a.tasks, reminder.WithLocation(a.loc), reminder.WithNotifyFunc(func(n models.Notification) {
		fmt.Fprintf(a.out, "%s  %s: %s\n", n.CreatedAt.Format("15:04:05"), n.Title, n.Message)
	}))
	refresh := scheduler.New("task-refresh", refreshInterval, func(time.Time) {
		if a.sessions.CurrentUser() == nil {
			return
		}
		rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		_ = a.tasks.FetchTasks(rctx)
	})

	stop, err := startLoops(ctx, a.sessions, engine, refresh)
	if err != nil {
		return err
	}
	defer stop()

	fmt.Fprintf(a.out, "watching reminders for %s (Ctrl-C to stop)\n", u.Username)
	<-ctx.Done()
	return nil
}

type loop interface {
	Start(ctx context.Context) error
	Stop()
}

// startLoops は loops を順に開始します。途中で失敗した場合は開始済みのものを止めてエラーを返します。
// 返す stop は開始と逆順に停止します。
func startLoops(ctx context.Context, loops ...loop) (func(), error) {
	var started []loop
	stop := func() {
		for i := len(started) - 1; i >= 0; i-- {
			started[i].Stop()
		}
	}
	for _, l := range loops {
		if err := l.Start(ctx); err != nil {
			stop()
			return nil, err
		}
		started = append(started, l)
	}
	return stop, nil
}
