// todo はタスクAPIを操作するターミナルクライアントです。
//
//	todo [-api URL] [-dir DIR] <command> [flags]
//
// セッションとトークンは -dir (既定は ~/.config/calendar-todo) に保存されます。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"calendar-todo/backend/internal/logger"
)

const usage = `usage: todo [-api URL] [-dir DIR] <command> [flags]

commands:
  register -u NAME [-p PASS]     create an account and log in
  login -u NAME [-p PASS]        log in
  logout                         log out
  whoami                         show the current user
  tasks [-day DATE] [-important] list tasks
  add -title T [-day DATE] [-remind TIME] [-important]
  done [-undo] ID                mark a task completed
  important [-off] ID            mark a task important
  edit [-title T] [-remind TIME] ID
  rm ID                          delete a task
  stats [-day DATE]              show progress
  watch                          print reminders as they fire

DATE is YYYY-MM-DD. TIME is HH:MM on the task's day or RFC 3339.
`

// globalOptions はサブコマンド共通の設定です。
type globalOptions struct {
	APIURL string
	Dir    string
}

func parseGlobal(args []string, stderr io.Writer) (globalOptions, []string, error) {
	var opts globalOptions
	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	fs.StringVar(&opts.APIURL, "api", "", "API base URL (env TODO_API_URL)")
	fs.StringVar(&opts.Dir, "dir", "", "session directory (env TODO_SESSION_DIR)")
	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}

	// 環境変数にフォールバック
	if opts.APIURL == "" {
		opts.APIURL = os.Getenv("TODO_API_URL")
	}
	if opts.APIURL == "" {
		opts.APIURL = "http://localhost:8080"
	}
	if opts.Dir == "" {
		opts.Dir = os.Getenv("TODO_SESSION_DIR")
	}
	if opts.Dir == "" {
		cfgDir, err := os.UserConfigDir()
		if err != nil {
			return opts, nil, fmt.Errorf("cannot determine session directory: %w", err)
		}
		opts.Dir = filepath.Join(cfgDir, "calendar-todo")
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return opts, nil, errors.New("no command given")
	}
	return opts, fs.Args(), nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, rest, err := parseGlobal(args, stderr)
	if err != nil {
		return err
	}
	a, err := newApp(opts, stdout)
	if err != nil {
		return err
	}
	return a.dispatch(ctx, rest[0], rest[1:])
}

func main() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger.Init(level, true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
