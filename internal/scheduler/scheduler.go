// Package scheduler は一定間隔でジョブを実行するループを提供します。
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Loop は interval ごとに job を実行します。前回の実行が終わっていなければその回はスキップします。
type Loop struct {
	name     string
	interval time.Duration
	job      func(now time.Time)

	mu      sync.Mutex
	cron    *cron.Cron
	stopCtx context.CancelFunc
}

// New は新しいLoopを作成します。interval は1秒単位に丸められます。
func New(name string, interval time.Duration, job func(now time.Time)) *Loop {
	return &Loop{name: name, interval: interval, job: job}
}

// Start はループを開始します。ctx がキャンセルされると停止します。二重に開始しても1つしか動きません。
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cron != nil {
		return nil
	}

	c := cron.New(cron.WithChain(cron.Recover(cronLogger{name: l.name}), cron.SkipIfStillRunning(cronLogger{name: l.name})))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", l.interval), func() { l.job(time.Now()) }); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", l.name, err)
	}
	c.Start()
	l.cron = c

	loopCtx, cancel := context.WithCancel(ctx)
	l.stopCtx = cancel
	go func() {
		<-loopCtx.Done()
		l.stopIf(c)
	}()

	log.Debug().Str("loop", l.name).Dur("interval", l.interval).Msg("Loop started")
	return nil
}

// Stop はループを停止し、実行中のジョブの完了を待ちます。
func (l *Loop) Stop() {
	l.stopIf(nil)
}

// stopIf は動作中のcronが want と同じ場合だけ停止します。want が nil なら常に停止します。
func (l *Loop) stopIf(want *cron.Cron) {
	l.mu.Lock()
	if want != nil && l.cron != want {
		l.mu.Unlock()
		return
	}
	c := l.cron
	cancel := l.stopCtx
	l.cron = nil
	l.stopCtx = nil
	l.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	log.Debug().Str("loop", l.name).Msg("Loop stopped")
}

// Running はループが動作中かを返します。
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cron != nil
}

// cronLogger はcronのログをzerologに流します。
type cronLogger struct {
	name string
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Str("loop", l.name).Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Str("loop", l.name).Fields(keysAndValues).Msg(msg)
}
