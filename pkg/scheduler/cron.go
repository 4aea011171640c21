// Package scheduler runs periodic background jobs such as refreshing the
// published schema from the revision store.
package scheduler

import (
	"context"
	"time"

	"SearchMapper/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Job interface {
	Run(ctx context.Context) error
}

type FuncJob func(ctx context.Context) error

func (f FuncJob) Run(ctx context.Context) error { return f(ctx) }

// cronLogger routes cron's own messages to the zap logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Lg().Sugar().Debugw(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Lg().Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

type Cron struct {
	c      *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCron creates a scheduler. Jobs that panic are recovered and a job still
// running when its next tick arrives is skipped.
func NewCron(loc *time.Location) *Cron {
	if loc == nil {
		loc = time.Local
	}
	l := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	return &Cron{c: c, ctx: ctx, cancel: cancel}
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop cancels the context passed to running jobs and waits for them.
func (cr *Cron) Stop() {
	cr.cancel()
	<-cr.c.Stop().Done()
}

// Add schedules job under spec, e.g. "@every 30s" or "*/5 * * * *".
func (cr *Cron) Add(spec, name string, job Job) (cron.EntryID, error) {
	return cr.c.AddFunc(spec, func() {
		start := time.Now()
		if err := job.Run(cr.ctx); err != nil {
			logger.Warn("scheduled job failed", zap.String("job", name), zap.Error(err))
			return
		}
		logger.Debug("scheduled job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
	})
}

func (cr *Cron) Entries() []cron.Entry { return cr.c.Entries() }
