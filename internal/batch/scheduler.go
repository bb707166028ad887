package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner is what the scheduler triggers. *Job implements it.
type Runner interface {
	Run(ctx context.Context, date time.Time) (Summary, error)
}

// Scheduler triggers a Runner on a cron schedule. Runs never overlap: a
// trigger that fires while the previous run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	loc    *time.Location
	log    *zap.Logger
	ctx    context.Context
}

// NewScheduler parses spec (standard five-field cron, or descriptors such
// as "@daily") in the given time zone.
func NewScheduler(spec string, loc *time.Location, runner Runner, log *zap.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{runner: runner, loc: loc, log: log}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log})),
	)
	if _, err := s.cron.AddFunc(spec, s.trigger); err != nil {
		return nil, fmt.Errorf("batch: invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the schedule until ctx is done, then waits for a running job
// to finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.Info("batch scheduled", zap.Time("next", e.Next))
	}
	<-ctx.Done()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) trigger() {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	sum, err := s.runner.Run(ctx, time.Now().In(s.loc))
	if err != nil {
		s.log.Error("batch run had failures", zap.String("run_id", sum.RunID), zap.Error(err))
	}
}

// cronLogger adapts zap to cron's logger interface.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug(msg, zap.Any("details", kv))
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error(msg, zap.Error(err), zap.Any("details", kv))
}
