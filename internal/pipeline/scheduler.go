package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"ics2org/internal/ics"
	appLog "ics2org/internal/log"
	"ics2org/internal/org"
)

// Scheduler re-runs every job on a cron schedule. Runs never overlap: a
// tick that fires while the previous batch is still working is skipped.
type Scheduler struct {
	cron    *cron.Cron
	fetcher *ics.Fetcher
	jobs    []Job
	opts    org.Options

	mu   sync.Mutex
	last map[string]Result
}

// NewScheduler validates spec (standard five-field cron syntax or a
// descriptor like "@hourly") and prepares the schedule.
func NewScheduler(spec string, f *ics.Fetcher, jobs []Job, opts org.Options) (*Scheduler, error) {
	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		fetcher: f,
		jobs:    jobs,
		opts:    opts,
		last:    make(map[string]Result),
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce converts every job once and returns the number of failures.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	failures := 0
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return failures
		}
		res, err := Run(ctx, s.fetcher, job, s.opts)
		if err != nil {
			failures++
			appLog.Error("scheduled conversion failed", err, "id", job.Source.ID)
			continue
		}
		s.mu.Lock()
		s.last[job.Source.ID] = res
		s.mu.Unlock()
	}
	return failures
}

// Last returns the most recent successful result for a source ID.
func (s *Scheduler) Last(id string) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.last[id]
	return r, ok
}

// Start runs every job once and then starts the cron loop in the
// background.
func (s *Scheduler) Start(ctx context.Context) {
	appLog.Info("scheduler starting", "jobs", len(s.jobs))
	s.RunOnce(ctx)
	s.cron.Start()
}

// Stop stops the cron loop and waits for a running batch to finish or ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		appLog.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's internal logging through internal/log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
