// Package cron re-runs a function on a cron schedule, used by the UI server
// to refresh the roster periodically.
//
// Example usage:
//
//	trigger, err := cron.NewCronTrigger("*/5 * * * *", ctrl.Refresh, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	trigger.Start(ctx)  // Returns immediately, runs in background
//	<-ctx.Done()        // Wait for shutdown signal
package cron

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

// ErrInvalidCronSpec is returned when the cron specification cannot be parsed.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

// parser accepts the standard five fields plus descriptors such as
// "@hourly" and "@every 10m".
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses spec. Errors wrap ErrInvalidCronSpec.
func ParseSchedule(spec string) (cron.Schedule, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, errors.Join(ErrInvalidCronSpec, errors.New("cron spec cannot be empty"))
	}
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronSpec, err)
	}
	return schedule, nil
}

// RunFunc is the work a trigger performs.
type RunFunc func(ctx context.Context) error

// Status describes a trigger's schedule and its most recent run.
type Status struct {
	Schedule  string    `json:"schedule"`
	NextRun   time.Time `json:"next_run"`
	LastRun   time.Time `json:"last_run,omitzero"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
}

// CronTrigger executes a RunFunc according to a cron schedule.
type CronTrigger struct {
	spec     string
	schedule cron.Schedule
	run      RunFunc
	logger   *slog.Logger
	clock    clockwork.Clock

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
	runs    int
}

// Option configures a CronTrigger.
type Option func(*CronTrigger)

// WithClock sets the clock the trigger waits on.
func WithClock(clock clockwork.Clock) Option {
	return func(ct *CronTrigger) {
		ct.clock = clock
	}
}

// NewCronTrigger creates a new CronTrigger with the given cron specification.
// Returns ErrInvalidCronSpec if the specification cannot be parsed.
func NewCronTrigger(spec string, run RunFunc, logger *slog.Logger, opts ...Option) (*CronTrigger, error) {
	schedule, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}

	ct := &CronTrigger{
		spec:     spec,
		schedule: schedule,
		run:      run,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(ct)
	}
	return ct, nil
}

// Start launches a goroutine that triggers runs according to the cron schedule.
// Returns immediately. The goroutine exits when ctx is cancelled.
func (ct *CronTrigger) Start(ctx context.Context) {
	go ct.loop(ctx)
}

// NextRun returns the next scheduled run time from now.
func (ct *CronTrigger) NextRun() time.Time {
	return ct.schedule.Next(ct.clock.Now())
}

// Status returns the trigger's schedule and last run.
func (ct *CronTrigger) Status() Status {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	s := Status{
		Schedule: ct.spec,
		NextRun:  ct.NextRun(),
		LastRun:  ct.lastRun,
		Runs:     ct.runs,
	}
	if ct.lastErr != nil {
		s.LastError = ct.lastErr.Error()
	}
	return s
}

func (ct *CronTrigger) loop(ctx context.Context) {
	for {
		nextRun := ct.schedule.Next(ct.clock.Now())
		waitDuration := nextRun.Sub(ct.clock.Now())

		ct.logger.Debug("waiting for next scheduled refresh",
			"next_run", nextRun,
			"wait_duration", waitDuration,
		)

		timer := ct.clock.NewTimer(waitDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			ct.logger.Info("cron trigger shutting down")
			return
		case <-timer.Chan():
			ct.executeRun(ctx)
		}
	}
}

func (ct *CronTrigger) executeRun(ctx context.Context) {
	ct.logger.Debug("starting scheduled refresh")

	err := ct.run(ctx)

	ct.mu.Lock()
	ct.lastRun = ct.clock.Now()
	ct.lastErr = err
	ct.runs++
	ct.mu.Unlock()

	if err != nil {
		ct.logger.Warn("scheduled refresh completed with error", "error", err)
	} else {
		ct.logger.Debug("scheduled refresh completed successfully")
	}
}
