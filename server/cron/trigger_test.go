package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func noop(context.Context) error { return nil }

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{name: "daily at 2am", spec: "0 2 * * *"},
		{name: "every five minutes", spec: "*/5 * * * *"},
		{name: "every minute", spec: "* * * * *"},
		{name: "descriptor", spec: "@hourly"},
		{name: "interval", spec: "@every 30s"},
		{name: "empty", spec: "", wantErr: true},
		{name: "blank", spec: "   ", wantErr: true},
		{name: "wrong format", spec: "not a cron spec", wantErr: true},
		{name: "too few fields", spec: "0 2 *", wantErr: true},
		{name: "invalid value", spec: "60 2 * * *", wantErr: true},
		{name: "seconds field not accepted", spec: "0 0 2 * * *", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, err := ParseSchedule(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidCronSpec)
				assert.Nil(t, schedule)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, schedule)
		})
	}
}

func TestNewCronTrigger_InvalidSpec(t *testing.T) {
	trigger, err := NewCronTrigger("bogus", noop, testLogger)
	assert.ErrorIs(t, err, ErrInvalidCronSpec)
	assert.Nil(t, trigger)
}

func TestCronTrigger_NextRun(t *testing.T) {
	start := time.Date(2025, 3, 10, 1, 30, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)

	trigger, err := NewCronTrigger("0 2 * * *", noop, testLogger, WithClock(clock))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC), trigger.NextRun())
}

func TestCronTrigger_RunsOnSchedule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewFakeClockAt(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	ran := make(chan struct{}, 4)
	run := func(context.Context) error {
		ran <- struct{}{}
		return nil
	}

	trigger, err := NewCronTrigger("@every 1m", run, testLogger, WithClock(clock))
	require.NoError(t, err)
	trigger.Start(ctx)

	for i := 0; i < 2; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Minute)

		select {
		case <-ran:
		case <-time.After(time.Second):
			t.Fatalf("run %d did not happen", i+1)
		}
	}

	assert.Eventually(t, func() bool {
		return trigger.Status().Runs == 2
	}, time.Second, 10*time.Millisecond)

	status := trigger.Status()
	assert.Equal(t, "@every 1m", status.Schedule)
	assert.Empty(t, status.LastError)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 2, 0, 0, time.UTC), status.LastRun)
}

func TestCronTrigger_RecordsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewFakeClockAt(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	trigger, err := NewCronTrigger("@every 1m", func(context.Context) error {
		return errors.New("loading activities: connection refused")
	}, testLogger, WithClock(clock))
	require.NoError(t, err)
	trigger.Start(ctx)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)

	assert.Eventually(t, func() bool {
		return trigger.Status().LastError == "loading activities: connection refused"
	}, time.Second, 10*time.Millisecond)
}

func TestCronTrigger_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	clock := clockwork.NewFakeClockAt(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	ran := make(chan struct{}, 1)
	trigger, err := NewCronTrigger("@every 1m", func(context.Context) error {
		ran <- struct{}{}
		return nil
	}, testLogger, WithClock(clock))
	require.NoError(t, err)
	trigger.Start(ctx)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	cancel()

	// The loop exits and releases its timer.
	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 0))

	clock.Advance(time.Minute)
	select {
	case <-ran:
		t.Fatal("trigger ran after cancellation")
	case <-time.After(50 * time.Millisecond):
	}
}
