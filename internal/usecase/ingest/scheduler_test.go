package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(ctx context.Context) (Stats, error)

func (f runnerFunc) Ingest(ctx context.Context) (Stats, error) { return f(ctx) }

type recordingObserver struct {
	mu   sync.Mutex
	errs []error
}

func (o *recordingObserver) ObserveRun(_ Stats, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.errs)
}

func TestNewScheduler_Defaults(t *testing.T) {
	s := NewScheduler(runnerFunc(nil), SchedulerConfig{}, nil, nil)
	assert.Equal(t, DefaultSchedule, s.cfg.Schedule)
	assert.Equal(t, DefaultTimeout, s.cfg.Timeout)
	assert.Equal(t, DefaultTimezone, s.cfg.Timezone)
}

func TestScheduler_RunsImmediatelyOnStart(t *testing.T) {
	ran := make(chan struct{}, 1)
	s := NewScheduler(runnerFunc(func(context.Context) (Stats, error) {
		ran <- struct{}{}
		return Stats{Stored: 10}, nil
	}), SchedulerConfig{Schedule: "@every 1h"}, nil, nil)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("initial run did not happen")
	}
}

func TestScheduler_StartTwice(t *testing.T) {
	s := NewScheduler(runnerFunc(func(context.Context) (Stats, error) { return Stats{}, nil }),
		SchedulerConfig{Schedule: "@every 1h"}, nil, nil)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
}

func TestScheduler_InvalidConfig(t *testing.T) {
	s := NewScheduler(runnerFunc(nil), SchedulerConfig{Schedule: "whenever"}, nil, nil)
	assert.Error(t, s.Start(context.Background()))

	s = NewScheduler(runnerFunc(nil), SchedulerConfig{Timezone: "Nowhere/Land"}, nil, nil)
	assert.Error(t, s.Start(context.Background()))
}

func TestScheduler_SkipsOverlappingRun(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32

	s := NewScheduler(runnerFunc(func(context.Context) (Stats, error) {
		calls.Add(1)
		close(started)
		<-release
		return Stats{}, nil
	}), SchedulerConfig{}, nil, nil)
	s.baseCtx = context.Background()

	done := make(chan bool)
	go func() { done <- s.runOnce() }()
	<-started

	assert.False(t, s.runOnce(), "second run must be skipped while the first is in flight")

	close(release)
	assert.True(t, <-done)
	assert.Equal(t, int32(1), calls.Load())
}

func TestScheduler_RunHasTimeout(t *testing.T) {
	obs := &recordingObserver{}
	s := NewScheduler(runnerFunc(func(ctx context.Context) (Stats, error) {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		<-ctx.Done()
		return Stats{}, ctx.Err()
	}), SchedulerConfig{Timeout: 20 * time.Millisecond}, obs, nil)
	s.baseCtx = context.Background()

	assert.True(t, s.runOnce())
	require.Equal(t, 1, obs.count())
	assert.True(t, errors.Is(obs.errs[0], context.DeadlineExceeded))
}

func TestScheduler_StopCancelsInFlightRun(t *testing.T) {
	started := make(chan struct{})
	obs := &recordingObserver{}
	s := NewScheduler(runnerFunc(func(ctx context.Context) (Stats, error) {
		close(started)
		<-ctx.Done()
		return Stats{}, ctx.Err()
	}), SchedulerConfig{Schedule: "@every 1h", Timeout: time.Minute}, obs, nil)

	require.NoError(t, s.Start(context.Background()))
	<-started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	require.Equal(t, 1, obs.count())
	assert.True(t, errors.Is(obs.errs[0], context.Canceled))
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s := NewScheduler(runnerFunc(nil), SchedulerConfig{}, nil, nil)
	assert.NotPanics(t, s.Stop)
}
