package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_AddRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(0, testLogger())
	err := s.Add("sweep", "every minute please", func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sweep")
}

func TestScheduler_RunNow(t *testing.T) {
	s := NewScheduler(time.Second, testLogger())

	var calls atomic.Int32
	var hadDeadline atomic.Bool
	s.RunNow("sweep", func(ctx context.Context) error {
		calls.Add(1)
		_, ok := ctx.Deadline()
		hadDeadline.Store(ok)
		return errors.New("inbox unreadable")
	})

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, hadDeadline.Load())
}

func TestScheduler_StopCancelsRunningJob(t *testing.T) {
	s := NewScheduler(0, testLogger())
	require.NoError(t, s.Add("sweep", "@every 1s", func(context.Context) error { return nil }))
	s.Start()

	started := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		s.RunNow("long", func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
		close(finished)
	}()

	<-started
	s.Stop()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("job still running after Stop")
	}
}
