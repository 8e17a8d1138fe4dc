package revalidate

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsPeriodically(t *testing.T) {
	var runs atomic.Int32
	s, err := NewScheduler(func(context.Context) error {
		runs.Add(1)
		return nil
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	id, err := s.Schedule(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())

	after := runs.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")
}

func TestScheduler_FailuresKeepSchedule(t *testing.T) {
	var runs atomic.Int32
	s, err := NewScheduler(func(context.Context) error {
		runs.Add(1)
		return errors.New("content store down")
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	_, err = s.Schedule(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)

	s.Start()
	defer s.Stop() //nolint:errcheck
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_CanceledContextSkipsRuns(t *testing.T) {
	var runs atomic.Int32
	s, err := NewScheduler(func(context.Context) error {
		runs.Add(1)
		return nil
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Schedule(ctx, 10*time.Millisecond)
	require.NoError(t, err)

	s.Start()
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, s.Stop())
	assert.Zero(t, runs.Load())
}
