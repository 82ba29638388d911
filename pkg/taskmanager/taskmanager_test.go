package taskmanager_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"millionaire-bot/pkg/taskmanager"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSubmitTask_Runs(t *testing.T) {
	tm := taskmanager.New(taskmanager.Config{MaxTasks: 2}, zap.NewNop())
	var ran atomic.Int32

	for i := 0; i < 2; i++ {
		_, err := tm.SubmitTask("count", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tm.Shutdown(ctx))
	assert.Equal(t, int32(2), ran.Load())
	assert.Zero(t, tm.Active())
}

func TestSubmitTask_LimitRejects(t *testing.T) {
	tm := taskmanager.New(taskmanager.Config{MaxTasks: 1}, zap.NewNop())
	release := make(chan struct{})

	_, err := tm.SubmitTask("block", func(ctx context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	_, err = tm.SubmitTask("extra", func(ctx context.Context) error { return nil })
	assert.True(t, errors.Is(err, taskmanager.ErrTooManyTasks))

	close(release)
	require.NoError(t, tm.Shutdown(context.Background()))
}

func TestShutdown_RejectsNewTasks(t *testing.T) {
	tm := taskmanager.New(taskmanager.Config{}, zap.NewNop())
	require.NoError(t, tm.Shutdown(context.Background()))

	_, err := tm.SubmitTask("late", func(ctx context.Context) error { return nil })
	assert.True(t, errors.Is(err, taskmanager.ErrClosed))
	require.NoError(t, tm.Shutdown(context.Background()))
}

func TestShutdown_TimeoutCancelsTasks(t *testing.T) {
	tm := taskmanager.New(taskmanager.Config{MaxTasks: 1}, zap.NewNop())
	cancelled := make(chan struct{})

	_, err := tm.SubmitTask("slow", func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, tm.Shutdown(ctx))

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("задача не получила отмену контекста")
	}
}

func TestSubmitTask_PanicAndErrorDoNotLeak(t *testing.T) {
	tm := taskmanager.New(taskmanager.Config{MaxTasks: 2}, zap.NewNop())

	_, err := tm.SubmitTask("panic", func(ctx context.Context) error { panic("boom") })
	require.NoError(t, err)
	_, err = tm.SubmitTask("error", func(ctx context.Context) error { return errors.New("fail") })
	require.NoError(t, err)

	require.NoError(t, tm.Shutdown(context.Background()))
	assert.Zero(t, tm.Active())
}

func TestTaskTimeout(t *testing.T) {
	tm := taskmanager.New(taskmanager.Config{MaxTasks: 1, Timeout: 10 * time.Millisecond}, zap.NewNop())
	gotDeadline := make(chan bool, 1)

	_, err := tm.SubmitTask("deadline", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		gotDeadline <- ok
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, tm.Shutdown(context.Background()))
	assert.True(t, <-gotDeadline)
}
