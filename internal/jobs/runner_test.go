package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerRunsTasks(t *testing.T) {
	r := NewRunner(2, 4, zerolog.Nop())
	var count atomic.Int32
	for i := 0; i < 4; i++ {
		require.NoError(t, r.Submit(func(context.Context) { count.Add(1) }))
	}
	require.NoError(t, r.Shutdown(context.Background()))
	assert.Equal(t, int32(4), count.Load())
}

func TestRunnerBackpressure(t *testing.T) {
	r := NewRunner(1, 1, zerolog.Nop())
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, r.Submit(func(context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, r.Submit(func(context.Context) {}))
	assert.ErrorIs(t, r.Submit(func(context.Context) {}), ErrQueueFull)

	close(release)
	require.NoError(t, r.Shutdown(context.Background()))
	assert.ErrorIs(t, r.Submit(func(context.Context) {}), ErrRunnerClosed)
}

func TestRunnerSurvivesPanics(t *testing.T) {
	r := NewRunner(1, 2, zerolog.Nop())
	var ran atomic.Bool
	require.NoError(t, r.Submit(func(context.Context) { panic("boom") }))
	require.NoError(t, r.Submit(func(context.Context) { ran.Store(true) }))
	require.NoError(t, r.Shutdown(context.Background()))
	assert.True(t, ran.Load())
}

func TestRunnerShutdownHonoursDeadline(t *testing.T) {
	r := NewRunner(1, 1, zerolog.Nop())
	release := make(chan struct{})
	defer close(release)
	require.NoError(t, r.Submit(func(context.Context) { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Shutdown(ctx), context.DeadlineExceeded)
}
