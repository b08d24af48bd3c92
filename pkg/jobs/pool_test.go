package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	done := make(chan string, 1)
	pool := NewPool("test", func(ctx context.Context, task Task) error {
		done <- task.JobID
		return nil
	}, Config{Workers: 1, RetryBackoff: time.Millisecond})

	pool.Start(context.Background())
	defer pool.Stop()

	require.NoError(t, pool.Submit(Task{JobID: "job-1", Kind: "graduation_roster"}))

	select {
	case got := <-done:
		assert.Equal(t, "job-1", got)
	case <-time.After(time.Second):
		t.Fatal("task was not processed")
	}
}

func TestPoolSubmitBeforeStart(t *testing.T) {
	pool := NewPool("test", func(ctx context.Context, task Task) error { return nil }, Config{})
	err := pool.Submit(Task{JobID: "job-1"})
	require.Error(t, err)
}

func TestPoolRetriesUntilAttemptBudget(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	finished := make(chan struct{})
	pool := NewPool("test", func(ctx context.Context, task Task) error {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 3 {
			close(finished)
		}
		return errors.New("boom")
	}, Config{Workers: 1, MaxAttempts: 3, RetryBackoff: time.Millisecond})

	pool.Start(context.Background())
	defer pool.Stop()

	require.NoError(t, pool.Submit(Task{JobID: "job-1"}))

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("task retries never completed")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}
