package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{Workers: 1})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "assignment.created"}))

	select {
	case job := <-done:
		require.Equal(t, "job-1", job.ID)
		require.False(t, job.Enqueued.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return fmt.Errorf("transient failure")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 10 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))

	select {
	case <-done:
		require.GreaterOrEqual(t, atomic.LoadInt32(&attempts), int32(2))
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
}

func TestQueueRejectsEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	require.Error(t, q.Enqueue(Job{ID: "job-1"}))
}
