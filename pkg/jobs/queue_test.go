package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		done <- job.ID
		return nil
	}, 1, 4, nil)
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "noop"}))

	select {
	case id := <-done:
		require.Equal(t, "job-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("job was never processed")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{}, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		done <- struct{}{}
		return nil
	}, 1, 4, nil)
	q.retryDelay = 10 * time.Millisecond
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "flaky"}))

	select {
	case <-done:
		require.EqualValues(t, 3, atomic.LoadInt32(&attempts))
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded after retries")
	}
}

func TestQueueStopDrainsBufferedJobs(t *testing.T) {
	var processed int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&processed, 1) == 1 {
			started <- struct{}{}
			<-release
		}
		return nil
	}, 1, 4, nil)

	// worker busy on the first job, two more buffered
	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	<-started
	require.NoError(t, q.Enqueue(Job{ID: "job-2"}))
	require.NoError(t, q.Enqueue(Job{ID: "job-3"}))

	close(release)
	q.Stop()

	require.EqualValues(t, 3, atomic.LoadInt32(&processed))
}

func TestQueueEnqueueAfterStop(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, 1, 4, nil)
	q.Stop()

	err := q.Enqueue(Job{ID: "job-1"})
	require.Error(t, err)
}

func TestQueueDropsOnFullBuffer(t *testing.T) {
	started := make(chan struct{}, 2)
	block := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-block
		return nil
	}, 1, 1, nil)
	defer func() {
		close(block)
		q.Stop()
	}()

	// first job occupies the worker, second fills the buffer
	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	<-started
	require.NoError(t, q.Enqueue(Job{ID: "job-2"}))

	err := q.Enqueue(Job{ID: "job-3"})
	require.Error(t, err)
}
