package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueProcessesJobs(t *testing.T) {
	var count int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&count, 1)
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 8})

	q.Start(context.Background())
	for i := 0; i < 5; i++ {
		if err := q.Enqueue(Job{Type: "unit"}); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}
	q.Stop()

	if got := atomic.LoadInt32(&count); got != 5 {
		t.Fatalf("expected 5 processed jobs, got %d", got)
	}
}

func TestQueueDrainsBufferOnStop(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		seen = append(seen, job.ID)
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 16})

	q.Start(context.Background())
	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(Job{ID: id}); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("expected 3 drained jobs, got %d", len(seen))
	}
}

func TestQueueRejectsAfterStop(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	q.Start(context.Background())
	q.Stop()

	if err := q.Enqueue(Job{Type: "late"}); err == nil {
		t.Fatal("expected enqueue after stop to fail")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return context.DeadlineExceeded
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 10 * time.Millisecond})

	q.Start(context.Background())
	if err := q.Enqueue(Job{Type: "flaky"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried in time")
	}
	q.Stop()
}
