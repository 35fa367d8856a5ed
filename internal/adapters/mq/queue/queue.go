// Package queue holds pending leaderboard writes in a bounded in-memory buffer.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/varkiosk/internal/domain/model"
	"github.com/okian/varkiosk/pkg/metrics"
)

const defaultCapacity = 1024

// Job is one pending leaderboard write. The consumer sends exactly one
// result on Done, which must be buffered.
type Job struct {
	Ctx      context.Context //nolint:containedctx // the submitter's context travels with the job
	Entry    model.ScoreEntry
	Enqueued time.Time
	Done     chan error

	state *atomic.Int32
}

const (
	jobPending int32 = iota
	jobClaimed
	jobAbandoned
)

// NewJob builds a job with a buffered result channel.
func NewJob(ctx context.Context, e model.ScoreEntry) Job {
	return Job{Ctx: ctx, Entry: e, Enqueued: time.Now(), Done: make(chan error, 1), state: new(atomic.Int32)}
}

// Claim marks the job as being applied. It fails once the submitter has
// abandoned the job.
func (j Job) Claim() bool {
	return j.state == nil || j.state.CompareAndSwap(jobPending, jobClaimed)
}

// Abandon withdraws a job that has not been claimed yet. It fails when the
// consumer already owns the job, in which case a result will arrive on Done.
func (j Job) Abandon() bool {
	return j.state == nil || j.state.CompareAndSwap(jobPending, jobAbandoned)
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. It returns ErrFull or ErrClosed without blocking.
	Enqueue(ctx context.Context, j Job) error

	// Dequeue returns a channel of jobs, closed after Close once drained.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the current number of queued jobs.
	Len(ctx context.Context) int

	// Close stops accepting jobs. Queued jobs remain readable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0, q.capacity)
	return q
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}

	select {
	case q.jobs <- j:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.jobs), q.capacity)
		return nil
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return ctx.Err()
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive jobs as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			select {
			case out <- j:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.jobs), q.capacity)
			case <-ctx.Done():
				j.Done <- ctx.Err()
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.jobs)
	metrics.UpdateQueueSize(size, q.capacity)
	return size
}

// Capacity returns the maximum number of queued jobs.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
