// Package worker applies leaderboard writes from a single goroutine.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/varkiosk/internal/adapters/mq/queue"
	"github.com/okian/varkiosk/internal/domain/model"
	"github.com/okian/varkiosk/pkg/logger"
	"github.com/okian/varkiosk/pkg/metrics"
)

// Appender stores one leaderboard entry.
type Appender interface {
	Add(ctx context.Context, e model.ScoreEntry) error
}

// Writer serializes leaderboard appends through a bounded queue. Add blocks
// until its write is applied, so callers see read-after-write consistency.
type Writer struct {
	queue queue.Queue
	store Appender
	name  string

	done    chan struct{}
	started atomic.Bool

	logger logger.Logger
}

// NewWriter creates a writer over q and store.
func NewWriter(q queue.Queue, store Appender, opts ...Option) *Writer {
	w := &Writer{
		queue: q,
		store: store,
		name:  "writer",
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Start runs the write loop in a goroutine. Only the first Start or Run takes effect.
func (w *Writer) Start(ctx context.Context) {
	if w.started.CompareAndSwap(false, true) {
		go w.run(ctx)
	}
}

// Run applies queued writes until the queue is closed and drained or ctx ends.
func (w *Writer) Run(ctx context.Context) {
	if w.started.CompareAndSwap(false, true) {
		w.run(ctx)
	}
}

func (w *Writer) run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			j.Done <- w.apply(j)
		}
	}
}

func (w *Writer) apply(j queue.Job) error {
	defer func() {
		metrics.RecordWriterLatency(float64(time.Since(j.Enqueued).Microseconds()) / 1000)
	}()

	if !j.Claim() {
		return j.Ctx.Err()
	}
	if err := j.Ctx.Err(); err != nil {
		return err
	}
	if err := w.store.Add(j.Ctx, j.Entry); err != nil {
		metrics.RecordLeaderboardError()
		metrics.RecordErrorByComponent("writer", "store_error")
		w.logger.Error(j.Ctx, "leaderboard write failed",
			logger.String("initials", j.Entry.Initials),
			logger.Float64("accuracy", j.Entry.Accuracy),
			logger.Error(err),
		)
		return err
	}
	return nil
}

// Add enqueues e and waits for the write. A full queue returns ErrBackpressure
// and a closed one ErrStopped. When ctx ends before the writer picks the entry
// up, the entry is dropped and ctx.Err is returned; once the write has begun
// Add waits for its result.
func (w *Writer) Add(ctx context.Context, e model.ScoreEntry) error {
	j := queue.NewJob(ctx, e)
	if err := w.queue.Enqueue(ctx, j); err != nil {
		switch {
		case errors.Is(err, queue.ErrFull):
			return fmt.Errorf("%w: %w", ErrBackpressure, err)
		case errors.Is(err, queue.ErrClosed):
			return fmt.Errorf("%w: %w", ErrStopped, err)
		default:
			return err
		}
	}

	select {
	case err := <-j.Done:
		return err
	case <-ctx.Done():
		if j.Abandon() {
			return ctx.Err()
		}
		// Already being written; report the outcome.
		return <-j.Done
	case <-w.done:
		// The loop may have applied the job just before exiting.
		select {
		case err := <-j.Done:
			return err
		default:
			return ErrStopped
		}
	}
}

// Shutdown closes the queue and waits for queued writes to finish.
func (w *Writer) Shutdown(ctx context.Context) error {
	if err := w.queue.Close(); err != nil {
		w.logger.Error(ctx, "error closing queue", logger.Error(err))
	}
	if !w.started.Load() {
		return nil
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
