package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/varkiosk/internal/domain/model"
)

func job(initials string) Job {
	return NewJob(context.Background(), model.ScoreEntry{Initials: initials, Accuracy: 50})
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if err := q.Enqueue(ctx, job("AAA")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	j := <-q.Dequeue(ctx)
	if j.Entry.Initials != "AAA" {
		t.Errorf("expected AAA, got %v", j.Entry.Initials)
	}
	if cap(j.Done) != 1 {
		t.Errorf("expected a buffered result channel, got cap %d", cap(j.Done))
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if q.Capacity() != 2 {
		t.Fatalf("expected capacity 2, got %d", q.Capacity())
	}
	for _, initials := range []string{"AAA", "BBB"} {
		if err := q.Enqueue(ctx, job(initials)); err != nil {
			t.Fatalf("expected enqueue to succeed, got %v", err)
		}
	}
	if err := q.Enqueue(ctx, job("CCC")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
}

func TestInMemoryQueue_CloseDrains(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	_ = q.Enqueue(ctx, job("AAA"))
	_ = q.Enqueue(ctx, job("BBB"))
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
	if !q.IsClosed() {
		t.Fatal("expected queue to be closed")
	}
	if err := q.Enqueue(ctx, job("CCC")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	var got []string
	for j := range q.Dequeue(ctx) {
		got = append(got, j.Entry.Initials)
	}
	if len(got) != 2 || got[0] != "AAA" || got[1] != "BBB" {
		t.Errorf("expected queued jobs in order, got %v", got)
	}
}

func TestInMemoryQueue_DequeueCancelled(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())

	j := job("AAA")
	_ = q.Enqueue(context.Background(), j)
	out := q.Dequeue(ctx)
	cancel()

	select {
	case err := <-j.Done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-out:
		// the job was handed over before cancellation was observed
	case <-time.After(time.Second):
		t.Fatal("dequeue did not react to cancellation")
	}
}

func TestJob_ClaimAbandon(t *testing.T) {
	claimed := job("AAA")
	if !claimed.Claim() {
		t.Fatal("expected a fresh job to be claimable")
	}
	if claimed.Abandon() {
		t.Error("expected abandon to fail once the job is claimed")
	}

	abandoned := job("BBB")
	if !abandoned.Abandon() {
		t.Fatal("expected a fresh job to be abandonable")
	}
	if abandoned.Claim() {
		t.Error("expected claim to fail once the job is abandoned")
	}
}
