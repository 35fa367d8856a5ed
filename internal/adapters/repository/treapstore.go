package repository

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/okian/varkiosk/internal/domain/model"
	"github.com/okian/varkiosk/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: accuracy DESC, then insertion sequence ASC.
// "less" means ranks earlier, so in-order traversal yields the leaderboard
// from best to worst. Node priorities are a hash of the sequence number.

// accuracyScale controls fixed-point scaling from float64.
const accuracyScale = 1_000_000_000

type accuracyFP int64

func toFixedPoint(x float64) accuracyFP {
	return accuracyFP(math.Round(x * accuracyScale))
}

type node struct {
	seq   int64
	acc   accuracyFP
	entry model.ScoreEntry
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aAcc, aSeq) should appear before (bAcc, bSeq).
func less(aAcc accuracyFP, aSeq int64, bAcc accuracyFP, bSeq int64) bool {
	if aAcc != bAcc {
		return aAcc > bAcc
	}
	return aSeq < bSeq
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// priority is splitmix64 of the sequence number.
func priority(seq int64) uint64 {
	z := uint64(seq) + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func insert(n, nn *node) *node {
	if n == nil {
		return nn
	}
	if less(nn.acc, nn.seq, n.acc, n.seq) {
		n.left = insert(n.left, nn)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, nn)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, Entry{
			Seq:       n.seq,
			Initials:  n.entry.Initials,
			Accuracy:  n.entry.Accuracy,
			Timestamp: n.entry.Timestamp,
		})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// TreapStore keeps the leaderboard in memory.
type TreapStore struct {
	mu     sync.RWMutex
	root   *node
	seq    int64
	closed bool
}

// NewTreapStore constructs an empty treap store.
func NewTreapStore() *TreapStore {
	metrics.UpdateRepositoryRecordsTotal(0)
	return &TreapStore{}
}

// Add implements Store.Add in O(log n) expected time.
func (s *TreapStore) Add(_ context.Context, e model.ScoreEntry) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryAddLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := ValidateEntry(e); err != nil {
		metrics.RecordErrorByComponent("repository", "invalid_entry")
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.seq++
	s.root = insert(s.root, &node{
		seq:   s.seq,
		acc:   toFixedPoint(e.Accuracy),
		entry: e,
		prio:  priority(s.seq),
		size:  1,
	})
	count := nsize(s.root)
	s.mu.Unlock()

	metrics.UpdateRepositoryRecordsTotal(count)
	return nil
}

// TopN returns the top N entries ordered by accuracy desc.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, nsize(s.root)))
	collectTopN(s.root, n, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the number of entries.
func (s *TreapStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return nsize(s.root), nil
}

// Close rejects further writes. Reads keep working.
func (s *TreapStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
