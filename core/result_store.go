package core

import (
	"math"
	"sync"
	"sync/atomic"
)

const (
	shardCount = 64 // must stay a power of two
	shardMask  = shardCount - 1

	// fibonacciMul is 2^64 / golden ratio, rounded to odd. Multiplying by it
	// scatters consecutive ids across shards.
	fibonacciMul = 11400714819323198485

	chunkShift = 10
	chunkSize  = 1 << chunkShift
	chunkMask  = chunkSize - 1

	DefaultResultCapacity = 1024
)

// SlotState describes what the store knows about a TaskID.
type SlotState uint8

const (
	// SlotAbsent: the id is beyond the known range or was never submitted.
	SlotAbsent SlotState = iota
	// SlotPending: submitted, no value yet.
	SlotPending
	// SlotReady: the value has been published and is immutable.
	SlotReady
	// SlotFailed: execution failed; the slot stays empty forever.
	SlotFailed
)

func (s SlotState) String() string {
	switch s {
	case SlotPending:
		return "pending"
	case SlotReady:
		return "ready"
	case SlotFailed:
		return "failed"
	default:
		return "absent"
	}
}

type resultSlot struct {
	state SlotState
	value any
}

type resultChunk [chunkSize]resultSlot

// ResultStore maps TaskIDs to result slots.
//
// Slots live in fixed-size chunks that are never moved once allocated; the
// chunk directory is replaced copy-on-write when the store grows. A reader
// holding only its shard lock therefore never observes a buffer that is
// being reallocated by a concurrent grow. Growth itself is serialised by
// growMu; per-slot reads and writes are serialised by the owning shard's
// SpinLock.
type ResultStore struct {
	shards [shardCount]SpinLock

	growMu   sync.Mutex
	chunks   atomic.Pointer[[]*resultChunk]
	capacity atomic.Uint64
}

// NewResultStore creates a store covering ids [0, initial).
func NewResultStore(initial int) *ResultStore {
	s := &ResultStore{}
	empty := make([]*resultChunk, 0)
	s.chunks.Store(&empty)
	if initial < 1 {
		initial = DefaultResultCapacity
	}
	s.EnsureCapacity(TaskID(initial - 1))
	return s
}

func shardOf(id TaskID) uint64 {
	return (uint64(id) * fibonacciMul) & shardMask
}

// Cap returns the number of addressable slots.
func (s *ResultStore) Cap() uint64 {
	return s.capacity.Load()
}

// EnsureCapacity grows the store so that id is addressable. The new
// capacity is max(2*cap, id+1). The largest TaskID is never addressable;
// it stays Absent.
func (s *ResultStore) EnsureCapacity(id TaskID) {
	if uint64(id) < s.capacity.Load() || uint64(id) == math.MaxUint64 {
		return
	}

	s.growMu.Lock()
	defer s.growMu.Unlock()

	cur := s.capacity.Load()
	if uint64(id) < cur {
		return
	}
	newCap := max(cur*2, uint64(id)+1)

	old := *s.chunks.Load()
	need := int((newCap + chunkSize - 1) >> chunkShift)
	if need > len(old) {
		next := make([]*resultChunk, need)
		copy(next, old)
		for i := len(old); i < need; i++ {
			next[i] = new(resultChunk)
		}
		s.chunks.Store(&next)
	}
	// Publish the capacity only after the chunks backing it are visible.
	s.capacity.Store(newCap)
}

// slot returns the slot for id, or nil when id is out of range.
func (s *ResultStore) slot(id TaskID) *resultSlot {
	if uint64(id) >= s.capacity.Load() {
		return nil
	}
	chunks := *s.chunks.Load()
	return &chunks[uint64(id)>>chunkShift][uint64(id)&chunkMask]
}

// MarkPending records that id has been submitted and awaits a value.
func (s *ResultStore) MarkPending(id TaskID) {
	s.EnsureCapacity(id)
	lock := &s.shards[shardOf(id)]
	lock.Lock()
	if sl := s.slot(id); sl != nil && sl.state == SlotAbsent {
		sl.state = SlotPending
	}
	lock.Unlock()
}

// Set publishes the computed value for id. A slot that is already Ready is
// left untouched; results are immutable once set.
func (s *ResultStore) Set(id TaskID, value any) {
	// Grow before taking the shard lock: the lock is not reentrant and
	// growth must never wait on a shard.
	s.EnsureCapacity(id)

	lock := &s.shards[shardOf(id)]
	lock.Lock()
	defer lock.Unlock()

	sl := s.slot(id)
	if sl == nil || sl.state == SlotReady {
		return
	}
	sl.value = value
	sl.state = SlotReady
}

// MarkFailed records that execution of id failed. The value stays absent.
func (s *ResultStore) MarkFailed(id TaskID) {
	s.EnsureCapacity(id)

	lock := &s.shards[shardOf(id)]
	lock.Lock()
	defer lock.Unlock()

	if sl := s.slot(id); sl != nil && sl.state != SlotReady {
		sl.state = SlotFailed
	}
}

// Get returns the value for id if it has been published. It never waits for
// a value to appear.
func (s *ResultStore) Get(id TaskID) (any, bool) {
	if uint64(id) >= s.capacity.Load() {
		return nil, false
	}

	lock := &s.shards[shardOf(id)]
	lock.Lock()
	defer lock.Unlock()

	sl := s.slot(id)
	if sl == nil || sl.state != SlotReady {
		return nil, false
	}
	return sl.value, true
}

// Status reports the slot state for id.
func (s *ResultStore) Status(id TaskID) SlotState {
	if uint64(id) >= s.capacity.Load() {
		return SlotAbsent
	}

	lock := &s.shards[shardOf(id)]
	lock.Lock()
	defer lock.Unlock()

	if sl := s.slot(id); sl != nil {
		return sl.state
	}
	return SlotAbsent
}
