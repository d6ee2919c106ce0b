package core

const (
	defaultQueueCap     = 16
	compactMinCap       = 1024 // Don't compact if capacity is less than this
	compactShrinkFactor = 4    // Trigger compaction when len < cap/4

	laneCount = 3
)

// TaskQueue defines the operations the scheduler needs from a lane.
type TaskQueue interface {
	Push(t *Task)
	TryPop() (*Task, bool)
	Len() int
	IsEmpty() bool
	Clear() int
}

// =============================================================================
// Lane: unbounded FIFO ring buffer guarded by a SpinLock
// =============================================================================

// Lane is an unbounded FIFO of tasks. Push and TryPop are O(1) amortised;
// the ring doubles when full and halves when it drains well below a large
// capacity.
type Lane struct {
	lock  SpinLock
	buf   []*Task
	head  int
	count int
	floor int // capacity never shrinks below this (see Reserve)
}

func NewLane() *Lane {
	return &Lane{
		buf:   make([]*Task, defaultQueueCap),
		floor: defaultQueueCap,
	}
}

// Reserve grows the ring so that at least n tasks fit without reallocation
// and keeps compaction from shrinking below n.
func (q *Lane) Reserve(n int) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if n > q.floor {
		q.floor = n
	}
	if n > len(q.buf) {
		q.resizeLocked(n)
	}
}

func (q *Lane) Push(t *Task) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.count == len(q.buf) {
		q.resizeLocked(len(q.buf) * 2)
	}
	q.buf[(q.head+q.count)%len(q.buf)] = t
	q.count++
}

// TryPop removes and returns the oldest task. It never blocks on an empty
// lane; ok is false instead.
func (q *Lane) TryPop() (*Task, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.count == 0 {
		return nil, false
	}

	t := q.buf[q.head]
	// Zero out the slot to prevent holding the task after dispatch
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	q.maybeCompactLocked()

	return t, true
}

func (q *Lane) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.count
}

func (q *Lane) IsEmpty() bool {
	return q.Len() == 0
}

// Clear drops every queued task and returns how many were dropped.
func (q *Lane) Clear() int {
	q.lock.Lock()
	defer q.lock.Unlock()

	n := q.count
	// A fresh slice releases all task references at once
	q.buf = make([]*Task, max(q.floor, defaultQueueCap))
	q.head = 0
	q.count = 0
	return n
}

func (q *Lane) maybeCompactLocked() {
	c := len(q.buf)
	if c < compactMinCap || c <= q.floor {
		return
	}
	if q.count*compactShrinkFactor >= c {
		return
	}
	q.resizeLocked(max(c/2, q.floor, q.count))
}

func (q *Lane) resizeLocked(newCap int) {
	next := make([]*Task, newCap)
	for i := 0; i < q.count; i++ {
		next[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = next
	q.head = 0
}

// =============================================================================
// LaneSet: High / Medium / Low lanes dispatched in strict priority order
// =============================================================================

type LaneSet struct {
	lanes [laneCount]TaskQueue
}

func NewLaneSet() *LaneSet {
	s := &LaneSet{}
	for i := range s.lanes {
		s.lanes[i] = NewLane()
	}
	return s
}

// Lane returns the queue serving the given priority.
func (s *LaneSet) Lane(p TaskPriority) TaskQueue {
	return s.lanes[p.laneIndex()]
}

// Reserve pre-sizes the High, Medium and Low lanes.
func (s *LaneSet) Reserve(high, medium, low int) {
	for i, n := range [laneCount]int{high, medium, low} {
		if l, ok := s.lanes[i].(*Lane); ok && n > 0 {
			l.Reserve(n)
		}
	}
}

func (s *LaneSet) Push(t *Task, p TaskPriority) {
	s.lanes[p.laneIndex()].Push(t)
}

// TryPop tries High, then Medium, then Low. There is no fairness between
// lanes: a Low task only runs when both other lanes were empty.
func (s *LaneSet) TryPop() (*Task, TaskPriority, bool) {
	for i, q := range s.lanes {
		if t, ok := q.TryPop(); ok {
			return t, lanePriorities[i], true
		}
	}
	return nil, TaskPriorityLow, false
}

func (s *LaneSet) AllEmpty() bool {
	for _, q := range s.lanes {
		if !q.IsEmpty() {
			return false
		}
	}
	return true
}

// Clear empties every lane and returns the total number of dropped tasks.
func (s *LaneSet) Clear() int {
	n := 0
	for _, q := range s.lanes {
		n += q.Clear()
	}
	return n
}

// Depths returns the queued count per lane, indexed High, Medium, Low.
func (s *LaneSet) Depths() [laneCount]int {
	var d [laneCount]int
	for i, q := range s.lanes {
		d[i] = q.Len()
	}
	return d
}
