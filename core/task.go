package core

import (
	"math"
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

// TaskID identifies a submitted unit of work. IDs start at 1; 0 is never
// issued and always reports not found.
type TaskID uint64

// =============================================================================
// TaskPriority: which lane a task is dispatched from
// =============================================================================

type TaskPriority int

const (
	// TaskPriorityLow: Lowest priority, drained only when High and Medium are empty
	TaskPriorityLow TaskPriority = iota

	// TaskPriorityMedium: Drained only when High is empty
	TaskPriorityMedium

	// TaskPriorityHigh: Highest priority
	// A continuously non-empty High lane starves the other lanes. This is
	// the intended policy, not a defect.
	TaskPriorityHigh
)

func (p TaskPriority) String() string {
	switch p {
	case TaskPriorityHigh:
		return "high"
	case TaskPriorityMedium:
		return "medium"
	case TaskPriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// laneIndex maps a priority to its slot in a LaneSet, highest first.
// Anything unrecognised lands in the Low lane.
func (p TaskPriority) laneIndex() int {
	switch p {
	case TaskPriorityHigh:
		return 0
	case TaskPriorityMedium:
		return 1
	default:
		return 2
	}
}

// lanePriorities lists priorities in dispatch order.
var lanePriorities = [laneCount]TaskPriority{TaskPriorityHigh, TaskPriorityMedium, TaskPriorityLow}

// =============================================================================
// StopMode: shutdown protocol selection
// =============================================================================

type StopMode int

const (
	// StopAfterCurrent lets running tasks finish and abandons everything still
	// queued. Abandoned tasks never produce a result.
	StopAfterCurrent StopMode = iota

	// DrainAllQueued blocks until every queued task has executed, then stops.
	DrainAllQueued
)

func (m StopMode) String() string {
	switch m {
	case StopAfterCurrent:
		return "stop-after-current"
	case DrainAllQueued:
		return "drain-all-queued"
	default:
		return "unknown"
	}
}

// =============================================================================
// Invocable / Task
// =============================================================================

// Invocable is a deferred, zero-argument computation yielding one opaque value.
type Invocable interface {
	Invoke() (any, error)
}

// Func adapts an ordinary function to Invocable.
type Func func() (any, error)

func (f Func) Invoke() (any, error) { return f() }

// Task is a single-use unit of work. It is handed over by pointer from the
// submitter to a lane and from the lane to exactly one worker; Execute runs
// the body at most once.
type Task struct {
	id   atomic.Uint64
	name string
	fn   Invocable
	used atomix.Uint64
}

// NewTask wraps fn into a Task. A nil fn yields a task producing a nil value.
func NewTask(fn func() (any, error)) *Task {
	if fn == nil {
		return &Task{}
	}
	return &Task{fn: Func(fn)}
}

// NewTaskFrom wraps an arbitrary Invocable.
func NewTaskFrom(inv Invocable) *Task {
	return &Task{fn: inv}
}

// Wrap packages a typed function into a Task whose value is the return value.
func Wrap[T any](fn func() T) *Task {
	return NewTask(func() (any, error) {
		return fn(), nil
	})
}

// WrapE is Wrap for functions that can fail. A non-nil error leaves the
// task's result slot permanently empty.
func WrapE[T any](fn func() (T, error)) *Task {
	return NewTask(func() (any, error) {
		v, err := fn()
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}

// Bind captures one argument now and calls fn with it at execution time.
func Bind[A, T any](fn func(A) T, a A) *Task {
	return Wrap(func() T { return fn(a) })
}

// Bind2 captures two arguments now and calls fn with them at execution time.
func Bind2[A, B, T any](fn func(A, B) T, a A, b B) *Task {
	return Wrap(func() T { return fn(a, b) })
}

// ID returns the identifier assigned at submission, 0 before that.
func (t *Task) ID() TaskID { return TaskID(t.id.Load()) }

// SetID assigns the task identifier. It must happen before the task is
// handed to a lane.
func (t *Task) SetID(id TaskID) { t.id.Store(uint64(id)) }

// claimedID marks a task whose identifier is being issued.
const claimedID = math.MaxUint64

// Claim reserves an unsubmitted task for exactly one submission. It
// reports false when t has already been claimed or given an id.
func (t *Task) Claim() bool {
	return t.id.CompareAndSwap(0, claimedID)
}

// Name returns the optional diagnostic name.
func (t *Task) Name() string { return t.name }

// Named sets a diagnostic name used in logs and returns the task.
func (t *Task) Named(name string) *Task {
	t.name = name
	return t
}

// Execute runs the task body. A second call returns ErrTaskConsumed without
// running anything. Panics are not recovered here; the worker loop owns that.
func (t *Task) Execute() (any, error) {
	if !t.used.CompareAndSwapAcqRel(0, 1) {
		return nil, ErrTaskConsumed
	}
	if t.fn == nil {
		return nil, nil
	}
	return t.fn.Invoke()
}
