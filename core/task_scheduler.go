package core

import (
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"code.hybscloud.com/atomix"
)

// TaskScheduler owns the priority lanes and the result store. Worker loops
// pull from it with GetWork and hand tasks back to Execute, which publishes
// the outcome into the store.
type TaskScheduler struct {
	name    string
	lanes   *LaneSet
	results *ResultStore
	signal  chan struct{}
	reserve [3]int

	// active counts workers between a pop attempt and the end of execution,
	// so "lanes empty and active == 0" means nothing is in flight. Drain
	// waiters read results after observing zero, so it must order with the
	// task's writes.
	active atomic.Int64

	completed atomix.Int64
	failed    atomix.Int64
	discarded atomix.Int64

	// Handlers and Metrics
	logger       Logger
	panicHandler PanicHandler
	metrics      Metrics
}

func NewTaskScheduler(name string) *TaskScheduler {
	return NewTaskSchedulerWithConfig(name, DefaultConfig())
}

func NewTaskSchedulerWithConfig(name string, config *Config) *TaskScheduler {
	cfg := config.withDefaults()
	return &TaskScheduler{
		name:    name,
		lanes:   NewLaneSet(),
		results: NewResultStore(cfg.InitialResultCapacity),
		// Wakeups are hints; any buffer size >= 1 is correct because a worker
		// re-checks every lane after each wakeup.
		signal:       make(chan struct{}, max(2*runtime.NumCPU(), 16)),
		reserve:      cfg.LaneReserve,
		logger:       cfg.Logger,
		panicHandler: cfg.PanicHandler,
		metrics:      cfg.Metrics,
	}
}

// Reserve pre-sizes the lanes with the configured reserve.
func (s *TaskScheduler) Reserve() {
	s.lanes.Reserve(s.reserve[0], s.reserve[1], s.reserve[2])
}

// Post makes room for the task's result, queues it in the lane matching
// priority and wakes one idle worker. It never rejects a task.
func (s *TaskScheduler) Post(task *Task, priority TaskPriority) {
	s.results.MarkPending(task.ID())
	lane := s.lanes.Lane(priority)
	lane.Push(task)
	s.metrics.RecordQueueDepth(s.name, priority, lane.Len())

	select {
	case s.signal <- struct{}{}:
	default:
		// Signal channel full: enough wakeups are already pending
	}
}

// GetWork (Called by Worker)
//
// Returns the next task in strict High > Medium > Low order, blocking while
// all lanes are empty. ok is false once stopCh is closed. A task popped after
// stop has been requested is discarded rather than dispatched.
func (s *TaskScheduler) GetWork(stopCh <-chan struct{}) (task *Task, priority TaskPriority, ok bool) {
	for {
		select {
		case <-stopCh:
			return nil, TaskPriorityLow, false
		default:
		}

		s.active.Add(1)
		if t, p, popped := s.lanes.TryPop(); popped {
			select {
			case <-stopCh:
				s.active.Add(-1)
				s.recordDiscarded("stopped", 1)
				return nil, TaskPriorityLow, false
			default:
			}
			return t, p, true
		}
		s.active.Add(-1)

		select {
		case <-s.signal:
			continue
		case <-stopCh:
			return nil, TaskPriorityLow, false
		}
	}
}

// Execute runs a task obtained from GetWork and publishes the outcome.
// A returned error or a panic is logged and leaves the result slot empty for
// good; the task is never retried and the worker keeps running.
func (s *TaskScheduler) Execute(workerID int, task *Task, priority TaskPriority) {
	defer s.active.Add(-1)

	start := time.Now()
	value, err := s.invoke(workerID, task)
	if err != nil {
		s.failed.AddAcqRel(1)
		s.results.MarkFailed(task.ID())
		s.metrics.RecordTaskFailed(s.name, priority)
		s.logger.Error("task execution failed",
			F("pool", s.name),
			F("worker", workerID),
			F("task_id", task.ID()),
			F("task", task.Name()),
			F("priority", priority),
			F("error", err))
		return
	}

	s.results.Set(task.ID(), value)
	s.completed.AddAcqRel(1)
	s.metrics.RecordTaskDuration(s.name, priority, time.Since(start))
}

func (s *TaskScheduler) invoke(workerID int, task *Task) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			s.panicHandler.HandlePanic(s.name, workerID, task.ID(), r, stack)
			s.metrics.RecordTaskPanic(s.name, r)
			value, err = nil, NewTaskError(task.ID(), &PanicError{Value: r, Stack: stack})
		}
	}()

	value, err = task.Execute()
	if err != nil {
		err = NewTaskError(task.ID(), err)
	}
	return value, err
}

// WakeAll nudges every idle worker so it re-checks the lanes.
func (s *TaskScheduler) WakeAll() {
	for i := 0; i < cap(s.signal); i++ {
		select {
		case s.signal <- struct{}{}:
		default:
			return
		}
	}
}

// Clear drops every queued task and returns how many were dropped.
func (s *TaskScheduler) Clear(reason string) int {
	n := s.lanes.Clear()
	if n > 0 {
		s.recordDiscarded(reason, n)
	}
	return n
}

func (s *TaskScheduler) recordDiscarded(reason string, n int) {
	s.discarded.AddAcqRel(int64(n))
	s.metrics.RecordTasksDiscarded(s.name, reason, n)
}

// Drained reports whether all lanes are empty and no worker is dispatching
// or executing.
func (s *TaskScheduler) Drained() bool {
	return s.lanes.AllEmpty() && s.active.Load() == 0
}

// Result returns the published value for id.
func (s *TaskScheduler) Result(id TaskID) (any, bool) {
	return s.results.Get(id)
}

// Status reports the result slot state for id.
func (s *TaskScheduler) Status(id TaskID) SlotState {
	return s.results.Status(id)
}

// ReportQueueDepths pushes the current depth of every lane to Metrics.
func (s *TaskScheduler) ReportQueueDepths() {
	d := s.lanes.Depths()
	for i, p := range lanePriorities {
		s.metrics.RecordQueueDepth(s.name, p, d[i])
	}
}

// Metrics
func (s *TaskScheduler) QueuedTaskCount() int {
	d := s.lanes.Depths()
	return d[0] + d[1] + d[2]
}
func (s *TaskScheduler) ActiveTaskCount() int      { return int(s.active.Load()) }
func (s *TaskScheduler) CompletedTaskCount() int64 { return s.completed.LoadAcquire() }
func (s *TaskScheduler) FailedTaskCount() int64    { return s.failed.LoadAcquire() }
func (s *TaskScheduler) DiscardedTaskCount() int64 { return s.discarded.LoadAcquire() }
func (s *TaskScheduler) ResultCapacity() uint64    { return s.results.Cap() }

// LaneDepths returns the queued count per lane, indexed High, Medium, Low.
func (s *TaskScheduler) LaneDepths() [3]int { return s.lanes.Depths() }

// GetLogger returns the logger for this scheduler
func (s *TaskScheduler) GetLogger() Logger {
	return s.logger
}

// GetMetrics returns the metrics collector for this scheduler
func (s *TaskScheduler) GetMetrics() Metrics {
	return s.metrics
}
