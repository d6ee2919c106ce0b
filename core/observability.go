package core

// PoolStats represents runtime observability state for a thread pool.
type PoolStats struct {
	ID      string
	Workers int
	Running bool

	// Queued tasks per lane.
	QueuedHigh   int
	QueuedMedium int
	QueuedLow    int

	// Active counts workers currently dispatching or executing a task.
	Active int

	Completed int64
	Failed    int64
	Discarded int64

	ResultCapacity uint64
}

// Queued returns the total number of tasks waiting in all lanes.
func (s PoolStats) Queued() int {
	return s.QueuedHigh + s.QueuedMedium + s.QueuedLow
}
