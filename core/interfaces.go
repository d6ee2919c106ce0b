package core

import (
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution.
// This allows custom panic handling, logging, and recovery strategies.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - poolName: The name of the pool where the panic occurred
	// - workerID: The ID of the worker that was executing the task
	// - taskID: The ID of the panicked task; its result slot stays empty
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(poolName string, workerID int, taskID TaskID, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(poolName string, workerID int, taskID TaskID, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Worker %d @ %s] Task %d panic: %v\nStack trace:\n%s",
		workerID, poolName, taskID, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting task execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting task execution performance.
type Metrics interface {
	// RecordTaskDuration records how long a successful task took to execute.
	RecordTaskDuration(poolName string, priority TaskPriority, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(poolName string, panicInfo any)

	// RecordTaskFailed records that a task returned an error or panicked.
	RecordTaskFailed(poolName string, priority TaskPriority)

	// RecordQueueDepth records the current depth of one lane.
	RecordQueueDepth(poolName string, priority TaskPriority, depth int)

	// RecordTasksDiscarded records queued tasks dropped without running
	// (ClearTasks, StopAfterCurrent).
	RecordTasksDiscarded(poolName string, reason string, count int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskDuration(poolName string, priority TaskPriority, duration time.Duration) {
}
func (m *NilMetrics) RecordTaskPanic(poolName string, panicInfo any)                    {}
func (m *NilMetrics) RecordTaskFailed(poolName string, priority TaskPriority)           {}
func (m *NilMetrics) RecordQueueDepth(poolName string, priority TaskPriority, depth int) {}
func (m *NilMetrics) RecordTasksDiscarded(poolName string, reason string, count int)    {}

// =============================================================================
// Config: Configuration for TaskScheduler and ThreadPool
// =============================================================================

// Config holds configuration options for a pool.
// All handlers are optional; if not provided, default implementations will be used.
type Config struct {
	// Logger receives lifecycle and diagnostic messages. Defaults to DefaultLogger.
	Logger Logger

	// PanicHandler is called when a task panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics is called to record task execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// InitialResultCapacity is the number of result slots allocated up front.
	// Defaults to 1024.
	InitialResultCapacity int

	// LaneReserve pre-sizes the High, Medium and Low lanes at Initialize.
	// Defaults to 256, 512, 1024.
	LaneReserve [3]int

	// LockOSThread pins every worker goroutine to its own OS thread.
	LockOSThread bool
}

// DefaultConfig returns a config with default handlers.
func DefaultConfig() *Config {
	return &Config{
		Logger:                NewDefaultLogger(),
		PanicHandler:          &DefaultPanicHandler{},
		Metrics:               &NilMetrics{},
		InitialResultCapacity: DefaultResultCapacity,
		LaneReserve:           [3]int{256, 512, 1024},
	}
}

// withDefaults returns a copy of c with every unset field defaulted.
func (c *Config) withDefaults() Config {
	out := *DefaultConfig()
	if c == nil {
		return out
	}
	if c.Logger != nil {
		out.Logger = c.Logger
	}
	if c.PanicHandler != nil {
		out.PanicHandler = c.PanicHandler
	}
	if c.Metrics != nil {
		out.Metrics = c.Metrics
	}
	if c.InitialResultCapacity > 0 {
		out.InitialResultCapacity = c.InitialResultCapacity
	}
	if c.LaneReserve != [3]int{} {
		out.LaneReserve = c.LaneReserve
	}
	out.LockOSThread = c.LockOSThread
	return out
}
