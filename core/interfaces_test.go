package core

import (
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Test PanicHandler
// =============================================================================

// TestPanicHandler is a mock panic handler for testing
type TestPanicHandler struct {
	mu    sync.Mutex
	calls []PanicCall
}

type PanicCall struct {
	PoolName  string
	WorkerID  int
	TaskID    TaskID
	PanicInfo any
	HasStack  bool
}

func NewTestPanicHandler() *TestPanicHandler {
	return &TestPanicHandler{}
}

func (h *TestPanicHandler) HandlePanic(poolName string, workerID int, taskID TaskID, panicInfo any, stackTrace []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.calls = append(h.calls, PanicCall{
		PoolName:  poolName,
		WorkerID:  workerID,
		TaskID:    taskID,
		PanicInfo: panicInfo,
		HasStack:  len(stackTrace) > 0,
	})
}

func (h *TestPanicHandler) GetCalls() []PanicCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]PanicCall(nil), h.calls...)
}

func (h *TestPanicHandler) CallCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

func TestDefaultPanicHandler(t *testing.T) {
	// Given: A DefaultPanicHandler
	handler := &DefaultPanicHandler{}

	// When: HandlePanic is called
	handler.HandlePanic("test-pool", 1, 7, "test panic", []byte("stack trace"))

	// Then: No panic should occur (handler should not crash)
}

// =============================================================================
// Test Metrics
// =============================================================================

// TestMetrics records every call for later inspection
type TestMetrics struct {
	mu        sync.Mutex
	durations []DurationRecord
	panics    []any
	failures  []TaskPriority
	depths    []DepthRecord
	discards  map[string]int
}

type DurationRecord struct {
	PoolName string
	Priority TaskPriority
	Duration time.Duration
}

type DepthRecord struct {
	PoolName string
	Priority TaskPriority
	Depth    int
}

func NewTestMetrics() *TestMetrics {
	return &TestMetrics{discards: make(map[string]int)}
}

func (m *TestMetrics) RecordTaskDuration(poolName string, priority TaskPriority, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations = append(m.durations, DurationRecord{poolName, priority, duration})
}

func (m *TestMetrics) RecordTaskPanic(poolName string, panicInfo any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics = append(m.panics, panicInfo)
}

func (m *TestMetrics) RecordTaskFailed(poolName string, priority TaskPriority) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, priority)
}

func (m *TestMetrics) RecordQueueDepth(poolName string, priority TaskPriority, depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depths = append(m.depths, DepthRecord{poolName, priority, depth})
}

func (m *TestMetrics) RecordTasksDiscarded(poolName string, reason string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discards[reason] += count
}

func (m *TestMetrics) GetTaskDurations() []DurationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DurationRecord(nil), m.durations...)
}

func (m *TestMetrics) GetQueueDepths() []DepthRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DepthRecord(nil), m.depths...)
}

func (m *TestMetrics) PanicCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.panics)
}

func (m *TestMetrics) FailureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.failures)
}

func (m *TestMetrics) Discarded(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.discards[reason]
}

func TestNilMetrics(t *testing.T) {
	// Given: A NilMetrics
	metrics := &NilMetrics{}

	// When: All methods are called
	metrics.RecordTaskDuration("test-pool", TaskPriorityMedium, time.Second)
	metrics.RecordTaskPanic("test-pool", "panic")
	metrics.RecordTaskFailed("test-pool", TaskPriorityLow)
	metrics.RecordQueueDepth("test-pool", TaskPriorityHigh, 10)
	metrics.RecordTasksDiscarded("test-pool", "cleared", 3)

	// Then: No panic should occur (all methods are no-ops)
}

// =============================================================================
// Config
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	// Given: A default config
	cfg := DefaultConfig()

	// Then: Every handler is set and sizes match the documented defaults
	if cfg.Logger == nil || cfg.PanicHandler == nil || cfg.Metrics == nil {
		t.Fatal("DefaultConfig() left a handler nil")
	}
	if cfg.InitialResultCapacity != DefaultResultCapacity {
		t.Errorf("InitialResultCapacity = %d, want %d", cfg.InitialResultCapacity, DefaultResultCapacity)
	}
	if cfg.LaneReserve != [3]int{256, 512, 1024} {
		t.Errorf("LaneReserve = %v, want [256 512 1024]", cfg.LaneReserve)
	}
	if cfg.LockOSThread {
		t.Error("LockOSThread = true, want false")
	}
}

func TestConfig_PartialConfig(t *testing.T) {
	// Given: A config that only sets Metrics and LockOSThread
	metrics := NewTestMetrics()
	cfg := &Config{Metrics: metrics, LockOSThread: true}

	// When: Defaults are applied
	out := cfg.withDefaults()

	// Then: Provided fields are kept and the rest defaulted
	if out.Metrics != metrics {
		t.Error("Metrics was replaced")
	}
	if _, ok := out.Logger.(*DefaultLogger); !ok {
		t.Errorf("Logger = %T, want *DefaultLogger", out.Logger)
	}
	if _, ok := out.PanicHandler.(*DefaultPanicHandler); !ok {
		t.Errorf("PanicHandler = %T, want *DefaultPanicHandler", out.PanicHandler)
	}
	if out.InitialResultCapacity != DefaultResultCapacity {
		t.Errorf("InitialResultCapacity = %d, want %d", out.InitialResultCapacity, DefaultResultCapacity)
	}
	if !out.LockOSThread {
		t.Error("LockOSThread was dropped")
	}
}

func TestConfig_NilConfig(t *testing.T) {
	var cfg *Config
	out := cfg.withDefaults()
	if out.Logger == nil || out.PanicHandler == nil || out.Metrics == nil {
		t.Fatal("withDefaults() on nil config left a handler nil")
	}
}
