package taskengine

import "github.com/Swind/go-task-engine/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the taskengine package for most use cases.

// Task is the single-use unit of work
type Task = core.Task

// TaskID identifies a submitted task
type TaskID = core.TaskID

// TaskPriority selects the lane a task is dispatched from
type TaskPriority = core.TaskPriority

// StopMode selects the shutdown protocol
type StopMode = core.StopMode

// SlotState describes a result slot
type SlotState = core.SlotState

// Config holds pool handlers and sizing
type Config = core.Config

// Priority constants
const (
	TaskPriorityLow    TaskPriority = core.TaskPriorityLow
	TaskPriorityMedium TaskPriority = core.TaskPriorityMedium
	TaskPriorityHigh   TaskPriority = core.TaskPriorityHigh
)

// Stop modes
const (
	StopAfterCurrent StopMode = core.StopAfterCurrent
	DrainAllQueued   StopMode = core.DrainAllQueued
)

// Slot states
const (
	SlotAbsent  SlotState = core.SlotAbsent
	SlotPending SlotState = core.SlotPending
	SlotReady   SlotState = core.SlotReady
	SlotFailed  SlotState = core.SlotFailed
)

// Errors
var (
	ErrNotInitialized = core.ErrNotInitialized
	ErrTaskNotFound   = core.ErrTaskNotFound
	ErrTaskFailed     = core.ErrTaskFailed
	ErrResultType     = core.ErrResultType
)

// DefaultConfig returns a config with default handlers
var DefaultConfig = core.DefaultConfig
