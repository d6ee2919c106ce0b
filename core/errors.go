package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when the worker count resolves to zero.
	// The pool stays unusable until Initialize succeeds.
	ErrNotInitialized = errors.New("task engine not initialized")

	// ErrTaskNotFound is returned when a result is not available: the id was
	// never issued, is beyond the known range, has not finished yet, or its
	// execution failed.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskFailed is returned by waiting accessors once a task's execution
	// has failed and its slot can never be filled.
	ErrTaskFailed = errors.New("task execution failed")

	// ErrTaskConsumed is returned when a task body is executed a second time.
	ErrTaskConsumed = errors.New("task already executed")

	// ErrResultType is returned by typed accessors when the stored value has
	// a different dynamic type.
	ErrResultType = errors.New("result has unexpected type")
)

// TaskError represents a failure that occurred while executing a task.
type TaskError struct {
	TaskID TaskID
	Err    error
}

// Error implements the error interface
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %d failed: %v", e.TaskID, e.Err)
}

// Unwrap returns the underlying error
func (e *TaskError) Unwrap() error {
	return e.Err
}

// NewTaskError creates a new TaskError
func NewTaskError(id TaskID, err error) error {
	return &TaskError{TaskID: id, Err: err}
}

// IsTaskError checks if an error is a TaskError
func IsTaskError(err error) bool {
	var taskErr *TaskError
	return errors.As(err, &taskErr)
}

// PanicError wraps a recovered panic value and its stack trace.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (p *PanicError) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}
