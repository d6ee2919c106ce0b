package taskengine

import (
	"context"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"

	"github.com/Swind/go-task-engine/core"
)

// Engine is the caller-facing entry point: it issues task identifiers and
// forwards everything else to its ThreadPool.
type Engine struct {
	_      [64]byte
	nextID atomix.Uint64
	_      [56]byte

	pool *ThreadPool
}

// NewEngine creates an engine with default handlers. Call Initialize and
// Start before expecting results.
func NewEngine(id string) *Engine {
	return NewEngineWithConfig(id, core.DefaultConfig())
}

// NewEngineWithConfig creates an engine whose pool uses config.
func NewEngineWithConfig(id string, config *core.Config) *Engine {
	return &Engine{pool: NewThreadPoolWithConfig(id, config)}
}

// Initialize fixes the worker count. See ThreadPool.Initialize.
func (e *Engine) Initialize(workers int) error {
	return e.pool.Initialize(workers)
}

// Start launches the workers.
func (e *Engine) Start() {
	e.pool.Start()
}

// Enqueue assigns the next identifier to task and queues it. Identifiers
// are strictly increasing, start at 1 and are never reused.
//
// A task is single-use: enqueuing one that was already submitted returns 0
// without issuing an identifier.
func (e *Engine) Enqueue(task *core.Task, priority core.TaskPriority) core.TaskID {
	if task == nil {
		task = core.NewTask(nil)
	}
	if !task.Claim() {
		e.pool.logger.Warn("task already submitted, ignored",
			core.F("pool", e.pool.id), core.F("task_id", task.ID()))
		return 0
	}
	id := core.TaskID(e.nextID.AddAcqRel(1))
	task.SetID(id)
	e.pool.Submit(task, priority)
	return id
}

// Submit queues fn and returns its identifier.
func (e *Engine) Submit(fn func() (any, error), priority core.TaskPriority) core.TaskID {
	return e.Enqueue(core.NewTask(fn), priority)
}

// GetResult returns the value of a finished task without blocking.
func (e *Engine) GetResult(id core.TaskID) (any, error) {
	return e.pool.Retrieve(id)
}

// Status reports the slot state of id.
func (e *Engine) Status(id core.TaskID) core.SlotState {
	return e.pool.Status(id)
}

func (e *Engine) Stop(mode core.StopMode) {
	e.pool.Stop(mode)
}

func (e *Engine) StopContext(ctx context.Context, mode core.StopMode) error {
	return e.pool.StopContext(ctx, mode)
}

func (e *Engine) Kill(mode core.StopMode) {
	e.pool.Kill(mode)
}

// ClearTasks drops every undispatched task and returns the count.
func (e *Engine) ClearTasks() int {
	return e.pool.ClearTasks()
}

// Close abandons queued work, lets running tasks finish and joins the
// workers.
func (e *Engine) Close() {
	e.pool.Kill(core.StopAfterCurrent)
}

// Pool exposes the underlying pool, e.g. for a SnapshotPoller.
func (e *Engine) Pool() *ThreadPool {
	return e.pool
}

// LastID returns the most recently issued identifier, 0 if none.
func (e *Engine) LastID() core.TaskID {
	return core.TaskID(e.nextID.LoadAcquire())
}

// =============================================================================
// Typed helpers
// =============================================================================

// Go submits a typed function.
func Go[T any](e *Engine, priority core.TaskPriority, fn func() T) core.TaskID {
	return e.Enqueue(core.Wrap(fn), priority)
}

// GoE submits a typed function that can fail.
func GoE[T any](e *Engine, priority core.TaskPriority, fn func() (T, error)) core.TaskID {
	return e.Enqueue(core.WrapE(fn), priority)
}

// ResultOf retrieves the value of id as T without blocking. A stored value of
// another type yields core.ErrResultType.
func ResultOf[T any](e *Engine, id core.TaskID) (T, error) {
	var zero T
	v, err := e.GetResult(id)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, core.ErrResultType
	}
	return typed, nil
}

// Await polls until id holds a value, the task fails or ctx ends.
// It returns core.ErrTaskFailed for a failed task and core.ErrTaskNotFound
// for an id that was never issued.
func Await[T any](ctx context.Context, e *Engine, id core.TaskID) (T, error) {
	var zero T
	backoff := iox.Backoff{}
	for {
		switch e.Status(id) {
		case core.SlotReady:
			return ResultOf[T](e, id)
		case core.SlotFailed:
			return zero, core.ErrTaskFailed
		case core.SlotAbsent:
			if id == 0 || id > e.LastID() {
				return zero, core.ErrTaskNotFound
			}
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		backoff.Wait()
	}
}

// =============================================================================
// Global Engine Helper (Singleton)
// =============================================================================

var (
	globalEngine *Engine
	globalMu     sync.Mutex
)

// InitGlobalEngine initializes and starts the global engine with the given
// worker count. Calling it again while an engine exists is a no-op.
func InitGlobalEngine(workers int) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalEngine != nil {
		return nil // Already initialized
	}

	e := NewEngine("global-engine")
	if err := e.Initialize(workers); err != nil {
		return err
	}
	e.Start()
	globalEngine = e
	return nil
}

// GetGlobalEngine returns the global engine instance.
// It panics if InitGlobalEngine has not been called.
func GetGlobalEngine() *Engine {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalEngine == nil {
		panic("GlobalEngine not initialized. Call InitGlobalEngine() first.")
	}
	return globalEngine
}

// ShutdownGlobalEngine drains the global engine and releases it.
func ShutdownGlobalEngine() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalEngine != nil {
		globalEngine.Kill(core.DrainAllQueued)
		globalEngine = nil
	}
}
