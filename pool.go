package taskengine

import (
	"context"
	"runtime"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"golang.org/x/sync/errgroup"

	"github.com/Swind/go-task-engine/core"
)

// AutoWorkers asks Initialize to start one worker per logical CPU.
const AutoWorkers = -1

// hardwareConcurrency is swapped out by tests to simulate a host reporting
// zero CPUs.
var hardwareConcurrency = runtime.NumCPU

// ThreadPool manages a fixed set of worker goroutines that pull tasks from
// the scheduler's priority lanes and publish results into its result store.
type ThreadPool struct {
	id           string
	scheduler    *core.TaskScheduler
	logger       core.Logger
	lockOSThread bool

	// live counts worker goroutines that have not returned yet.
	live atomix.Int64

	mu          sync.Mutex
	workers     int
	initialized bool
	group       *errgroup.Group
	cancel      context.CancelFunc
}

// NewThreadPool creates a pool with default handlers.
func NewThreadPool(id string) *ThreadPool {
	return NewThreadPoolWithConfig(id, core.DefaultConfig())
}

// NewThreadPoolWithConfig creates a pool with custom handlers. Nil fields in
// config fall back to defaults.
func NewThreadPoolWithConfig(id string, config *core.Config) *ThreadPool {
	scheduler := core.NewTaskSchedulerWithConfig(id, config)
	p := &ThreadPool{
		id:        id,
		scheduler: scheduler,
		logger:    scheduler.GetLogger(),
	}
	if config != nil {
		p.lockOSThread = config.LockOSThread
	}
	return p
}

// Initialize fixes the worker count and pre-reserves lane and result
// capacity. workers == AutoWorkers uses runtime.NumCPU(). A count that
// resolves to zero returns core.ErrNotInitialized and leaves the pool
// unusable until Initialize succeeds. Must be called before Start; it has no
// effect on workers that are already running.
func (p *ThreadPool) Initialize(workers int) error {
	if workers < 0 {
		workers = hardwareConcurrency()
	}
	if workers <= 0 {
		p.logger.Error("initialize failed: worker count resolved to zero", core.F("pool", p.id))
		return core.ErrNotInitialized
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.live.LoadAcquire() > 0 {
		p.logger.Warn("initialize ignored while workers are running",
			core.F("pool", p.id), core.F("workers", p.workers))
		return nil
	}

	p.workers = workers
	p.initialized = true
	p.scheduler.Reserve()
	p.logger.Info("pool initialized", core.F("pool", p.id), core.F("workers", workers))
	return nil
}

// Submit queues a task whose ID has already been assigned. It always
// succeeds; there is no back-pressure.
func (p *ThreadPool) Submit(task *core.Task, priority core.TaskPriority) {
	if task == nil {
		p.logger.Warn("nil task ignored", core.F("pool", p.id))
		return
	}
	p.scheduler.Post(task, priority)
}

// Retrieve returns the value produced by task id without blocking.
// core.ErrTaskNotFound covers ids out of range, still pending, abandoned, or
// failed.
func (p *ThreadPool) Retrieve(id core.TaskID) (any, error) {
	if id == 0 {
		return nil, core.ErrTaskNotFound
	}
	v, ok := p.scheduler.Result(id)
	if !ok {
		return nil, core.ErrTaskNotFound
	}
	return v, nil
}

// Status reports whether id is unknown, pending, ready or failed.
func (p *ThreadPool) Status(id core.TaskID) core.SlotState {
	if id == 0 {
		return core.SlotAbsent
	}
	return p.scheduler.Status(id)
}

// Start spawns the configured number of workers. It is a no-op while any
// worker from a previous Start is still alive, and before Initialize.
func (p *ThreadPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		p.logger.Warn("start ignored: pool not initialized", core.F("pool", p.id))
		return
	}
	if p.live.LoadAcquire() > 0 {
		return // Already running
	}
	if p.group != nil {
		// Previous generation has exited; reap it before replacing.
		_ = p.group.Wait()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.group = &errgroup.Group{}

	stopCh := ctx.Done()
	for i := 0; i < p.workers; i++ {
		p.live.AddAcqRel(1)
		p.group.Go(func() error {
			p.workerLoop(i, stopCh)
			return nil
		})
	}
	p.logger.Info("pool started", core.F("pool", p.id), core.F("workers", p.workers))
}

// Stop requests worker termination using mode. See StopContext.
func (p *ThreadPool) Stop(mode core.StopMode) {
	_ = p.StopContext(context.Background(), mode)
}

// StopContext requests worker termination.
//
// StopAfterCurrent wakes every worker and asks it to exit once its current
// task (if any) has finished; queued tasks are discarded and their results
// never appear. It does not wait for workers to exit.
//
// DrainAllQueued wakes the workers and blocks until all lanes are empty and
// no worker is dispatching or executing, then requests termination. Every
// task queued when the call started is retrievable when it returns. If ctx
// ends first, the pool falls back to StopAfterCurrent and ctx.Err() is
// returned.
func (p *ThreadPool) StopContext(ctx context.Context, mode core.StopMode) error {
	if mode == core.DrainAllQueued {
		p.scheduler.WakeAll()
		if err := p.waitDrained(ctx); err != nil {
			p.logger.Warn("drain interrupted, abandoning queued tasks",
				core.F("pool", p.id), core.F("error", err))
			p.stopAfterCurrent()
			return err
		}
		p.requestStop()
		p.logger.Info("pool stopped", core.F("pool", p.id), core.F("mode", mode))
		return nil
	}

	p.stopAfterCurrent()
	return nil
}

func (p *ThreadPool) stopAfterCurrent() {
	p.requestStop()
	dropped := p.scheduler.Clear("stopped")
	p.logger.Info("pool stopped",
		core.F("pool", p.id),
		core.F("mode", core.StopAfterCurrent),
		core.F("abandoned", dropped))
}

func (p *ThreadPool) requestStop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.scheduler.WakeAll()
}

func (p *ThreadPool) waitDrained(ctx context.Context) error {
	if !p.scheduler.Drained() && p.live.LoadAcquire() == 0 {
		p.logger.Warn("draining with no live workers; waiting for Start",
			core.F("pool", p.id), core.F("queued", p.scheduler.QueuedTaskCount()))
	}

	backoff := iox.Backoff{}
	for !p.scheduler.Drained() {
		if err := ctx.Err(); err != nil {
			return err
		}
		backoff.Wait()
	}
	return nil
}

// Kill stops the pool with mode and then waits for every worker to exit.
// The pool needs a fresh Initialize and Start to run again.
func (p *ThreadPool) Kill(mode core.StopMode) {
	p.Stop(mode)

	p.mu.Lock()
	group := p.group
	p.group = nil
	p.cancel = nil
	p.initialized = false
	p.mu.Unlock()

	if group != nil {
		_ = group.Wait()
	}
	p.logger.Info("pool killed", core.F("pool", p.id))
}

// ClearTasks drops every queued task that has not been dispatched yet and
// returns how many were dropped. Running tasks are unaffected.
func (p *ThreadPool) ClearTasks() int {
	n := p.scheduler.Clear("cleared")
	p.logger.Info("queued tasks cleared", core.F("pool", p.id), core.F("count", n))
	return n
}

// workerLoop is the main loop for each worker
func (p *ThreadPool) workerLoop(id int, stopCh <-chan struct{}) {
	defer p.live.AddAcqRel(-1)

	if p.lockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	p.logger.Debug("worker started", core.F("pool", p.id), core.F("worker", id))
	for {
		task, priority, ok := p.scheduler.GetWork(stopCh)
		if !ok {
			p.logger.Debug("worker stopped", core.F("pool", p.id), core.F("worker", id))
			return
		}
		p.scheduler.Execute(id, task, priority)
	}
}

// ID returns the ID of the thread pool
func (p *ThreadPool) ID() string {
	return p.id
}

// IsRunning returns whether any worker goroutine is alive
func (p *ThreadPool) IsRunning() bool {
	return p.live.LoadAcquire() > 0
}

// WorkerCount returns the configured number of workers
func (p *ThreadPool) WorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}

func (p *ThreadPool) QueuedTaskCount() int {
	return p.scheduler.QueuedTaskCount()
}

func (p *ThreadPool) ActiveTaskCount() int {
	return p.scheduler.ActiveTaskCount()
}

// GetScheduler exposes the scheduler for metrics plumbing.
func (p *ThreadPool) GetScheduler() *core.TaskScheduler {
	return p.scheduler
}

// Stats returns current observability data for this pool.
func (p *ThreadPool) Stats() core.PoolStats {
	depths := p.scheduler.LaneDepths()
	return core.PoolStats{
		ID:             p.id,
		Workers:        p.WorkerCount(),
		Running:        p.IsRunning(),
		QueuedHigh:     depths[0],
		QueuedMedium:   depths[1],
		QueuedLow:      depths[2],
		Active:         p.scheduler.ActiveTaskCount(),
		Completed:      p.scheduler.CompletedTaskCount(),
		Failed:         p.scheduler.FailedTaskCount(),
		Discarded:      p.scheduler.DiscardedTaskCount(),
		ResultCapacity: p.scheduler.ResultCapacity(),
	}
}
