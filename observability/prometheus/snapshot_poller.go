package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-task-engine/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// PoolSnapshotProvider provides current pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports pool Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	poolQueued         *prom.GaugeVec
	poolActive         *prom.GaugeVec
	poolWorkers        *prom.GaugeVec
	poolRunning        *prom.GaugeVec
	poolCompleted      *prom.GaugeVec
	poolFailed         *prom.GaugeVec
	poolDiscarded      *prom.GaugeVec
	poolResultCapacity *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string, labels ...string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "taskengine",
			Name:      name,
			Help:      help,
		}, labels)
	}

	poolQueued := gauge("pool_queued", "Queued tasks per pool and lane.", "pool", "lane")
	poolActive := gauge("pool_active", "Workers dispatching or executing a task.", "pool")
	poolWorkers := gauge("pool_workers", "Configured worker count per pool.", "pool")
	poolRunning := gauge("pool_running", "Pool running state (1=running, 0=stopped).", "pool")
	poolCompleted := gauge("pool_completed_total", "Pool completed task count snapshot.", "pool")
	poolFailed := gauge("pool_failed_total", "Pool failed task count snapshot.", "pool")
	poolDiscarded := gauge("pool_discarded_total", "Pool discarded task count snapshot.", "pool")
	poolResultCapacity := gauge("pool_result_capacity", "Addressable result slots per pool.", "pool")

	var err error
	for _, g := range []**prom.GaugeVec{
		&poolQueued, &poolActive, &poolWorkers, &poolRunning,
		&poolCompleted, &poolFailed, &poolDiscarded, &poolResultCapacity,
	} {
		if *g, err = registerCollector(reg, *g); err != nil {
			return nil, err
		}
	}

	return &SnapshotPoller{
		interval:           interval,
		pools:              make(map[string]PoolSnapshotProvider),
		poolQueued:         poolQueued,
		poolActive:         poolActive,
		poolWorkers:        poolWorkers,
		poolRunning:        poolRunning,
		poolCompleted:      poolCompleted,
		poolFailed:         poolFailed,
		poolDiscarded:      poolDiscarded,
		poolResultCapacity: poolResultCapacity,
	}, nil
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// RemovePool stops exporting a pool. Its last gauge values are deleted.
func (p *SnapshotPoller) RemovePool(name string) {
	if p == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	// Held across the deletes so an in-flight collectOnce can't re-create
	// the series.
	p.poolsMu.Lock()
	defer p.poolsMu.Unlock()
	delete(p.pools, name)

	match := prom.Labels{"pool": name}
	for _, g := range []*prom.GaugeVec{
		p.poolQueued, p.poolActive, p.poolWorkers, p.poolRunning,
		p.poolCompleted, p.poolFailed, p.poolDiscarded, p.poolResultCapacity,
	} {
		g.DeletePartialMatch(match)
	}
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.poolsMu.RLock()
	defer p.poolsMu.RUnlock()

	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolQueued.WithLabelValues(name, priorityLabel(core.TaskPriorityHigh)).Set(float64(stats.QueuedHigh))
		p.poolQueued.WithLabelValues(name, priorityLabel(core.TaskPriorityMedium)).Set(float64(stats.QueuedMedium))
		p.poolQueued.WithLabelValues(name, priorityLabel(core.TaskPriorityLow)).Set(float64(stats.QueuedLow))
		p.poolActive.WithLabelValues(name).Set(float64(stats.Active))
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolCompleted.WithLabelValues(name).Set(float64(stats.Completed))
		p.poolFailed.WithLabelValues(name).Set(float64(stats.Failed))
		p.poolDiscarded.WithLabelValues(name).Set(float64(stats.Discarded))
		p.poolResultCapacity.WithLabelValues(name).Set(float64(stats.ResultCapacity))
		if stats.Running {
			p.poolRunning.WithLabelValues(name).Set(1)
		} else {
			p.poolRunning.WithLabelValues(name).Set(0)
		}
	}
}
