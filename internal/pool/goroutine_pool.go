// Package pool provides a bounded goroutine pool that admits long-running
// stream tasks and rejects work once every worker and queue slot is taken.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	ErrPoolClosed = errors.New("pool is closed")
	ErrPoolFull   = errors.New("pool is full")
)

// Task represents a unit of work.
type Task func(ctx context.Context) error

// GoroutinePool manages a pool of worker goroutines.
type GoroutinePool struct {
	maxWorkers  int
	taskQueue   chan taskWrapper
	workerCount atomic.Int32
	activeCount atomic.Int32
	wg          sync.WaitGroup
	logger      *zap.Logger

	// mu 保护 closed 与 taskQueue 的关闭，发送方持读锁
	mu     sync.RWMutex
	closed bool

	// Metrics
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64

	idleTimeout time.Duration
}

type taskWrapper struct {
	task   Task
	ctx    context.Context
	result chan error
}

// GoroutinePoolConfig configures the pool.
type GoroutinePoolConfig struct {
	MaxWorkers  int
	QueueSize   int
	IdleTimeout time.Duration
}

// DefaultGoroutinePoolConfig returns sensible defaults.
func DefaultGoroutinePoolConfig() GoroutinePoolConfig {
	return GoroutinePoolConfig{
		MaxWorkers:  64,
		QueueSize:   128,
		IdleTimeout: 60 * time.Second,
	}
}

// NewGoroutinePool creates a new goroutine pool.
func NewGoroutinePool(config GoroutinePoolConfig, logger *zap.Logger) *GoroutinePool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 1
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultGoroutinePoolConfig().IdleTimeout
	}
	return &GoroutinePool{
		maxWorkers:  config.MaxWorkers,
		taskQueue:   make(chan taskWrapper, config.QueueSize),
		idleTimeout: config.IdleTimeout,
		logger:      logger.With(zap.String("component", "goroutine_pool")),
	}
}

// Submit submits a task to the pool without waiting for it to run.
func (p *GoroutinePool) Submit(ctx context.Context, task Task) error {
	_, err := p.enqueue(ctx, task)
	return err
}

// Execute admits a task without blocking and waits for its result.
// ErrPoolFull is returned immediately when no worker or queue slot is free.
// If ctx ends first, Execute returns ctx.Err() while the task keeps its ctx
// and is expected to observe the cancellation itself.
func (p *GoroutinePool) Execute(ctx context.Context, task Task) error {
	result, err := p.enqueue(ctx, task)
	if err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *GoroutinePool) enqueue(ctx context.Context, task Task) (<-chan error, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	p.submitted.Add(1)

	wrapper := taskWrapper{
		task:   task,
		ctx:    ctx,
		result: make(chan error, 1),
	}

	// 队列有空位时直接入队
	select {
	case p.taskQueue <- wrapper:
		p.ensureWorker()
		return wrapper.result, nil
	default:
	}

	// 队列已满（或无缓冲），尝试拉起新 worker 直接接手
	if p.trySpawnWorker(&wrapper) {
		return wrapper.result, nil
	}
	p.rejected.Add(1)
	return nil, ErrPoolFull
}

func (p *GoroutinePool) ensureWorker() {
	if p.workerCount.Load()-p.activeCount.Load() < int32(len(p.taskQueue)) ||
		p.workerCount.Load() == 0 {
		p.trySpawnWorker(nil)
	}
}

func (p *GoroutinePool) trySpawnWorker(first *taskWrapper) bool {
	for {
		current := p.workerCount.Load()
		if current >= int32(p.maxWorkers) {
			return false
		}
		if p.workerCount.CompareAndSwap(current, current+1) {
			p.wg.Add(1)
			go p.worker(first)
			return true
		}
	}
}

func (p *GoroutinePool) worker(first *taskWrapper) {
	defer p.wg.Done()
	defer p.workerCount.Add(-1)

	if first != nil {
		p.run(*first)
	}

	timer := time.NewTimer(p.idleTimeout)
	defer timer.Stop()

	for {
		select {
		case wrapper, ok := <-p.taskQueue:
			if !ok {
				return
			}
			p.run(wrapper)
			timer.Reset(p.idleTimeout)

		case <-timer.C:
			// Idle timeout, exit if we have more than minimum workers
			if p.workerCount.Load() > 1 {
				return
			}
			timer.Reset(p.idleTimeout)
		}
	}
}

func (p *GoroutinePool) run(wrapper taskWrapper) {
	p.activeCount.Add(1)
	err := p.executeTask(wrapper)
	p.activeCount.Add(-1)

	wrapper.result <- err
	close(wrapper.result)

	if err != nil {
		p.failed.Add(1)
	} else {
		p.completed.Add(1)
	}
}

func (p *GoroutinePool) executeTask(wrapper taskWrapper) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	return wrapper.task(wrapper.ctx)
}

// Close stops admitting tasks and waits for queued and running tasks to finish.
func (p *GoroutinePool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.taskQueue)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Debug("pool closed", zap.Int64("completed", p.completed.Load()))
}

// Stats returns pool statistics.
func (p *GoroutinePool) Stats() GoroutinePoolStats {
	return GoroutinePoolStats{
		Workers:   int(p.workerCount.Load()),
		Active:    int(p.activeCount.Load()),
		Queued:    len(p.taskQueue),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Rejected:  p.rejected.Load(),
	}
}

// GoroutinePoolStats contains pool statistics.
type GoroutinePoolStats struct {
	Workers   int   `json:"workers"`
	Active    int   `json:"active"`
	Queued    int   `json:"queued"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Rejected  int64 `json:"rejected"`
}

// Collectors 返回以 Stats 为数据源的 Prometheus 指标，由调用方注册。
func (p *GoroutinePool) Collectors(namespace string) []prometheus.Collector {
	gauge := func(name, help string, value func() float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      name,
			Help:      help,
		}, value)
	}
	counter := func(name, help string, value func() float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      name,
			Help:      help,
		}, value)
	}
	return []prometheus.Collector{
		gauge("workers", "Live pool workers", func() float64 { return float64(p.workerCount.Load()) }),
		gauge("active_tasks", "Tasks currently running", func() float64 { return float64(p.activeCount.Load()) }),
		gauge("queued_tasks", "Tasks waiting for a worker", func() float64 { return float64(len(p.taskQueue)) }),
		counter("rejected_total", "Tasks rejected because the pool was full", func() float64 { return float64(p.rejected.Load()) }),
	}
}
