// Package jobs runs queued report builds on a fixed worker pool.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task references one persisted report job. The job row is the source of
// truth; the task itself carries no payload.
type Task struct {
	JobID     string
	Kind      string
	Submitted time.Time
}

// Runner processes one task. A returned error triggers a retry until the
// attempt budget is spent.
type Runner func(ctx context.Context, task Task) error

// Config tunes pool behaviour.
type Config struct {
	Workers      int
	Depth        int
	MaxAttempts  int
	RetryBackoff time.Duration
	Logger       *zap.Logger
}

// Pool dispatches report tasks to a bounded set of workers. Failed tasks are
// retried in place on the same worker with a fixed backoff, so a broken task
// never multiplies goroutines.
type Pool struct {
	name string
	run  Runner

	workers     int
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger

	tasks   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewPool builds a pool around the provided runner.
func NewPool(name string, run Runner, cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Depth <= 0 {
		cfg.Depth = cfg.Workers * 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Pool{
		name:        name,
		run:         run,
		workers:     cfg.Workers,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.RetryBackoff,
		logger:      cfg.Logger,
		tasks:       make(chan Task, cfg.Depth),
	}
}

// Start launches the workers. Calling Start on a running pool is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.running = true
	p.logger.Info("report pool started", zap.String("pool", p.name), zap.Int("workers", p.workers))
}

// Stop cancels the workers and waits for them to drain.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Info("report pool stopped", zap.String("pool", p.name))
}

// Submit hands a task to the pool, blocking while the queue is full.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	ctx := p.ctx
	running := p.running
	p.mu.Unlock()

	if !running {
		return fmt.Errorf("pool %s not running", p.name)
	}
	if task.Submitted.IsZero() {
		task.Submitted = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("pool %s shut down: %w", p.name, ctx.Err())
	case p.tasks <- task:
		return nil
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.tasks:
			p.process(task)
		}
	}
}

func (p *Pool) process(task Task) {
	for attempt := 1; ; attempt++ {
		err := p.run(p.ctx, task)
		if err == nil {
			return
		}
		if attempt >= p.maxAttempts {
			p.logger.Error("report task abandoned",
				zap.String("pool", p.name),
				zap.String("job_id", task.JobID),
				zap.String("kind", task.Kind),
				zap.Int("attempts", attempt),
				zap.Error(err))
			return
		}
		p.logger.Warn("report task failed, retrying",
			zap.String("pool", p.name),
			zap.String("job_id", task.JobID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-p.ctx.Done():
			return
		case <-time.After(p.backoff):
		}
	}
}
