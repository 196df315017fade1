package loop

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	ErrClosed      = errors.New("loop closed")
	ErrRunning     = errors.New("loop already running")
	ErrWorkerPanic = errors.New("worker panicked")
)

// Loop runs tasks one at a time on the goroutine that calls Run, and
// executes queued workers on a pool of goroutines.
type Loop struct {
	cfg     config
	log     *zap.Logger
	metrics *Metrics
	env     *Env
	pool    *pool

	mu     sync.Mutex
	tasks  []func(*Env)
	closed bool

	wake    chan struct{}
	pending atomic.Int64
	running atomic.Bool
}

// New creates a Loop and starts its worker pool. The loop does not process
// tasks until Run or RunUntilIdle is called.
func New(opts ...Option) *Loop {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	log := cfg.logger
	if log == nil {
		log = Logger()
	}

	l := &Loop{
		cfg:     cfg,
		log:     log,
		metrics: NewMetrics(cfg.registry),
		wake:    make(chan struct{}, 1),
	}
	l.env = &Env{loop: l}
	l.pool = newPool(l, cfg.workers)

	return l
}

// Metrics returns the loop's collectors.
func (l *Loop) Metrics() *Metrics {
	return l.metrics
}

// Submit schedules fn on the loop. It never blocks and is safe to call from
// any goroutine.
func (l *Loop) Submit(fn func(env *Env)) error {
	if fn == nil {
		return nil
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.pending.Add(1)
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	l.signal()
	return nil
}

// post schedules fn even after Close, so completions of in-flight workers
// are still delivered.
func (l *Loop) post(fn func(env *Env)) {
	l.mu.Lock()
	l.pending.Add(1)
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run processes tasks until ctx is done or the loop is closed and every
// in-flight worker has completed.
func (l *Loop) Run(ctx context.Context) error {
	return l.run(ctx, false)
}

// RunUntilIdle is like Run but also returns once no task is queued and no
// worker is in flight.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	return l.run(ctx, true)
}

func (l *Loop) run(ctx context.Context, untilIdle bool) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer l.running.Store(false)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := l.take()
		for _, fn := range batch {
			l.runTask(fn)
		}
		if len(batch) > 0 {
			continue
		}

		if l.pending.Load() == 0 && (untilIdle || l.isClosed()) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) take() []func(*Env) {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.tasks
	l.tasks = nil
	return batch
}

func (l *Loop) runTask(fn func(*Env)) {
	defer l.pending.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			l.metrics.TasksPanicked.Inc()
			l.log.Error("loop task panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	fn(l.env)
}

func (l *Loop) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// queue hands w to the pool. On a closed loop w fails with ErrClosed
// through w.OnError on the loop.
func (l *Loop) queue(w Worker) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.fail(w, ErrClosed)
		return
	}
	l.pending.Add(1)
	l.pool.offer(w)
	l.mu.Unlock()

	l.metrics.WorkersQueued.Inc()
	l.metrics.WorkersInFlight.Inc()
}

func (l *Loop) fail(w Worker, err error) {
	l.log.Debug("worker not queued", zap.Error(err))
	l.post(func(env *Env) {
		l.metrics.WorkersFailed.Inc()
		w.OnError(env, err)
	})
}

// complete posts w's completion phase back to the loop. It runs on the pool
// goroutine that executed w.
func (l *Loop) complete(w Worker, execErr error) {
	l.post(func(env *Env) {
		l.metrics.WorkersInFlight.Dec()
		if execErr != nil {
			l.metrics.WorkersFailed.Inc()
			w.OnError(env, execErr)
			return
		}
		l.metrics.WorkersCompleted.Inc()
		w.OnOK(env)
	})
	// Released only after the completion task is queued, so pending never
	// drops to zero between the two phases.
	l.pending.Add(-1)
	l.signal()
}

// Close stops accepting new tasks and workers, waits for in-flight Execute
// phases to return and stops the pool. Completion phases of those workers
// are still delivered by a running loop. Close is idempotent.
func (l *Loop) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.pool.close()
	l.mu.Unlock()

	err := l.pool.wait()
	l.signal()
	if err != nil {
		return fmt.Errorf("stop pool: %w", err)
	}
	return nil
}
