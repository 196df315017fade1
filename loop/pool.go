package loop

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// pool runs Execute phases on a fixed set of goroutines. Workers that find
// every goroutine busy wait in an unbounded FIFO backlog.
type pool struct {
	loop   *Loop
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	ready   *sync.Cond
	backlog []Worker
	closed  bool
}

func newPool(l *Loop, workers int) *pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &pool{
		loop:   l,
		group:  &errgroup.Group{},
		ctx:    ctx,
		cancel: cancel,
	}
	p.ready = sync.NewCond(&p.mu)

	for i := 0; i < workers; i++ {
		p.group.Go(p.work)
	}

	return p
}

// offer appends w to the backlog. It never blocks and never refuses.
func (p *pool) offer(w Worker) {
	p.mu.Lock()
	p.backlog = append(p.backlog, w)
	p.mu.Unlock()
	p.ready.Signal()
}

// next waits for a worker. It reports false once the pool is closed and the
// backlog is drained.
func (p *pool) next() (Worker, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.backlog) == 0 && !p.closed {
		p.ready.Wait()
	}
	if len(p.backlog) == 0 {
		return nil, false
	}
	w := p.backlog[0]
	p.backlog[0] = nil
	p.backlog = p.backlog[1:]
	return w, true
}

func (p *pool) work() error {
	for {
		w, ok := p.next()
		if !ok {
			return nil
		}
		start := time.Now()
		err := p.execute(w)
		p.loop.metrics.ExecuteDuration.Observe(time.Since(start).Seconds())
		p.loop.complete(w, err)
	}
}

// execute runs w.Execute, turning a panic into an error.
func (p *pool) execute(w Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.loop.log.Error("worker panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
		}
	}()
	return w.Execute(p.ctx)
}

// close lets the goroutines exit once the backlog is empty.
func (p *pool) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.ready.Broadcast()
}

// wait blocks until every queued worker has executed.
func (p *pool) wait() error {
	defer p.cancel()
	return p.group.Wait()
}
