package loop

import (
	"context"

	"go.uber.org/zap"
)

// Worker is a unit of offloaded work split into a background phase and a
// completion phase.
//
// Execute runs on a pool goroutine and must not touch script-visible state.
// Exactly one of OnOK or OnError runs afterwards on the loop goroutine.
type Worker interface {
	Execute(ctx context.Context) error
	OnOK(env *Env)
	OnError(env *Env, err error)
}

// Env is the explicit handle to a running loop. The loop passes it to every
// task and completion phase; it is only valid on the loop goroutine.
type Env struct {
	loop *Loop
}

// Queue hands w to the worker pool and returns immediately. If the loop is
// closed, its OnError phase is scheduled on the loop instead, so completion
// is always asynchronous.
func (e *Env) Queue(w Worker) {
	e.loop.queue(w)
}

// Logger returns the loop's logger.
func (e *Env) Logger() *zap.Logger {
	return e.loop.log
}
