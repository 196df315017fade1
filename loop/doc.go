// Package loop provides the single logical goroutine that owns all
// script-visible state, plus the worker pool that runs offloaded work.
//
// # Overview
//
// A [Loop] drains a FIFO of tasks on the goroutine that calls [Loop.Run].
// Every task receives the loop's [Env], the explicit handle that script
// callbacks and completion handlers need. Nothing outside a task should hold
// on to an Env.
//
// # Two-phase workers
//
// CPU-bound work is expressed as a [Worker]:
//
//	type Worker interface {
//	    Execute(ctx context.Context) error // pool goroutine
//	    OnOK(env *Env)                      // loop goroutine
//	    OnError(env *Env, err error)        // loop goroutine
//	}
//
// [Env.Queue] hands a worker to the pool and returns immediately. Once
// Execute returns, exactly one of OnOK or OnError is posted back to the
// loop. Execute happens-before the completion phase; no other
// synchronization is needed between them.
//
// A panic inside Execute is recovered and reported through OnError as an
// [ErrWorkerPanic]; it never takes down the process.
//
// # Basic Usage
//
//	l := loop.New(loop.WithWorkers(4))
//	defer l.Close()
//
//	l.Submit(func(env *loop.Env) {
//	    env.Queue(myWorker)
//	})
//
//	// Returns once the worker's completion phase has run.
//	if err := l.RunUntilIdle(ctx); err != nil {
//	    log.Fatal(err)
//	}
package loop
