// Package hostasync provides asynchronous host functions that offload
// CPU-bound work to a pool of goroutines and report back through
// error-first callbacks on a single event loop.
//
// # Overview
//
// A [loop.Loop] runs every script-visible action (host function entry
// points and callbacks) on one goroutine. Host functions hand a
// [loop.Worker] to the pool and return at once; the worker's Execute phase
// runs on a pool goroutine and its completion phase is posted back to the
// loop.
//
// # Basic Usage
//
//	l := loop.New()
//	defer l.Close()
//
//	l.Submit(func(env *loop.Env) {
//	    done := value.Func(func(_ *loop.Env, args ...value.Value) {
//	        fmt.Println(args[1]) // ...threads are busy async bees...hello world!!!!
//	    })
//	    standalone.HelloAsync(env, []value.Value{
//	        value.Object(map[string]value.Value{"louder": value.Bool(true)}),
//	        done,
//	    })
//	})
//	l.RunUntilIdle(ctx)
//
// # Guests
//
// WASI guest modules reach the same functions through [bridge] and
// [executor]:
//
//	registry := hostfunc.NewRegistry()
//	standalone.Register(registry)
//	exec, _ := executor.New(registry)
//	result := exec.Run(ctx, guest)
//
// See the [loop], [standalone], [bridge], and [executor] packages for
// detailed API documentation.
package hostasync
