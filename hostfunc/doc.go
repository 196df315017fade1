// Package hostfunc provides the registry of host functions that script code
// can call, and the helpers those functions share for argument checking.
//
// Host functions are Go functions invoked on the loop goroutine with the
// call's dynamic arguments:
//
//	registry := hostfunc.NewRegistry()
//	registry.Register("my_func", func(env *loop.Env, args []value.Value) (value.Value, error) {
//	    return value.String("result"), nil
//	})
//
// # Errors
//
// A host function reports a usage error in one of two ways:
//
//   - Returning a [*TypeError]: the error is raised synchronously in the
//     calling script.
//   - Calling the error-first callback: [CallbackError] finds the callback
//     among the arguments and calls it with (message, undefined). When no
//     callback was passed it falls back to a TypeError.
//
// Asynchronous host functions should validate their callback argument first,
// so every later error has somewhere to go.
package hostfunc
