package hostfunc

import (
	"errors"
	"slices"
	"sync"

	"github.com/caffeineduck/hostasync/loop"
	"github.com/caffeineduck/hostasync/value"
)

// ErrUnknownFunction is returned by Call for names that were never registered.
var ErrUnknownFunction = errors.New("unknown function")

// Func is a host function callable from script code. It runs on the loop
// goroutine. A returned error is raised synchronously in the caller.
type Func func(env *loop.Env, args []value.Value) (value.Value, error)

type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	r.funcs[name] = fn
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (Func, bool) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	return fn, ok
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Call looks up name and invokes it with args. It must run on the loop.
func (r *Registry) Call(env *loop.Env, name string, args []value.Value) (value.Value, error) {
	fn, ok := r.Get(name)
	if !ok {
		return value.Undefined(), &TypeError{Msg: ErrUnknownFunction.Error() + ": " + name, err: ErrUnknownFunction}
	}
	return fn(env, args)
}
