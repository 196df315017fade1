package standalone

import (
	"context"
	"errors"
	"fmt"

	"github.com/caffeineduck/hostasync/greeting"
	"github.com/caffeineduck/hostasync/hostfunc"
	"github.com/caffeineduck/hostasync/loop"
	"github.com/caffeineduck/hostasync/value"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Subject is who helloAsync greets.
const Subject = "world"

// FuncName is the name helloAsync is exported under.
const FuncName = "helloAsync"

type computeFunc func(subject string, louder bool) (string, error)

// helloWorker carries one helloAsync invocation from the loop to the pool
// and back. The pool owns it during Execute, the loop afterwards.
type helloWorker struct {
	id       string
	opts     CallOptions
	callback value.Value
	compute  computeFunc

	result string
}

// Execute runs on a pool goroutine. Failures of the computation, panics
// included, are turned into the returned error.
func (w *helloWorker) Execute(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	w.result, err = w.compute(Subject, w.opts.Louder)
	return err
}

func (w *helloWorker) OnOK(env *loop.Env) {
	env.Logger().Debug("helloAsync completed", zap.String("invocation", w.id))

	var out value.Value
	if w.opts.Buffer {
		out = value.Buffer([]byte(w.result))
	} else {
		out = value.String(w.result)
	}
	w.callback.Call(env, value.Null(), out)
}

func (w *helloWorker) OnError(env *loop.Env, err error) {
	env.Logger().Debug("helloAsync failed", zap.String("invocation", w.id), zap.Error(err))
	w.callback.Call(env, value.String(err.Error()), value.Undefined())
}

// HelloAsync is the helloAsync host function:
//
//	helloAsync(options: {louder?: boolean, buffer?: boolean}, callback: (err, result) => void)
//
// It returns undefined at once; the greeting is computed on the worker pool
// and delivered through callback on the loop.
func HelloAsync(env *loop.Env, args []value.Value) (value.Value, error) {
	return helloAsync(env, args, greeting.DoExpensiveWork)
}

func helloAsync(env *loop.Env, args []value.Value, compute computeFunc) (value.Value, error) {
	opts, callback, err := ParseArgs(args)
	if err != nil {
		var argErr *ArgError
		if errors.As(err, &argErr) && argErr.Deliverable() {
			// args[1] is the validated callback; ignore anything after it.
			return hostfunc.CallbackError(env, argErr.Msg, args[:2])
		}
		return value.Undefined(), hostfunc.NewTypeError(err.Error())
	}

	w := &helloWorker{
		id:       uuid.NewString(),
		opts:     opts,
		callback: callback,
		compute:  compute,
	}
	env.Logger().Debug("helloAsync queued",
		zap.String("invocation", w.id),
		zap.Bool("louder", opts.Louder),
		zap.Bool("buffer", opts.Buffer))
	env.Queue(w)

	return value.Undefined(), nil
}

// Register exports helloAsync on r.
func Register(r *hostfunc.Registry) {
	r.Register(FuncName, HelloAsync)
}
