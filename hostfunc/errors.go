package hostfunc

import (
	"github.com/caffeineduck/hostasync/loop"
	"github.com/caffeineduck/hostasync/value"
)

// TypeError is raised synchronously in script code when a host function is
// called with arguments it cannot work with.
type TypeError struct {
	Msg string
	err error
}

func NewTypeError(msg string) *TypeError {
	return &TypeError{Msg: msg}
}

func (e *TypeError) Error() string { return e.Msg }

func (e *TypeError) Unwrap() error { return e.err }

// CallbackError delivers msg through the error-first callback found among
// args: the last function argument is called with (msg, undefined) and
// CallbackError returns undefined. Without a function argument there is no
// way to deliver msg asynchronously, so a *TypeError is returned to be
// raised synchronously instead.
func CallbackError(env *loop.Env, msg string, args []value.Value) (value.Value, error) {
	cb, ok := LastFunction(args)
	if !ok {
		return value.Undefined(), NewTypeError(msg)
	}
	cb.Call(env, value.String(msg), value.Undefined())
	return value.Undefined(), nil
}

// LastFunction returns the last function-valued argument.
func LastFunction(args []value.Value) (value.Value, bool) {
	for i := len(args) - 1; i >= 0; i-- {
		if args[i].IsFunction() {
			return args[i], true
		}
	}
	return value.Undefined(), false
}

// Arg returns args[i], or undefined when the call supplied fewer arguments.
func Arg(args []value.Value, i int) value.Value {
	if i < 0 || i >= len(args) {
		return value.Undefined()
	}
	return args[i]
}
