package standalone

import (
	"github.com/caffeineduck/hostasync/hostfunc"
	"github.com/caffeineduck/hostasync/value"
)

const (
	msgCallbackNotFunction = "second arg 'callback' must be a function"
	msgOptionsNotObject    = "first arg 'options' must be an object"
	msgLouderNotBoolean    = "option 'louder' must be a boolean"
	msgBufferNotBoolean    = "option 'buffer' must be a boolean"
)

// CallOptions are the validated options of one helloAsync call.
type CallOptions struct {
	// Louder appends emphasis to the greeting.
	Louder bool
	// Buffer delivers the greeting as bytes instead of a string.
	Buffer bool
}

// ArgError describes a call with unusable arguments. When Callback is a
// function the error is delivered through it; otherwise it is raised
// synchronously.
type ArgError struct {
	Msg      string
	Callback value.Value
}

func (e *ArgError) Error() string { return e.Msg }

// Deliverable reports whether the error can go through the callback.
func (e *ArgError) Deliverable() bool { return e.Callback.IsFunction() }

// ParseArgs validates the (options, callback) call shape and extracts the
// typed options. It only reads its input.
func ParseArgs(args []value.Value) (CallOptions, value.Value, error) {
	var opts CallOptions

	callback := hostfunc.Arg(args, 1)
	if !callback.IsFunction() {
		return opts, value.Undefined(), &ArgError{Msg: msgCallbackNotFunction}
	}

	options := hostfunc.Arg(args, 0)
	if !options.IsObjectLike() {
		return opts, callback, &ArgError{Msg: msgOptionsNotObject, Callback: callback}
	}

	var ok bool
	if opts.Louder, ok = boolOption(options, "louder"); !ok {
		return CallOptions{}, callback, &ArgError{Msg: msgLouderNotBoolean, Callback: callback}
	}
	if opts.Buffer, ok = boolOption(options, "buffer"); !ok {
		return CallOptions{}, callback, &ArgError{Msg: msgBufferNotBoolean, Callback: callback}
	}

	return opts, callback, nil
}

// boolOption reads an optional boolean field. Absent means false; ok is
// false only when the field is present with another type.
func boolOption(options value.Value, key string) (v bool, ok bool) {
	if !options.Has(key) {
		return false, true
	}
	field, _ := options.Get(key)
	if !field.IsBoolean() {
		return false, false
	}
	return field.Bool(), true
}
