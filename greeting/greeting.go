// Package greeting holds the CPU-bound routine that host functions offload
// to the worker pool.
package greeting

import (
	"errors"
	"strings"
)

const (
	prefix   = "...threads are busy async bees...hello "
	emphasis = "!!!!"

	// FailSubject makes DoExpensiveWork fail, for exercising error paths.
	FailSubject = "throwme"

	rounds = 100_000
)

// ErrThrown is returned for FailSubject.
var ErrThrown = errors.New("we threw an error")

// DoExpensiveWork builds the greeting for subject, appending "!!!!" when
// louder is set. It burns CPU on purpose and must not run on the loop.
func DoExpensiveWork(subject string, louder bool) (string, error) {
	if subject == FailSubject {
		return "", ErrThrown
	}

	var b strings.Builder
	for range rounds {
		b.Reset()
		b.WriteString(prefix)
		b.WriteString(subject)
	}
	if louder {
		b.WriteString(emphasis)
	}
	return b.String(), nil
}
