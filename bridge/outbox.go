package bridge

import (
	"io"
	"sync"

	"go.uber.org/zap"
)

// outbox serializes lines to the guest's stdin on its own goroutine. push
// never blocks, so a guest that stops reading cannot stall the loop.
type outbox struct {
	w   io.Writer
	log *zap.Logger

	mu     sync.Mutex
	lines  [][]byte
	closed bool

	wake chan struct{}
	done chan struct{}
}

func newOutbox(w io.Writer, log *zap.Logger) *outbox {
	o := &outbox{
		w:    w,
		log:  log,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *outbox) push(line []byte) bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	o.lines = append(o.lines, line)
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
	return true
}

func (o *outbox) run() {
	defer close(o.done)

	var failed bool
	for {
		o.mu.Lock()
		batch := o.lines
		o.lines = nil
		closed := o.closed
		o.mu.Unlock()

		for _, line := range batch {
			if failed {
				continue
			}
			if _, err := o.w.Write(line); err != nil {
				// The guest is gone; drop everything after this.
				o.log.Debug("guest stdin closed", zap.Error(err))
				failed = true
			}
		}

		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-o.wake
	}
}

// close stops accepting lines and waits until the queued ones are written.
func (o *outbox) close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		<-o.done
		return
	}
	o.closed = true
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
	<-o.done
}
