package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/caffeineduck/hostasync/hostfunc"
	"github.com/caffeineduck/hostasync/loop"
	"github.com/caffeineduck/hostasync/value"
	"go.uber.org/zap"
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge's logger. The default is loop.Logger().
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		b.log = l
	}
}

// Bridge is the guest's stderr. Plain output is kept for Stderr; call
// frames are dispatched to the registry on the loop, and the answers are
// written as JSON lines to the guest's stdin.
type Bridge struct {
	loop     *loop.Loop
	registry *hostfunc.Registry
	out      *outbox
	log      *zap.Logger

	mu     sync.Mutex
	buf    bytes.Buffer
	stderr bytes.Buffer

	calls atomic.Int64

	// Loop-only. Callback frames produced while a call is being handled are
	// held until its response is written.
	holding bool
	held    [][]byte
}

// New attaches a bridge to l. Answers are written to guestStdin.
func New(l *loop.Loop, registry *hostfunc.Registry, guestStdin io.Writer, opts ...Option) *Bridge {
	if registry == nil {
		registry = hostfunc.NewRegistry()
	}
	b := &Bridge{
		loop:     l,
		registry: registry,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = loop.Logger()
	}
	b.out = newOutbox(guestStdin, b.log)
	return b
}

func (b *Bridge) Write(data []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf.Write(data)

	for {
		content := b.buf.String()
		idx := findFrame(content)
		if idx == -1 {
			keep := partialPrefixLen(content)
			b.stderr.WriteString(content[:len(content)-keep])
			b.buf.Reset()
			b.buf.WriteString(content[len(content)-keep:])
			break
		}

		b.stderr.WriteString(content[:idx])
		payload, remaining, ok := extractFrame(content, idx)
		b.buf.Reset()
		b.buf.WriteString(remaining)
		if !ok {
			break
		}
		b.dispatch(payload)
	}

	return len(data), nil
}

func (b *Bridge) dispatch(payload string) {
	var req callRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		b.log.Debug("invalid call frame", zap.Error(err))
		b.respond(callResponse{Error: "invalid call format"})
		return
	}

	b.calls.Add(1)
	err := b.loop.Submit(func(env *loop.Env) {
		b.handleCall(env, req)
	})
	if err != nil {
		b.respond(callResponse{ID: req.ID, Error: err.Error()})
	}
}

func (b *Bridge) handleCall(env *loop.Env, req callRequest) {
	b.holding = true
	defer b.release()

	args := make([]value.Value, 0, len(req.Args))
	for i, raw := range req.Args {
		v, err := value.FromJSON(raw, b.resolve)
		if err != nil {
			b.respond(callResponse{ID: req.ID, Error: fmt.Sprintf("arg %d: %v", i, err)})
			return
		}
		args = append(args, v)
	}

	env.Logger().Debug("guest call", zap.String("id", req.ID), zap.String("fn", req.Fn), zap.Int("args", len(args)))

	result, err := b.registry.Call(env, req.Fn, args)
	if err != nil {
		resp := callResponse{ID: req.ID, Error: err.Error()}
		var typeErr *hostfunc.TypeError
		if errors.As(err, &typeErr) {
			resp.Type = "TypeError"
		}
		b.respond(resp)
		return
	}

	data, err := value.ToJSON(result)
	if err != nil {
		b.respond(callResponse{ID: req.ID, Error: fmt.Sprintf("encode result: %v", err)})
		return
	}
	b.respond(callResponse{ID: req.ID, Data: data})
}

func (b *Bridge) release() {
	held := b.held
	b.holding = false
	b.held = nil
	for _, line := range held {
		b.send(line)
	}
}

// resolve turns a guest callback id into a function that streams its
// arguments back as a callback frame.
func (b *Bridge) resolve(id string) value.Function {
	return func(env *loop.Env, args ...value.Value) {
		encoded := make([]any, 0, len(args))
		for _, arg := range args {
			j, err := value.ToJSON(arg)
			if err != nil {
				env.Logger().Warn("callback argument not encodable",
					zap.String("callback", id), zap.Error(err))
				return
			}
			encoded = append(encoded, j)
		}

		line, err := json.Marshal(callbackFrame{Callback: id, Args: encoded})
		if err != nil {
			env.Logger().Warn("marshal callback frame", zap.String("callback", id), zap.Error(err))
			return
		}
		line = append(line, '\n')

		if b.holding {
			b.held = append(b.held, line)
			return
		}
		b.send(line)
	}
}

func (b *Bridge) respond(resp callResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		data = []byte(`{"error":"internal: failed to marshal response"}`)
	}
	b.send(append(data, '\n'))
}

func (b *Bridge) send(line []byte) {
	if !b.out.push(line) {
		b.log.Debug("bridge closed, dropping line", zap.ByteString("line", line))
	}
}

// Calls returns how many call frames have been received.
func (b *Bridge) Calls() int64 {
	return b.calls.Load()
}

// Stderr returns the guest's stderr output with call frames removed.
func (b *Bridge) Stderr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stderr.String()
}

// Close waits for every queued line to reach the guest's stdin and stops
// the writer. Unterminated frame text is kept as plain stderr output.
func (b *Bridge) Close() error {
	b.out.close()

	b.mu.Lock()
	b.stderr.Write(b.buf.Bytes())
	b.buf.Reset()
	b.mu.Unlock()
	return nil
}
