package bridge_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/caffeineduck/hostasync/bridge"
	"github.com/caffeineduck/hostasync/hostfunc"
	"github.com/caffeineduck/hostasync/loop"
	"github.com/caffeineduck/hostasync/standalone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greeting = "...threads are busy async bees...hello world"

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) lines(t *testing.T) []map[string]any {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(s.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), "line %q", line)
		out = append(out, m)
	}
	return out
}

type harness struct {
	loop   *loop.Loop
	bridge *bridge.Bridge
	stdin  *syncBuffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reg := hostfunc.NewRegistry()
	standalone.Register(reg)

	l := loop.New(loop.WithWorkers(2))
	t.Cleanup(func() { l.Close() })

	stdin := &syncBuffer{}
	return &harness{
		loop:   l,
		bridge: bridge.New(l, reg, stdin),
		stdin:  stdin,
	}
}

func frame(payload string) string {
	return "\x00HOSTASYNC:" + payload + "\x00"
}

// settle runs the loop until every call and callback is done and flushes the
// bridge.
func (h *harness) settle(t *testing.T) []map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, h.loop.RunUntilIdle(ctx))
	require.NoError(t, h.bridge.Close())
	return h.stdin.lines(t)
}

func (h *harness) write(t *testing.T, s string) {
	t.Helper()
	n, err := h.bridge.Write([]byte(s))
	require.NoError(t, err)
	require.Equal(t, len(s), n)
}

func TestHelloAsyncOverBridge(t *testing.T) {
	h := newHarness(t)
	h.write(t, frame(`{"id":"1","fn":"helloAsync","args":[{"louder":true},{"$fn":"cb1"}]}`))

	lines := h.settle(t)
	require.Len(t, lines, 2)

	assert.Equal(t, map[string]any{"id": "1"}, lines[0])
	assert.Equal(t, "cb1", lines[1]["callback"])
	assert.Equal(t, []any{nil, greeting + "!!!!"}, lines[1]["args"])
	assert.EqualValues(t, 1, h.bridge.Calls())
}

func TestBufferResultOverBridge(t *testing.T) {
	h := newHarness(t)
	h.write(t, frame(`{"id":"7","fn":"helloAsync","args":[{"buffer":true},{"$fn":"cb"}]}`))

	lines := h.settle(t)
	require.Len(t, lines, 2)

	args := lines[1]["args"].([]any)
	require.Len(t, args, 2)
	assert.Nil(t, args[0])
	marker, ok := args[1].(map[string]any)
	require.True(t, ok, "expected buffer marker, got %T", args[1])
	raw, err := base64.StdEncoding.DecodeString(marker["$buffer"].(string))
	require.NoError(t, err)
	assert.Equal(t, greeting, string(raw))
}

func TestMissingCallbackIsTypeError(t *testing.T) {
	h := newHarness(t)
	h.write(t, frame(`{"id":"2","fn":"helloAsync","args":[{},"nope"]}`))

	lines := h.settle(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "2", lines[0]["id"])
	assert.Equal(t, "second arg 'callback' must be a function", lines[0]["error"])
	assert.Equal(t, "TypeError", lines[0]["type"])
}

func TestUsageErrorRespondsBeforeCallback(t *testing.T) {
	h := newHarness(t)
	h.write(t, frame(`{"id":"3","fn":"helloAsync","args":[42,{"$fn":"cb"}]}`))

	lines := h.settle(t)
	require.Len(t, lines, 2)
	assert.Equal(t, map[string]any{"id": "3"}, lines[0])
	assert.Equal(t, []any{"first arg 'options' must be an object", nil}, lines[1]["args"])
}

func TestUnknownFunction(t *testing.T) {
	h := newHarness(t)
	h.write(t, frame(`{"id":"4","fn":"goodbyeAsync","args":[]}`))

	lines := h.settle(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "unknown function: goodbyeAsync", lines[0]["error"])
	assert.Equal(t, "TypeError", lines[0]["type"])
}

func TestInvalidFrame(t *testing.T) {
	h := newHarness(t)
	h.write(t, frame(`{not json`))

	lines := h.settle(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "invalid call format", lines[0]["error"])
	assert.Zero(t, h.bridge.Calls())
}

func TestPlainStderrAndSplitFrames(t *testing.T) {
	h := newHarness(t)
	input := "warming up\n" +
		frame(`{"id":"5","fn":"helloAsync","args":[{},{"$fn":"cb"}]}`) +
		"done\n"

	for i := 0; i < len(input); i++ {
		h.write(t, input[i:i+1])
	}

	lines := h.settle(t)
	require.Len(t, lines, 2)
	assert.Equal(t, "5", lines[0]["id"])
	assert.Equal(t, []any{nil, greeting}, lines[1]["args"])
	assert.Equal(t, "warming up\ndone\n", h.bridge.Stderr())
}

func TestManyCallsKeepTheirCallbacks(t *testing.T) {
	h := newHarness(t)

	var sb strings.Builder
	for i := range 20 {
		louder := i%2 == 0
		payload, err := json.Marshal(map[string]any{
			"id":   string(rune('a' + i)),
			"fn":   "helloAsync",
			"args": []any{map[string]any{"louder": louder}, map[string]any{"$fn": string(rune('a' + i))}},
		})
		require.NoError(t, err)
		sb.WriteString(frame(string(payload)))
	}
	h.write(t, sb.String())

	lines := h.settle(t)
	require.Len(t, lines, 40)

	seen := map[string]int{}
	for _, line := range lines {
		id, ok := line["callback"].(string)
		if !ok {
			continue
		}
		seen[id]++
		want := greeting
		if (rune(id[0])-'a')%2 == 0 {
			want += "!!!!"
		}
		assert.Equal(t, []any{nil, want}, line["args"], "callback %s", id)
	}
	assert.Len(t, seen, 20)
	for id, n := range seen {
		assert.Equal(t, 1, n, "callback %s invoked %d times", id, n)
	}
}

func TestCallAfterLoopClosed(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.loop.Close())

	h.write(t, frame(`{"id":"9","fn":"helloAsync","args":[{},{"$fn":"cb"}]}`))

	lines := h.settle(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "9", lines[0]["id"])
	assert.Equal(t, loop.ErrClosed.Error(), lines[0]["error"])
}
