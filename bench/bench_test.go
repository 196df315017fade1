// Package bench measures the cost of helloAsync round trips.
//
// Benchmarks: go test -bench=. -benchtime=3x ./bench/
package bench

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"testing"

	"github.com/caffeineduck/hostasync/bridge"
	"github.com/caffeineduck/hostasync/greeting"
	"github.com/caffeineduck/hostasync/hostfunc"
	"github.com/caffeineduck/hostasync/loop"
	"github.com/caffeineduck/hostasync/standalone"
	"github.com/caffeineduck/hostasync/value"
)

var louder = value.Object(map[string]value.Value{"louder": value.Bool(true)})

// --- Baseline: the computation alone, no loop or pool ---

func BenchmarkDoExpensiveWork(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := greeting.DoExpensiveWork(standalone.Subject, true); err != nil {
			b.Fatal(err)
		}
	}
}

// --- helloAsync through a warm loop ---

func runCalls(b *testing.B, l *loop.Loop, calls int) {
	b.Helper()
	done := 0
	cb := value.Func(func(_ *loop.Env, args ...value.Value) {
		if !args[0].IsNull() {
			b.Errorf("callback error: %v", args[0])
		}
		done++
	})

	for range calls {
		if err := l.Submit(func(env *loop.Env) {
			if _, err := standalone.HelloAsync(env, []value.Value{louder, cb}); err != nil {
				b.Error(err)
			}
		}); err != nil {
			b.Fatal(err)
		}
	}
	if err := l.RunUntilIdle(context.Background()); err != nil {
		b.Fatal(err)
	}
	if done != calls {
		b.Fatalf("callbacks = %d, want %d", done, calls)
	}
}

func BenchmarkHelloAsync_Sequential(b *testing.B) {
	l := loop.New()
	defer l.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runCalls(b, l, 1)
	}
}

func BenchmarkHelloAsync_Concurrent(b *testing.B) {
	for _, calls := range []int{10, 100} {
		b.Run(fmt.Sprintf("calls=%d", calls), func(b *testing.B) {
			l := loop.New()
			defer l.Close()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				runCalls(b, l, calls)
			}
		})
	}
}

func BenchmarkHelloAsync_Workers(b *testing.B) {
	for _, workers := range []int{1, 2, runtime.GOMAXPROCS(0)} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			l := loop.New(loop.WithWorkers(workers))
			defer l.Close()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				runCalls(b, l, 100)
			}
		})
	}
}

// --- Loop overhead without the computation ---

func BenchmarkLoopSubmit(b *testing.B) {
	l := loop.New()
	defer l.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Submit(func(*loop.Env) {})
	}
	if err := l.RunUntilIdle(context.Background()); err != nil {
		b.Fatal(err)
	}
}

// --- Full bridge round trip: frame in, response and callback lines out ---

func BenchmarkBridgeRoundTrip(b *testing.B) {
	reg := hostfunc.NewRegistry()
	standalone.Register(reg)

	l := loop.New()
	defer l.Close()
	br := bridge.New(l, reg, io.Discard)
	defer br.Close()

	frame := []byte("\x00HOSTASYNC:{\"id\":\"1\",\"fn\":\"helloAsync\",\"args\":[{\"louder\":true},{\"$fn\":\"cb\"}]}\x00")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := br.Write(frame); err != nil {
			b.Fatal(err)
		}
		if err := l.RunUntilIdle(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}
