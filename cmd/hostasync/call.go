package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/caffeineduck/hostasync/hostfunc"
	"github.com/caffeineduck/hostasync/loop"
	"github.com/caffeineduck/hostasync/standalone"
	"github.com/caffeineduck/hostasync/value"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newCallCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call [options-json]",
		Short: "Invoke helloAsync and print the callback results",
		Long: `Invoke helloAsync on a local event loop and print what each callback
receives.

Options come from a JSON argument, flags, or both (flags win):
  hostasync call
  hostasync call --louder
  hostasync call '{"louder":true,"buffer":true}'
  hostasync call --count 100 --stats

Invalid options, such as a non-boolean "louder", are reported through the
callback like any other failure.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runCall,
	}

	cmd.Flags().Bool("louder", false, "Append emphasis to the greeting")
	cmd.Flags().Bool("buffer", false, "Receive the greeting as a byte buffer")
	cmd.Flags().IntP("count", "n", 1, "Number of concurrent invocations")
	return cmd
}

func (a *app) runCall(cmd *cobra.Command, args []string) error {
	opts, err := callOptions(cmd, args)
	if err != nil {
		return err
	}
	count, _ := cmd.Flags().GetInt("count")
	if count < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	reg := statsRegistry(cmd)
	l := loop.New(a.loopOptions(reg)...)
	defer l.Close()

	ctx := context.Background()
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	failed, err := a.invoke(ctx, l, opts, count, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if reg != nil {
		printStats(cmd.OutOrStdout(), reg)
	}
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d calls failed", failed, count)
	}
	return nil
}

// callOptions builds the options argument from the JSON argument and the
// --louder/--buffer flags. A JSON value that is not an object is passed on
// as is, so helloAsync reports it.
func callOptions(cmd *cobra.Command, args []string) (value.Value, error) {
	fields := map[string]value.Value{}

	if len(args) > 0 {
		var raw any
		if err := json.Unmarshal([]byte(args[0]), &raw); err != nil {
			return value.Undefined(), fmt.Errorf("parse options: %w", err)
		}
		v, err := value.FromJSON(raw, nil)
		if err != nil {
			return value.Undefined(), fmt.Errorf("parse options: %w", err)
		}
		if !v.IsObject() {
			return v, nil
		}
		for _, k := range v.Keys() {
			fields[k], _ = v.Get(k)
		}
	}

	for _, name := range []string{"louder", "buffer"} {
		if cmd.Flags().Changed(name) {
			b, _ := cmd.Flags().GetBool(name)
			fields[name] = value.Bool(b)
		}
	}
	return value.Object(fields), nil
}

// invoke calls helloAsync count times on l and waits for every callback.
// It returns how many calls failed.
func (a *app) invoke(ctx context.Context, l *loop.Loop, opts value.Value, count int, out, errOut io.Writer) (int, error) {
	failed := 0

	callback := value.Func(func(_ *loop.Env, args ...value.Value) {
		if !args[0].IsNull() {
			fmt.Fprintf(errOut, "error: %s\n", args[0])
			failed++
			return
		}
		fmt.Fprintln(out, formatResult(args[1]))
	})

	for range count {
		err := l.Submit(func(env *loop.Env) {
			_, err := a.registry.Call(env, standalone.FuncName, []value.Value{opts, callback})
			if err == nil {
				return
			}
			var typeErr *hostfunc.TypeError
			if errors.As(err, &typeErr) {
				fmt.Fprintf(errOut, "TypeError: %s\n", typeErr.Msg)
			} else {
				fmt.Fprintf(errOut, "error: %v\n", err)
			}
			failed++
		})
		if err != nil {
			return failed, err
		}
	}

	if err := l.RunUntilIdle(ctx); err != nil {
		return failed, fmt.Errorf("wait for callbacks: %w", err)
	}
	return failed, nil
}

func formatResult(v value.Value) string {
	if v.IsBuffer() {
		return fmt.Sprintf("buffer(%d): %s", len(v.Bytes()), v.Bytes())
	}
	return v.String()
}

// printStats writes the current value of every collector in reg.
func printStats(w io.Writer, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		fmt.Fprintf(w, "stats unavailable: %v\n", err)
		return
	}

	lines := make([]string, 0, len(families))
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", mf.GetName(), m.GetCounter().GetValue()))
			case m.GetGauge() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", mf.GetName(), m.GetGauge().GetValue()))
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				lines = append(lines, fmt.Sprintf("%s_count %d", mf.GetName(), h.GetSampleCount()))
				lines = append(lines, fmt.Sprintf("%s_sum %g", mf.GetName(), h.GetSampleSum()))
			}
		}
	}
	slices.Sort(lines)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
