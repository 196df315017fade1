package main

import (
	"context"
	"fmt"

	"github.com/caffeineduck/hostasync/executor"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <module.wasm> [args...]",
		Short: "Run a WASI guest module that calls helloAsync",
		Long: `Run a WASI guest module with helloAsync available through the host
bridge. The guest writes call frames to stderr and reads responses and
callback results from stdin:

  hostasync run guest.wasm
  hostasync run --memory 64mb --timeout 5s guest.wasm arg1 arg2

The command exits when the guest exits and every callback has been
delivered.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runRun,
	}

	cmd.Flags().String("memory", "", "Memory limit: 1mb, 16mb, 64mb, 256mb, 1gb (default 256mb)")
	cmd.Flags().Bool("no-cache", false, "Disable compilation cache")
	return cmd
}

func (a *app) runRun(cmd *cobra.Command, args []string) error {
	noCache, _ := cmd.Flags().GetBool("no-cache")
	memory := a.cfg.Memory
	if cmd.Flags().Changed("memory") {
		memory, _ = cmd.Flags().GetString("memory")
	}

	guest, err := executor.LoadGuest(args[0], args[1:]...)
	if err != nil {
		return err
	}

	execOpts := []executor.ExecutorOption{executor.WithLogger(a.log)}
	if !noCache {
		execOpts = append(execOpts, executor.WithDiskCache())
	}
	if pages := parseMemoryLimit(memory); pages > 0 {
		execOpts = append(execOpts, executor.WithMemoryLimit(pages))
	}

	exec, err := executor.New(a.registry, execOpts...)
	if err != nil {
		return err
	}
	defer exec.Close()

	reg := statsRegistry(cmd)
	result := exec.Run(context.Background(), guest,
		executor.WithTimeout(a.cfg.Timeout),
		executor.WithLoopOptions(a.loopOptions(reg)...))

	fmt.Fprint(cmd.OutOrStdout(), result.Output)
	if reg != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "host calls %d\n", result.Calls)
		printStats(cmd.OutOrStdout(), reg)
	}
	return result.Error
}
