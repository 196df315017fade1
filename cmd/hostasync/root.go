package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/caffeineduck/hostasync/executor"
	"github.com/caffeineduck/hostasync/hostfunc"
	"github.com/caffeineduck/hostasync/loop"
	"github.com/caffeineduck/hostasync/standalone"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is the state shared by all commands of one invocation.
type app struct {
	cfg      Config
	log      *zap.Logger
	registry *hostfunc.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "hostasync",
		Short: "Asynchronous host functions on a worker pool",
		Long: `hostasync - call helloAsync, an asynchronous host function.

helloAsync(options, callback) returns at once; the greeting is computed on a
pool of worker goroutines and delivered to the error-first callback on the
event loop. Call it directly, from a WASI guest module, or interactively.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "YAML config file")
	pf.String("log-level", "", "Log level: debug, info, warn, error (default: off)")
	pf.Int("workers", 0, "Worker pool size (default: number of CPUs)")
	pf.Duration("timeout", DefaultConfig().Timeout, "Execution timeout")
	pf.Bool("stats", false, "Print worker pool metrics when done")

	cmd.AddCommand(newCallCmd(a), newRunCmd(a), newReplCmd(a))
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	cfg := DefaultConfig()
	if path, _ := flags.GetString("config"); path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return err
		}
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}
	a.cfg = cfg

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.log = log

	a.registry = hostfunc.NewRegistry()
	standalone.Register(a.registry)
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	switch strings.ToLower(level) {
	case "", "off", "none":
		return zap.NewNop(), nil
	case "debug":
		return zap.NewDevelopment()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}

// loopOptions turns the configuration into loop options. reg is nil
// unless --stats was given.
func (a *app) loopOptions(reg *prometheus.Registry) []loop.Option {
	opts := []loop.Option{loop.WithLogger(a.log)}
	if a.cfg.Workers > 0 {
		opts = append(opts, loop.WithWorkers(a.cfg.Workers))
	}
	if reg != nil {
		opts = append(opts, loop.WithMetrics(reg))
	}
	return opts
}

// statsRegistry returns a registry when --stats was given.
func statsRegistry(cmd *cobra.Command) *prometheus.Registry {
	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		return prometheus.NewRegistry()
	}
	return nil
}

func parseMemoryLimit(s string) uint32 {
	switch strings.ToLower(s) {
	case "1mb":
		return executor.MemoryLimit1MB
	case "16mb":
		return executor.MemoryLimit16MB
	case "64mb":
		return executor.MemoryLimit64MB
	case "256mb":
		return executor.MemoryLimit256MB
	case "1gb":
		return executor.MemoryLimit1GB
	default:
		return 0 // use default
	}
}
