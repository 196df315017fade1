package executor

import (
	"time"

	"github.com/caffeineduck/hostasync/loop"
	"go.uber.org/zap"
)

// Option configures a single Run.
type Option func(*runConfig)

type runConfig struct {
	timeout     time.Duration
	loopOptions []loop.Option
	env         map[string]string
}

func defaultRunConfig() runConfig {
	return runConfig{
		timeout: 30 * time.Second,
		env:     make(map[string]string),
	}
}

// WithTimeout sets the maximum execution time. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.timeout = d
	}
}

// WithLoopOptions configures the loop that serves the guest's calls.
//
//	executor.WithLoopOptions(loop.WithWorkers(4), loop.WithMetrics(reg))
func WithLoopOptions(opts ...loop.Option) Option {
	return func(c *runConfig) {
		c.loopOptions = append(c.loopOptions, opts...)
	}
}

// WithEnv sets an environment variable visible to the guest.
func WithEnv(key, value string) Option {
	return func(c *runConfig) {
		c.env[key] = value
	}
}

// ExecutorOption configures the Executor at creation time.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	diskCache        bool
	cacheDir         string
	precompile       []Guest
	memoryLimitPages uint32 // 64KB pages, 0 = wazero default (4GB)
	logger           *zap.Logger
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{}
}

// WithDiskCache enables a persistent compilation cache. Without a directory
// it uses $XDG_CACHE_HOME/hostasync or ~/.cache/hostasync.
//
//	executor.New(registry, executor.WithDiskCache())
//	executor.New(registry, executor.WithDiskCache("/tmp/cache"))
func WithDiskCache(dir ...string) ExecutorOption {
	return func(c *executorConfig) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithPrecompile compiles guests when the Executor is created instead of on
// their first Run.
func WithPrecompile(guests ...Guest) ExecutorOption {
	return func(c *executorConfig) {
		c.precompile = guests
	}
}

// WithMemoryLimit caps guest memory, in 64KB pages.
func WithMemoryLimit(pages uint32) ExecutorOption {
	return func(c *executorConfig) {
		c.memoryLimitPages = pages
	}
}

// WithLogger sets the logger used for the Executor and its bridges.
func WithLogger(l *zap.Logger) ExecutorOption {
	return func(c *executorConfig) {
		c.logger = l
	}
}

const (
	MemoryLimit1MB   uint32 = 16
	MemoryLimit16MB  uint32 = 256
	MemoryLimit64MB  uint32 = 1024
	MemoryLimit256MB uint32 = 4096
	MemoryLimit1GB   uint32 = 16384
)
