package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caffeineduck/hostasync/bridge"
	"github.com/caffeineduck/hostasync/hostfunc"
	"github.com/caffeineduck/hostasync/loop"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
)

// Result holds the output and metadata of one guest run.
type Result struct {
	Output   string
	Duration time.Duration
	// Calls is the number of host function calls the guest made.
	Calls    int64
	ExitCode uint32
	Error    error
}

// Executor manages the WASM runtime and compiled guest caching.
type Executor struct {
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	compiled map[string]wazero.CompiledModule
	registry *hostfunc.Registry
	log      *zap.Logger
	mu       sync.RWMutex
	closed   bool
}

// New creates an Executor whose guests can call the functions in registry.
func New(registry *hostfunc.Registry, opts ...ExecutorOption) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := context.Background()

	var cache wazero.CompilationCache
	var err error

	if cfg.diskCache {
		cacheDir := cfg.cacheDir
		if cacheDir == "" {
			cacheDir = defaultCacheDir()
		}
		cache, err = wazero.NewCompilationCacheWithDir(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		if cache != nil {
			cache.Close(ctx)
		}
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	if registry == nil {
		registry = hostfunc.NewRegistry()
	}
	log := cfg.logger
	if log == nil {
		log = loop.Logger()
	}

	e := &Executor{
		runtime:  rt,
		cache:    cache,
		compiled: make(map[string]wazero.CompiledModule),
		registry: registry,
		log:      log,
	}

	for _, guest := range cfg.precompile {
		if _, err := e.getCompiled(ctx, guest); err != nil {
			e.Close()
			return nil, fmt.Errorf("precompile %s: %w", guest.Name(), err)
		}
	}

	return e, nil
}

// Run starts guest with the bridge on its stdio and serves its host calls
// on a fresh loop. It returns once the guest has exited and every callback
// it triggered has been delivered or dropped.
func (e *Executor) Run(ctx context.Context, guest Guest, opts ...Option) Result {
	start := time.Now()

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	compiled, err := e.getCompiled(ctx, guest)
	if err != nil {
		return Result{Error: err, Duration: time.Since(start)}
	}

	l := loop.New(append([]loop.Option{loop.WithLogger(e.log)}, cfg.loopOptions...)...)

	var stdout bytes.Buffer
	stdinReader, stdinWriter := io.Pipe()
	br := bridge.New(l, e.registry, stdinWriter, bridge.WithLogger(e.log))

	moduleConfig := wazero.NewModuleConfig().
		WithStdout(&stdout).
		WithStderr(br).
		WithStdin(stdinReader).
		WithArgs(append([]string{guest.Name()}, guest.Args()...)...).
		WithName("")

	for k, v := range cfg.env {
		moduleConfig = moduleConfig.WithEnv(k, v)
	}

	e.log.Debug("starting guest", zap.String("guest", guest.Name()))

	errCh := make(chan error, 1)
	go func() {
		_, err := e.runtime.InstantiateModule(ctx, compiled, moduleConfig)
		// The guest is gone: finish in-flight work and let Run drain.
		if cerr := l.Close(); cerr != nil {
			e.log.Warn("close loop", zap.Error(cerr))
		}
		errCh <- err
	}()

	loopErr := l.Run(ctx)
	err = <-errCh

	stdinReader.Close()
	stdinWriter.Close()
	br.Close()

	result := Result{
		Output:   stdout.String() + br.Stderr(),
		Duration: time.Since(start),
		Calls:    br.Calls(),
	}

	var exitErr *sys.ExitError
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		result.Error = fmt.Errorf("timeout after %v", cfg.timeout)
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		if result.ExitCode != 0 {
			result.Error = fmt.Errorf("guest exited with code %d", result.ExitCode)
		}
	case err != nil:
		result.Error = fmt.Errorf("execution failed: %w", err)
	case loopErr != nil:
		result.Error = fmt.Errorf("serve host calls: %w", loopErr)
	}

	e.log.Debug("guest finished",
		zap.String("guest", guest.Name()),
		zap.Duration("duration", result.Duration),
		zap.Int64("calls", result.Calls),
		zap.Error(result.Error))

	return result
}

// getCompiled returns a cached compiled module, compiling if necessary.
func (e *Executor) getCompiled(ctx context.Context, guest Guest) (wazero.CompiledModule, error) {
	name := guest.Name()

	e.mu.RLock()
	if compiled, ok := e.compiled[name]; ok {
		e.mu.RUnlock()
		return compiled, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if compiled, ok := e.compiled[name]; ok {
		return compiled, nil
	}

	compiled, err := e.runtime.CompileModule(ctx, guest.Module())
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}

	e.compiled[name] = compiled
	return compiled, nil
}

// Close releases all resources held by the Executor.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	ctx := context.Background()

	var errs []error
	if err := e.runtime.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if e.cache != nil {
		if err := e.cache.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "hostasync")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "hostasync")
	}
	return filepath.Join(os.TempDir(), "hostasync-cache")
}
