package loop

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures a Loop at creation time.
type Option func(*config)

type config struct {
	workers  int
	logger   *zap.Logger
	registry prometheus.Registerer
}

func defaultConfig() config {
	return config{
		workers: runtime.GOMAXPROCS(0),
	}
}

// WithWorkers sets the number of pool goroutines running Execute phases.
// Values below 1 are treated as 1.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = 1
		}
		c.workers = n
	}
}

// WithLogger overrides the package logger for this loop.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMetrics registers the loop's collectors with reg. Loops sharing reg
// share the collectors.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.registry = reg
	}
}
