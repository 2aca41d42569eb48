package executor

import "time"

// Options configures the batch execution engine.
type Options struct {
	// PoolMinSize is the minimum number of idle connections to maintain.
	// Default: 1
	PoolMinSize int

	// PoolMaxSize is the maximum number of open connections. It also caps
	// MaxConcurrent when that is left at zero.
	// Default: 10
	PoolMaxSize int

	// AcquireTimeout bounds how long a statement waits for a connection
	// from the pool before failing with a pool-exhaustion error.
	// Default: 10s
	AcquireTimeout time.Duration

	// CommandTimeout is the per-statement execution timeout applied when a
	// statement does not carry its own override.
	// Default: 30s
	CommandTimeout time.Duration

	// MaxConcurrent bounds how many statements may be mid-flight at once in
	// concurrent mode. Zero means "use PoolMaxSize".
	// Default: 0
	MaxConcurrent int

	// PoolIdleTimeout is the duration after which surplus idle connections
	// are closed by the pool's cleanup worker.
	// Default: 5m
	PoolIdleTimeout time.Duration

	// Logger is the logging sink. If nil, a logrus-backed logger writing to
	// the logrus standard logger is used.
	Logger Logger
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		PoolMinSize:     1,
		PoolMaxSize:     10,
		AcquireTimeout:  10 * time.Second,
		CommandTimeout:  30 * time.Second,
		MaxConcurrent:   0,
		PoolIdleTimeout: 5 * time.Minute,
	}
}

// validate normalizes and checks option values, reporting a ConfigError for
// combinations that cannot produce a working engine.
func (o *Options) validate() error {
	if o.PoolMinSize < 0 {
		o.PoolMinSize = 0
	}
	if o.PoolMaxSize < 1 {
		return &ConfigError{Message: "pool max size must be at least 1"}
	}
	if o.PoolMinSize > o.PoolMaxSize {
		o.PoolMinSize = o.PoolMaxSize
	}
	if o.MaxConcurrent < 0 {
		return &ConfigError{Message: "max concurrent must not be negative"}
	}
	if o.MaxConcurrent == 0 {
		o.MaxConcurrent = o.PoolMaxSize
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = 10 * time.Second
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = 30 * time.Second
	}
	if o.PoolIdleTimeout <= 0 {
		o.PoolIdleTimeout = 5 * time.Minute
	}
	if o.Logger == nil {
		o.Logger = NewLogrusLogger(nil)
	}
	return nil
}
