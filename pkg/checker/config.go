// Package checker drives a parsed proof through a pool of worker
// goroutines, each owning its own subproof context stack over a shared
// registry, dispatching every step to internal/rules and stopping the
// whole run on the first failure.
package checker

import (
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
)

// Config controls a Check run. Build one with NewConfig and the With*
// options.
type Config struct {
	Workers          int
	Strict           bool
	SkipUnknownRules bool
	Logger           *logrus.Logger
}

// Option configures a Config.
type Option func(*Config)

// NewConfig builds a Config with sane defaults (one worker per CPU, a
// discarding logger, strict mode on) and applies opts over them.
func NewConfig(opts ...Option) Config {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	cfg := Config{
		Workers: runtime.GOMAXPROCS(0),
		Strict:  true,
		Logger:  discard,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = discard
	}
	return cfg
}

// WithWorkers sets the number of worker goroutines.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithStrict toggles strict mode: an unreached empty clause is an error.
// Strict is on by default; WithStrict(false) disables it for checking
// partial/exploratory proofs.
func WithStrict(strict bool) Option {
	return func(c *Config) { c.Strict = strict }
}

// WithSkipUnknownRules treats unrecognized rule names as holes instead of
// failing the check.
func WithSkipUnknownRules() Option {
	return func(c *Config) { c.SkipUnknownRules = true }
}

// WithLogger installs a structured logger. A nil logger is replaced by a
// discard logger rather than left nil, so call sites never need a nil
// check.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}
