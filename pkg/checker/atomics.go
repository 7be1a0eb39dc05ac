package checker

import (
	"sync"
	"sync/atomic"
)

// int64Counter is a tiny named wrapper around atomic.Int64 so call sites
// read as counters rather than raw atomics.
type int64Counter struct{ v atomic.Int64 }

func (c *int64Counter) Add(delta int64) { c.v.Add(delta) }
func (c *int64Counter) Load() int64     { return c.v.Load() }

// boolFlag is a tiny named wrapper around atomic.Bool.
type boolFlag struct{ v atomic.Bool }

func (b *boolFlag) Set()         { b.v.Store(true) }
func (b *boolFlag) Get() bool    { return b.v.Load() }

// errorBox stores at most one error: the first writer wins, later
// SetOnce calls are no-ops. Used to report the first worker failure
// without a data race among concurrently-failing goroutines.
type errorBox struct {
	mu  sync.Mutex
	err error
}

func (b *errorBox) SetOnce(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
}

func (b *errorBox) Get() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
