// Package ratelimit implements the per-client, per-operation fixed-window
// gate placed in front of the expensive label and chat operations.
//
// A Gate is process-wide state created at startup. Each (operation, client)
// pair owns an independent counter; entries are reclaimed lazily once their
// window has passed, either opportunistically during Check or by Run.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Key identifies one counter.
type Key struct {
	Operation string
	Client    string
}

// Config is the allowance for one operation.
type Config struct {
	Window      time.Duration
	MaxRequests int
}

// Decision is the outcome of a single Check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

type state struct {
	count       int
	windowStart time.Time
	window      time.Duration
}

func (s *state) expired(now time.Time) bool {
	return !now.Before(s.windowStart.Add(s.window))
}

// Gate holds every live counter behind a single mutex.
type Gate struct {
	mu      sync.Mutex
	entries map[Key]*state
	clock   func() time.Time

	checks     uint64
	sweepEvery uint64
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.clock = now
		}
	}
}

// WithSweepEvery sets how many checks pass between opportunistic sweeps.
// Zero disables them.
func WithSweepEvery(n uint64) Option {
	return func(g *Gate) { g.sweepEvery = n }
}

// New returns an empty gate.
func New(opts ...Option) *Gate {
	g := &Gate{
		entries:    make(map[Key]*state),
		clock:      time.Now,
		sweepEvery: 5000,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Check counts one request against key and reports whether it may proceed.
//
// The window restarts only once it has fully elapsed. The counter is
// incremented even when the request is rejected, so the request that tips
// the limit counts against it. Check never blocks beyond the mutex.
func (g *Gate) Check(key Key, cfg Config) Decision {
	if cfg.MaxRequests < 1 {
		cfg.MaxRequests = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	g.checks++
	if g.sweepEvery > 0 && g.checks%g.sweepEvery == 0 {
		g.sweepLocked(now)
	}

	st, ok := g.entries[key]
	if !ok || st.expired(now) {
		if !ok {
			st = &state{}
			g.entries[key] = st
		}
		st.count = 0
		st.windowStart = now
	}
	st.window = cfg.Window
	st.count++

	resetIn := st.windowStart.Add(st.window).Sub(now)
	remaining := cfg.MaxRequests - st.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   st.count <= cfg.MaxRequests,
		Limit:     cfg.MaxRequests,
		Remaining: remaining,
		ResetIn:   resetIn,
	}
}

// Sweep drops every entry whose window has elapsed and returns how many
// were removed.
func (g *Gate) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sweepLocked(g.clock())
}

// Len reports the number of tracked keys.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (g *Gate) sweepLocked(now time.Time) int {
	n := 0
	for k, st := range g.entries {
		if st.expired(now) {
			delete(g.entries, k)
			n++
		}
	}
	return n
}

// Run sweeps expired entries every interval until ctx is done.
func (g *Gate) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			g.Sweep()
		}
	}
}
