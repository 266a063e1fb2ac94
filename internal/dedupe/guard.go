// internal/dedupe/guard.go
package dedupe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/user/gitscout/internal/types"
)

// DefaultWindow is the cool-down during which an identical (session, query)
// resubmission is rejected.
const DefaultWindow = 30 * time.Second

// Guard rejects a second identical (session, query) pair submitted while the
// first is still within the cool-down window. Admit is an atomic
// check-and-insert; a background sweeper drops expired entries independent of
// the original request's lifetime.
type Guard struct {
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	inflight map[string]time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Guard with the given cool-down window (DefaultWindow when
// non-positive).
func New(window time.Duration) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Guard{
		window:   window,
		now:      time.Now,
		inflight: make(map[string]time.Time),
	}
}

func key(sessionID types.SessionID, query string) string {
	return string(sessionID) + ":" + query
}

// Admit reports whether the request may proceed. A duplicate submitted within
// the window is rejected; anything else is recorded and admitted.
func (g *Guard) Admit(sessionID types.SessionID, query string) bool {
	k := key(sessionID, query)
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if submitted, ok := g.inflight[k]; ok && now.Sub(submitted) < g.window {
		return false
	}
	g.inflight[k] = now
	return true
}

// Forget drops the entry for the pair, re-admitting it immediately. Used when
// a request fails before any session state is touched.
func (g *Guard) Forget(sessionID types.SessionID, query string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, key(sessionID, query))
}

// Len returns the number of tracked entries.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}

// Start launches the background sweeper. Must be called before Stop.
func (g *Guard) Start(ctx context.Context) {
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.wg.Add(1)
	go g.sweepLoop()
}

// Stop cancels the sweeper and waits for it to exit.
func (g *Guard) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.wg.Wait()
}

func (g *Guard) sweepLoop() {
	defer g.wg.Done()

	interval := g.window / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := g.sweep(); n > 0 {
				slog.Debug("dedupe sweep", "removed", n)
			}
		case <-g.ctx.Done():
			return
		}
	}
}

// sweep removes entries older than the window and returns how many were
// removed.
func (g *Guard) sweep() int {
	cutoff := g.now().Add(-g.window)

	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for k, submitted := range g.inflight {
		if submitted.Before(cutoff) {
			delete(g.inflight, k)
			removed++
		}
	}
	return removed
}
