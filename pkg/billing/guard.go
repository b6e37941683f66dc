package billing

import "sync/atomic"

// opGuard serializes mutating operations of one class. A second call while
// the guard is held is rejected immediately, never queued, so a
// double-submitted click cannot silently reorder user intent.
type opGuard struct {
	busy atomic.Bool
}

// tryAcquire takes the guard if it is free. The caller must release in all
// exit paths.
func (g *opGuard) tryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// release frees the guard unconditionally
func (g *opGuard) release() {
	g.busy.Store(false)
}

// held reports whether the guard is currently taken
func (g *opGuard) held() bool {
	return g.busy.Load()
}
