package paygate

import "sync"

// ReplayGuard tracks consumed on-chain payment credentials. A credential id,
// once marked, is never usable again. MarkIfAbsent is the single atomic
// check-and-mark; callers must treat a false return as a replay even if an
// earlier Seen call reported the id as fresh, since two requests can race
// between the check and the mark.
//
// Guards are process-scoped unless backed by external storage; they hold no
// durability guarantee across restarts.
type ReplayGuard interface {
	// Seen reports whether id has already been consumed. Read-only; used to
	// reject obvious replays before any chain lookup is made.
	Seen(id string) bool

	// MarkIfAbsent atomically consumes id. Returns true if this call
	// consumed it, false if it was already consumed.
	MarkIfAbsent(id string) bool
}

// MemoryReplayGuard is an in-memory ReplayGuard safe for concurrent use.
type MemoryReplayGuard struct {
	mu       sync.Mutex
	consumed map[string]struct{}
}

// NewMemoryReplayGuard creates an empty in-memory replay guard.
func NewMemoryReplayGuard() *MemoryReplayGuard {
	return &MemoryReplayGuard{consumed: make(map[string]struct{})}
}

// Seen reports whether id has already been consumed.
func (g *MemoryReplayGuard) Seen(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.consumed[id]
	return ok
}

// MarkIfAbsent atomically consumes id, returning false if already consumed.
func (g *MemoryReplayGuard) MarkIfAbsent(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.consumed[id]; ok {
		return false
	}
	g.consumed[id] = struct{}{}
	return true
}
