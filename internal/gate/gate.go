// Package gate tracks the last content hash acted on in one direction so that
// repeated publishes or applies of the same content are suppressed.
package gate

import "sync"

// Gate holds a single last-seen hash. The zero value is ready to use and
// acts on any hash. Safe for concurrent use.
type Gate struct {
	mu   sync.Mutex
	last string
}

// ShouldAct reports whether hash differs from the stored value.
func (g *Gate) ShouldAct(hash string) bool {
	_, act := g.Check(hash)
	return act
}

// Check returns the stored value and whether hash differs from it.
func (g *Gate) Check(hash string) (prev string, act bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last, hash != g.last
}

// Record overwrites the stored value.
func (g *Gate) Record(hash string) {
	g.mu.Lock()
	g.last = hash
	g.mu.Unlock()
}

// Commit records hash only if the stored value is still prev, i.e. nobody
// recorded anything since the matching Check. Reports whether it stored.
func (g *Gate) Commit(prev, hash string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last != prev {
		return false
	}
	g.last = hash
	return true
}

// Last returns the stored value.
func (g *Gate) Last() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}
