package guardian

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/frostfed/guardian/internal/frost"
	"github.com/frostfed/guardian/internal/metrics"
)

// NonceTTL is the maximum age of a committed-pending session before it
// is evicted.
const NonceTTL = 30 * time.Second

type nonceEntry struct {
	nonces     frost.SigningNonces
	insertedAt time.Time
}

// nonceCache is the per-guardian session_id -> nonces table. Insertion
// evicts expired entries first (lazy eviction); removal happens
// unconditionally as part of round2 so a session can be consumed at
// most once.
type nonceCache struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	entries map[string]nonceEntry
}

func newNonceCache(clock clockwork.Clock) *nonceCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &nonceCache{clock: clock, entries: make(map[string]nonceEntry)}
}

// insert evicts anything older than NonceTTL, then stores the given
// nonces under sessionID. Returns false if sessionID is already live
// (a second /round1 for an in-flight session is refused).
func (c *nonceCache) insert(sessionID string, nonces frost.SigningNonces) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for id, e := range c.entries {
		if now.Sub(e.insertedAt) > NonceTTL {
			delete(c.entries, id)
		}
	}
	if _, exists := c.entries[sessionID]; exists {
		metrics.NonceCacheSize.Set(float64(len(c.entries)))
		return false
	}
	c.entries[sessionID] = nonceEntry{nonces: nonces, insertedAt: now}
	metrics.NonceCacheSize.Set(float64(len(c.entries)))
	return true
}

// take removes and returns the nonces for sessionID, or ok=false if
// absent or already expired.
func (c *nonceCache) take(sessionID string) (frost.SigningNonces, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[sessionID]
	if ok {
		delete(c.entries, sessionID)
	}
	metrics.NonceCacheSize.Set(float64(len(c.entries)))
	if !ok {
		return frost.SigningNonces{}, false
	}
	if c.clock.Now().Sub(e.insertedAt) > NonceTTL {
		return frost.SigningNonces{}, false
	}
	return e.nonces, true
}
