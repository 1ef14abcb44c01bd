package guardian

import (
	"context"
	"sync"
	"time"

	"github.com/frostfed/guardian/internal/frost"
)

// pollInterval bounds how often a ceremony coroutine checks an inbox
// for new arrivals.
const pollInterval = 50 * time.Millisecond

// round1Inbox and round2Inbox hold the packages a ceremony coroutine
// receives from peers during DKG or refresh. Writers are the /dkg/* and
// /refresh/* HTTP handlers; the sole reader is the ceremony coroutine
// polling until it has heard from every peer. Each Daemon creates its
// inboxes once in New; they are not cleared after finalization.
type round1Inbox struct {
	mu   sync.Mutex
	data map[frost.Identifier]frost.DkgRound1Package
}

func newRound1Inbox() *round1Inbox {
	return &round1Inbox{data: make(map[frost.Identifier]frost.DkgRound1Package)}
}

func (b *round1Inbox) put(id frost.Identifier, pkg frost.DkgRound1Package) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[id] = pkg
}

func (b *round1Inbox) snapshot() map[frost.Identifier]frost.DkgRound1Package {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[frost.Identifier]frost.DkgRound1Package, len(b.data))
	for k, v := range b.data {
		out[k] = v
	}
	return out
}

func (b *round1Inbox) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// awaitAtLeast polls until len(inbox) >= n or ctx is done.
func (b *round1Inbox) awaitAtLeast(ctx context.Context, n int) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if b.len() >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type round2Inbox struct {
	mu   sync.Mutex
	data map[frost.Identifier]frost.DkgRound2Package
}

func newRound2Inbox() *round2Inbox {
	return &round2Inbox{data: make(map[frost.Identifier]frost.DkgRound2Package)}
}

func (b *round2Inbox) put(id frost.Identifier, pkg frost.DkgRound2Package) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[id] = pkg
}

func (b *round2Inbox) snapshot() map[frost.Identifier]frost.DkgRound2Package {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[frost.Identifier]frost.DkgRound2Package, len(b.data))
	for k, v := range b.data {
		out[k] = v
	}
	return out
}

func (b *round2Inbox) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

func (b *round2Inbox) awaitAtLeast(ctx context.Context, n int) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if b.len() >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
