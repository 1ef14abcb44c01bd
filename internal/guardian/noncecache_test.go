package guardian

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/frostfed/guardian/internal/frost"
)

func TestNonceCacheRejectsDuplicateSession(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newNonceCache(clock)

	ok := c.insert("session-1", frost.SigningNonces{})
	require.True(t, ok)

	ok = c.insert("session-1", frost.SigningNonces{})
	require.False(t, ok)
}

func TestNonceCacheTakeRemovesEntry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newNonceCache(clock)
	require.True(t, c.insert("session-1", frost.SigningNonces{}))

	_, ok := c.take("session-1")
	require.True(t, ok)

	_, ok = c.take("session-1")
	require.False(t, ok)
}

func TestNonceCacheEvictsAfterTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newNonceCache(clock)
	require.True(t, c.insert("stale", frost.SigningNonces{}))

	clock.Advance(NonceTTL + 1)

	_, ok := c.take("stale")
	require.False(t, ok, "expired entry must not be returned")
}

func TestNonceCacheLazyEvictionOnInsert(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newNonceCache(clock)
	require.True(t, c.insert("old", frost.SigningNonces{}))

	clock.Advance(NonceTTL + 1)
	require.True(t, c.insert("new", frost.SigningNonces{}))

	_, ok := c.take("old")
	require.False(t, ok, "lazy eviction on insert should have dropped the stale entry")
}
