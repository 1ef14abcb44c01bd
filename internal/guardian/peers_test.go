package guardian

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/frostfed/guardian/internal/frost"
)

func TestNewPeerTableMapsAscendingIndexOrder(t *testing.T) {
	// myIndex=2 in a 4-party topology: identifiers {1,3,4} map in order
	// to the three peer URLs given.
	pt, err := NewPeerTable(2, 4, []string{"http://n1", "http://n3", "http://n4"})
	require.NoError(t, err)

	url, ok := pt.URLFor(frost.MustIdentifier(1))
	require.True(t, ok)
	require.Equal(t, "http://n1", url)

	url, ok = pt.URLFor(frost.MustIdentifier(3))
	require.True(t, ok)
	require.Equal(t, "http://n3", url)

	url, ok = pt.URLFor(frost.MustIdentifier(4))
	require.True(t, ok)
	require.Equal(t, "http://n4", url)

	_, ok = pt.URLFor(frost.MustIdentifier(2))
	require.False(t, ok, "own identifier is never in the peer table")

	require.Equal(t, 3, pt.Len())
}

func TestNewPeerTableRejectsWrongPeerCount(t *testing.T) {
	_, err := NewPeerTable(1, 3, []string{"http://only-one"})
	require.Error(t, err)
}
