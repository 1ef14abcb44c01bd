package cluster

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFreePortReturnsUsablePort(t *testing.T) {
	port, err := FreePort()
	require.NoError(t, err)
	require.Greater(t, port, 0)
}

func TestPeerArgListExcludesSelf(t *testing.T) {
	urls := []string{"http://a", "http://b", "http://c"}
	indices := []uint16{1, 2, 3}
	got := PeerArgList(urls, 2, indices)
	require.Equal(t, "http://a,http://c", got)
}

func TestNewCreatesBaseDir(t *testing.T) {
	dir := t.TempDir() + "/sub"
	c, err := New("/bin/true", dir)
	require.NoError(t, err)
	require.NotNil(t, c)
	require.DirExists(t, dir)
}
