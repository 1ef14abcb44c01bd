package guardian

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/frostfed/guardian/internal/frost"
)

// newCeremonyFederation builds n Daemons with no keys and no peer
// table wired up front, then backfills each one's peerTable and
// starts an httptest.Server in front of its router, so ceremony code
// paths exercise the real HTTP handlers end to end.
func newCeremonyFederation(t *testing.T, n, minSigners uint16) ([]*Daemon, []*httptest.Server) {
	t.Helper()
	daemons := make([]*Daemon, n)
	servers := make([]*httptest.Server, n)

	for i := uint16(1); i <= n; i++ {
		cfg := Config{ShareIndex: i, MaxSigners: n, MinSigners: minSigners, CacheDir: t.TempDir()}
		d, err := New(cfg)
		require.NoError(t, err)
		daemons[i-1] = d
		servers[i-1] = httptest.NewServer(d.router)
	}

	for i := uint16(1); i <= n; i++ {
		peers := make([]string, 0, n-1)
		for j := uint16(1); j <= n; j++ {
			if j == i {
				continue
			}
			peers = append(peers, servers[j-1].URL)
		}
		pt, err := NewPeerTable(i, n, peers)
		require.NoError(t, err)
		daemons[i-1].peerTable = pt
	}
	return daemons, servers
}

func closeServers(servers []*httptest.Server) {
	for _, s := range servers {
		s.Close()
	}
}

func TestRunDKGProducesConsistentGroupKey(t *testing.T) {
	daemons, servers := newCeremonyFederation(t, 3, 2)
	defer closeServers(servers)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errs := make(chan error, len(daemons))
	for _, d := range daemons {
		d := d
		go func() { errs <- d.runDKG(ctx) }()
	}
	for range daemons {
		require.NoError(t, <-errs)
	}

	var groupKey [32]byte
	var reference frost.PublicKeyPackage
	for i, d := range daemons {
		_, pub, ok := d.keys.read()
		require.True(t, ok)
		gk := pub.GroupVerifyingKeyBytes()
		if i == 0 {
			groupKey = gk
			reference = pub
		} else {
			require.Equal(t, groupKey, gk, "all guardians must agree on the group verifying key")
			require.Equal(t, len(reference.VerifyingShares), len(pub.VerifyingShares))
			for id, want := range reference.VerifyingShares {
				got, ok := pub.VerifyingShares[id]
				require.True(t, ok)
				require.Equal(t, 1, want.Equal(got), "guardians must agree on every peer's verifying share, not just their own")
			}
		}
	}
}

func TestRunRefreshPreservesGroupKey(t *testing.T) {
	daemons, servers := newCeremonyFederation(t, 3, 2)
	defer closeServers(servers)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errs := make(chan error, len(daemons))
	for _, d := range daemons {
		d := d
		go func() { errs <- d.runDKG(ctx) }()
	}
	for range daemons {
		require.NoError(t, <-errs)
	}

	_, pubBefore, ok := daemons[0].keys.read()
	require.True(t, ok)
	before := pubBefore.GroupVerifyingKeyBytes()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	errs2 := make(chan error, len(daemons))
	for _, d := range daemons {
		d := d
		go func() { errs2 <- d.runRefresh(ctx2) }()
	}
	for range daemons {
		require.NoError(t, <-errs2)
	}

	_, pubAfter, ok := daemons[0].keys.read()
	require.True(t, ok)
	after := pubAfter.GroupVerifyingKeyBytes()
	require.Equal(t, before, after, "refresh must preserve the group verifying key")

	message := []byte("after refresh")
	shares := make([]frost.SignatureShare, 0, 2)
	commitments := make(map[frost.Identifier]frost.SigningCommitments, 2)
	noncesByID := make(map[frost.Identifier]frost.SigningNonces, 2)
	for _, d := range daemons[:2] {
		kp, _, ok := d.keys.read()
		require.True(t, ok)
		nonces, c, err := frost.Commit(frost.SecureRNG)
		require.NoError(t, err)
		noncesByID[kp.Identifier] = nonces
		commitments[kp.Identifier] = c
	}
	pkg := frost.SigningPackage{Message: message, Commitments: commitments}
	for _, d := range daemons[:2] {
		kp, _, ok := d.keys.read()
		require.True(t, ok)
		share, err := frost.Sign(pkg, noncesByID[kp.Identifier], kp)
		require.NoError(t, err)
		shares = append(shares, share)
	}
	_, pub, _ := daemons[0].keys.read()
	sig, err := frost.Aggregate(pkg, shares, pub)
	require.NoError(t, err)
	require.NotZero(t, sig)
}

func TestRunRedealCoordinatorPreservesGroupKeyAndGrowsTopology(t *testing.T) {
	oldDaemons, oldServers := newCeremonyFederation(t, 3, 2)
	defer closeServers(oldServers)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errs := make(chan error, len(oldDaemons))
	for _, d := range oldDaemons {
		d := d
		go func() { errs <- d.runDKG(ctx) }()
	}
	for range oldDaemons {
		require.NoError(t, <-errs)
	}
	_, oldPub, ok := oldDaemons[0].keys.read()
	require.True(t, ok)
	oldGroupKey := oldPub.GroupVerifyingKeyBytes()

	// Two brand-new guardians join the new 5-party topology with no
	// keys yet.
	newGuardianCfgs := []Config{
		{ShareIndex: 4, MaxSigners: 5, MinSigners: 3, CacheDir: t.TempDir()},
		{ShareIndex: 5, MaxSigners: 5, MinSigners: 3, CacheDir: t.TempDir()},
	}
	var newDaemons []*Daemon
	var newServers []*httptest.Server
	for _, cfg := range newGuardianCfgs {
		d, err := New(cfg)
		require.NoError(t, err)
		newDaemons = append(newDaemons, d)
		srv := httptest.NewServer(d.router)
		newServers = append(newServers, srv)
	}
	defer closeServers(newServers)

	allURLs := make(map[uint16]string, 5)
	for i, s := range oldServers {
		allURLs[uint16(i+1)] = s.URL
	}
	for i, s := range newServers {
		allURLs[uint16(i+4)] = s.URL
	}

	coordinator := oldDaemons[0]
	coordinator.cfg.Redeal = true
	coordinator.cfg.NewMaxSigners = 5
	coordinator.cfg.NewMinSigners = 3
	coordinator.cfg.OldPeers = []string{allURLs[2], allURLs[3]}

	newPeerURLs := make([]string, 0, 4)
	for i := uint16(1); i <= 5; i++ {
		if i == 1 {
			continue
		}
		newPeerURLs = append(newPeerURLs, allURLs[i])
	}
	pt, err := NewPeerTable(1, 5, newPeerURLs)
	require.NoError(t, err)
	coordinator.peerTable = pt

	ctx2, cancel2 := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel2()
	require.NoError(t, coordinator.runRedealCoordinator(ctx2))

	_, newPub, ok := coordinator.keys.read()
	require.True(t, ok)
	require.Equal(t, oldGroupKey, newPub.GroupVerifyingKeyBytes(), "redeal must preserve the group verifying key")

	for i, d := range newDaemons {
		_, pub, ok := d.keys.read()
		require.True(t, ok, "new guardian %d must have received its redealt share", i+4)
		require.Equal(t, oldGroupKey, pub.GroupVerifyingKeyBytes())
	}
}
