package coordinator

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/frostfed/guardian/internal/frost"
)

// fakeGuardian serves exactly the HTTP surface Coordinator needs,
// backed by a real KeyPackage from frost.Dealer so round1/round2
// responses are cryptographically valid.
func fakeGuardian(t *testing.T, kp frost.KeyPackage, pub frost.PublicKeyPackage) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var nonces frost.SigningNonces

	mux.HandleFunc("/config", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(configResponse{MinSigners: kp.MinSigners, MaxSigners: pub.MaxSigners()})
	})
	mux.HandleFunc("/public-key", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(pub)
	})
	mux.HandleFunc("/round1", func(w http.ResponseWriter, r *http.Request) {
		var req round1Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		var commitments frost.SigningCommitments
		var err error
		nonces, commitments, err = frost.Commit(frost.SecureRNG)
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(round1Response{Identifier: kp.Identifier, Commitments: commitments})
	})
	mux.HandleFunc("/round2", func(w http.ResponseWriter, r *http.Request) {
		var req round2Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		message, err := hex.DecodeString(req.MessageHex)
		require.NoError(t, err)
		commitMap := make(map[frost.Identifier]frost.SigningCommitments, len(req.SigningCommitments))
		for _, c := range req.SigningCommitments {
			commitMap[c.Identifier] = c.Commitments
		}
		pkg := frost.SigningPackage{Message: message, Commitments: commitMap}
		share, err := frost.Sign(pkg, nonces, kp)
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(round2Response{Identifier: kp.Identifier, SignatureShare: share})
	})
	return httptest.NewServer(mux)
}

func TestCoordinatorSignVerifyRoundtrip(t *testing.T) {
	var seed [32]byte
	copy(seed[:], []byte("coordinator-roundtrip-seed-value"))
	packages, pub, err := frost.Dealer(seed, 2, 3)
	require.NoError(t, err)

	var servers []*httptest.Server
	var urls []string
	for _, kp := range packages {
		srv := fakeGuardian(t, kp, pub)
		servers = append(servers, srv)
		urls = append(urls, srv.URL)
	}
	defer func() {
		for _, s := range servers {
			s.Close()
		}
	}()

	ctx := context.Background()
	c, err := New(ctx, urls)
	require.NoError(t, err)
	require.EqualValues(t, 2, c.MinSigners())

	message := []byte("federation test message")
	sig, err := c.Sign(ctx, message)
	require.NoError(t, err)

	require.True(t, c.Verify(message, sig))

	groupKey := pub.GroupVerifyingKeyBytes()
	require.True(t, ed25519.Verify(groupKey[:], message, sig[:]))
}

func TestCoordinatorSignFailsWithoutEnoughGuardians(t *testing.T) {
	var seed [32]byte
	copy(seed[:], []byte("coordinator-insufficient-seed-v1"))
	packages, pub, err := frost.Dealer(seed, 3, 3)
	require.NoError(t, err)

	var urls []string
	var servers []*httptest.Server
	i := 0
	for _, kp := range packages {
		if i >= 2 {
			break
		}
		srv := fakeGuardian(t, kp, pub)
		servers = append(servers, srv)
		urls = append(urls, srv.URL)
		i++
	}
	defer func() {
		for _, s := range servers {
			s.Close()
		}
	}()

	ctx := context.Background()
	c, err := New(ctx, urls)
	require.NoError(t, err)

	_, err = c.Sign(ctx, []byte("won't reach threshold"))
	require.Error(t, err)
}
