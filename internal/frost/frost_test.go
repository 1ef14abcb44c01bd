package frost

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"

	"filippo.io/edwards25519"
	"github.com/stretchr/testify/require"
)

func seedFromString(s string) [32]byte {
	var seed [32]byte
	copy(seed[:], s)
	return seed
}

func signWithShares(t *testing.T, keyPackages map[Identifier]KeyPackage, pub PublicKeyPackage, minSigners uint16, message []byte) [64]byte {
	t.Helper()

	ids := make([]Identifier, 0, minSigners)
	for id := range keyPackages {
		ids = append(ids, id)
		if uint16(len(ids)) == minSigners {
			break
		}
	}

	nonces := make(map[Identifier]SigningNonces, len(ids))
	commitments := make(map[Identifier]SigningCommitments, len(ids))
	for _, id := range ids {
		n, c, err := Commit(SecureRNG)
		require.NoError(t, err)
		nonces[id] = n
		commitments[id] = c
	}

	pkg := SigningPackage{Message: message, Commitments: commitments}

	shares := make([]SignatureShare, 0, len(ids))
	for _, id := range ids {
		share, err := Sign(pkg, nonces[id], keyPackages[id])
		require.NoError(t, err)
		shares = append(shares, share)
	}

	sig, err := Aggregate(pkg, shares, pub)
	require.NoError(t, err)
	return sig
}

func TestDealerKeygenIsDeterministic(t *testing.T) {
	seed := seedFromString("deterministic-test-seed")
	_, pub1, err := Dealer(seed, 2, 3)
	require.NoError(t, err)
	_, pub2, err := Dealer(seed, 2, 3)
	require.NoError(t, err)
	require.Equal(t, pub1.GroupVerifyingKeyBytes(), pub2.GroupVerifyingKeyBytes())
}

func TestDealerSignVerifyRoundtrip(t *testing.T) {
	seed := seedFromString("sign-verify-roundtrip-seed")
	keyPackages, pub, err := Dealer(seed, 2, 3)
	require.NoError(t, err)

	msg := []byte("test message")
	sig := signWithShares(t, keyPackages, pub, 2, msg)

	vk := pub.GroupVerifyingKeyBytes()
	require.True(t, ed25519.Verify(vk[:], msg, sig[:]))
}

func TestDifferentMessagesDifferentSignatures(t *testing.T) {
	seed := seedFromString("distinct-message-seed")
	keyPackages, pub, err := Dealer(seed, 2, 3)
	require.NoError(t, err)

	sig1 := signWithShares(t, keyPackages, pub, 2, []byte("message one"))
	sig2 := signWithShares(t, keyPackages, pub, 2, []byte("message two"))
	require.NotEqual(t, sig1, sig2)
}

func TestDkgRoundtripMatchesDealerShape(t *testing.T) {
	const maxSigners, minSigners = 3, 2
	ids := make([]Identifier, maxSigners)
	for i := 0; i < maxSigners; i++ {
		ids[i] = MustIdentifier(uint16(i + 1))
	}

	secrets1 := make(map[Identifier]DkgRound1Secret)
	round1Packages := make(map[Identifier]DkgRound1Package)
	for _, id := range ids {
		s1, p1, err := DkgPart1(id, maxSigners, minSigners, SecureRNG)
		require.NoError(t, err)
		secrets1[id] = s1
		round1Packages[id] = p1
	}

	// Every participant needs every *other* participant's round1 package.
	round1InboxFor := func(self Identifier) map[Identifier]DkgRound1Package {
		inbox := make(map[Identifier]DkgRound1Package)
		for id, pkg := range round1Packages {
			if !id.Equal(self) {
				inbox[id] = pkg
			}
		}
		return inbox
	}

	secrets2 := make(map[Identifier]DkgRound2Secret)
	round2Outbound := make(map[Identifier]map[Identifier]DkgRound2Package) // sender -> recipient -> package
	for _, id := range ids {
		s2, out, err := DkgPart2(secrets1[id], round1InboxFor(id))
		require.NoError(t, err)
		secrets2[id] = s2
		round2Outbound[id] = out
	}

	round2InboxFor := func(self Identifier) map[Identifier]DkgRound2Package {
		inbox := make(map[Identifier]DkgRound2Package)
		for sender, out := range round2Outbound {
			if sender.Equal(self) {
				continue
			}
			inbox[sender] = out[self]
		}
		return inbox
	}

	keyPackages := make(map[Identifier]KeyPackage)
	pubs := make(map[Identifier]PublicKeyPackage)
	for _, id := range ids {
		kp, p, err := DkgPart3(id, secrets2[id], round1InboxFor(id), round2InboxFor(id), minSigners)
		require.NoError(t, err)
		keyPackages[id] = kp
		pubs[id] = p
	}

	// Every participant must compute the exact same public package,
	// including every *other* identifier's verifying share — not just
	// their own.
	pub := pubs[ids[0]]
	for _, id := range ids {
		p := pubs[id]
		require.Equal(t, pub.GroupVerifyingKeyBytes(), p.GroupVerifyingKeyBytes())
		for peerID, share := range pub.VerifyingShares {
			require.Equal(t, 1, share.Equal(p.VerifyingShares[peerID]), "verifying share for %x disagrees between participants", peerID.Bytes())
		}
	}
	for _, id := range ids {
		kp := keyPackages[id]
		expected := edwards25519.NewIdentityPoint().ScalarMult(kp.SigningShare, basepoint)
		require.Equal(t, 1, expected.Equal(pub.VerifyingShares[id]), "verifying share for %x must equal signingShare*G", id.Bytes())
	}

	msg := []byte("after dkg")
	sig := signWithShares(t, keyPackages, pub, minSigners, msg)
	vk := pub.GroupVerifyingKeyBytes()
	require.True(t, ed25519.Verify(vk[:], msg, sig[:]))
}

func TestReconstructAndSplitPreserveGroupKey(t *testing.T) {
	seed := seedFromString("redeal-roundtrip-seed")
	keyPackages, pub, err := Dealer(seed, 2, 3)
	require.NoError(t, err)

	packages := make([]KeyPackage, 0, 2)
	for _, kp := range keyPackages {
		packages = append(packages, kp)
		if len(packages) == 2 {
			break
		}
	}

	signingKey, err := Reconstruct(packages)
	require.NoError(t, err)

	newIDs := []Identifier{MustIdentifier(1), MustIdentifier(2), MustIdentifier(3), MustIdentifier(4), MustIdentifier(5)}
	newShares, newPub, err := Split(signingKey, 3, 5, newIDs, SecureRNG)
	require.NoError(t, err)

	require.Equal(t, pub.GroupVerifyingKeyBytes(), newPub.GroupVerifyingKeyBytes())

	msg := []byte("after redeal")
	sig := signWithShares(t, newShares, newPub, 3, msg)
	vk := newPub.GroupVerifyingKeyBytes()
	require.True(t, ed25519.Verify(vk[:], msg, sig[:]))
}

func TestIdentifierRoundTripsAsMapKey(t *testing.T) {
	local := MustIdentifier(7)

	data, err := json.Marshal(local)
	require.NoError(t, err)

	var remote Identifier
	require.NoError(t, json.Unmarshal(data, &remote))

	inbox := map[Identifier]int{local: 42}
	v, ok := inbox[remote]
	require.True(t, ok, "identifier decoded from JSON must hit the same map bucket as the locally-constructed one")
	require.Equal(t, 42, v)
}

func TestAggregateFailsBelowThreshold(t *testing.T) {
	seed := seedFromString("below-threshold-seed")
	keyPackages, pub, err := Dealer(seed, 3, 4)
	require.NoError(t, err)

	ids := make([]Identifier, 0, 2)
	for id := range keyPackages {
		ids = append(ids, id)
		if len(ids) == 2 {
			break
		}
	}

	nonces := make(map[Identifier]SigningNonces)
	commitments := make(map[Identifier]SigningCommitments)
	for _, id := range ids {
		n, c, err := Commit(SecureRNG)
		require.NoError(t, err)
		nonces[id] = n
		commitments[id] = c
	}
	pkg := SigningPackage{Message: []byte("insufficient"), Commitments: commitments}

	shares := make([]SignatureShare, 0, len(ids))
	for _, id := range ids {
		share, err := Sign(pkg, nonces[id], keyPackages[id])
		require.NoError(t, err)
		shares = append(shares, share)
	}

	_, err = Aggregate(pkg, shares[:1], pub)
	require.Error(t, err)
}
