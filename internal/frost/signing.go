package frost

import (
	"fmt"

	"filippo.io/edwards25519"
)

// SigningNonces are the secret hiding/binding nonces generated in
// round 1. A guardian must use a given SigningNonces value in at most
// one round2 call; the guardian daemon enforces that by removing the
// nonce cache entry before signing (see internal/guardian/noncecache.go).
type SigningNonces struct {
	Hiding  *edwards25519.Scalar
	Binding *edwards25519.Scalar
}

// SigningCommitments is the public counterpart of SigningNonces,
// shared with the coordinator and other participants.
type SigningCommitments struct {
	Hiding  *edwards25519.Point
	Binding *edwards25519.Point
}

func (c SigningCommitments) encode() []byte {
	out := make([]byte, 0, 64)
	out = append(out, c.Hiding.Bytes()...)
	out = append(out, c.Binding.Bytes()...)
	return out
}

// SignatureShare is one participant's contribution to the final
// aggregated signature.
type SignatureShare struct {
	Identifier Identifier
	Share      *edwards25519.Scalar
}

// SigningPackage is the deterministic input to both round2 signing and
// final aggregation: the message and the commitment map of every
// participant in this session. Both sides MUST build it from the same
// commitment set.
type SigningPackage struct {
	Message     []byte
	Commitments map[Identifier]SigningCommitments
}

// Commit performs FROST round 1: generate fresh hiding/binding nonces
// from rng and their public commitments. Nonces are secret and MUST
// come from a cryptographic RNG in production.
func Commit(rng randReader) (SigningNonces, SigningCommitments, error) {
	hiding, err := randomScalar(rng)
	if err != nil {
		return SigningNonces{}, SigningCommitments{}, fmt.Errorf("frost: commit: %w", err)
	}
	binding, err := randomScalar(rng)
	if err != nil {
		return SigningNonces{}, SigningCommitments{}, fmt.Errorf("frost: commit: %w", err)
	}
	nonces := SigningNonces{Hiding: hiding, Binding: binding}
	commitments := SigningCommitments{
		Hiding:  edwards25519.NewIdentityPoint().ScalarMult(hiding, basepoint),
		Binding: edwards25519.NewIdentityPoint().ScalarMult(binding, basepoint),
	}
	return nonces, commitments, nil
}

// bindingFactors computes, per RFC 9591 §4.3, one binding factor per
// participant from the full commitment list and the message.
func bindingFactors(pkg SigningPackage) map[Identifier]*edwards25519.Scalar {
	ids := make([]Identifier, 0, len(pkg.Commitments))
	for id := range pkg.Commitments {
		ids = append(ids, id)
	}
	ids = sortIdentifiers(ids)

	encoded := make([]byte, 0, 96*len(ids))
	for _, id := range ids {
		b := id.Bytes()
		encoded = append(encoded, b[:]...)
		encoded = append(encoded, pkg.Commitments[id].encode()...)
	}

	msgHash := hashToScalar("FROST-ED25519-SHA512-v1msg", pkg.Message).Bytes()
	comHash := hashToScalar("FROST-ED25519-SHA512-v1com", encoded).Bytes()

	factors := make(map[Identifier]*edwards25519.Scalar, len(ids))
	for _, id := range ids {
		idBytes := id.Bytes()
		factors[id] = hashToScalar("FROST-ED25519-SHA512-v1rho", msgHash[:], comHash[:], idBytes[:])
	}
	return factors
}

// groupCommitment computes R = sum_i (hiding_i + binding_factor_i * binding_i).
func groupCommitment(pkg SigningPackage, factors map[Identifier]*edwards25519.Scalar) *edwards25519.Point {
	r := edwards25519.NewIdentityPoint()
	for id, c := range pkg.Commitments {
		term := edwards25519.NewIdentityPoint().ScalarMult(factors[id], c.Binding)
		term = term.Add(term, c.Hiding)
		r = r.Add(r, term)
	}
	return r
}

// Sign performs FROST round 2: given the signing package and this
// participant's own nonces and key package, produce a signature
// share. Fails if the participant's identifier is absent from the
// signing package's commitment map.
func Sign(pkg SigningPackage, nonces SigningNonces, kp KeyPackage) (SignatureShare, error) {
	if _, ok := pkg.Commitments[kp.Identifier]; !ok {
		return SignatureShare{}, fmt.Errorf("frost: sign: identifier %s not in signing package", kp.Identifier)
	}

	factors := bindingFactors(pkg)
	r := groupCommitment(pkg, factors)
	challenge := deriveChallenge(r, kp.VerifyingKey, pkg.Message)

	ids := make([]Identifier, 0, len(pkg.Commitments))
	for id := range pkg.Commitments {
		ids = append(ids, id)
	}
	lambda, err := lagrangeCoefficient(kp.Identifier, ids)
	if err != nil {
		return SignatureShare{}, fmt.Errorf("frost: sign: %w", err)
	}

	myFactor := factors[kp.Identifier]
	z := edwards25519.NewScalar().Multiply(myFactor, nonces.Binding)
	z = z.Add(z, nonces.Hiding)
	lc := edwards25519.NewScalar().Multiply(lambda, challenge)
	lc = lc.Multiply(lc, kp.SigningShare)
	z = z.Add(z, lc)

	return SignatureShare{Identifier: kp.Identifier, Share: z}, nil
}

// Aggregate combines signature shares from at least min_signers
// participants into a single 64-byte Ed25519 signature, verifying
// each share against the corresponding verifying share before
// accepting it.
func Aggregate(pkg SigningPackage, shares []SignatureShare, pub PublicKeyPackage) ([64]byte, error) {
	minSigners := len(pkg.Commitments) // the signing package's participant count is the floor for this call
	if len(shares) < minSigners {
		return [64]byte{}, fmt.Errorf("frost: aggregate: need %d shares, got %d", minSigners, len(shares))
	}

	factors := bindingFactors(pkg)
	r := groupCommitment(pkg, factors)
	challenge := deriveChallenge(r, pub.VerifyingKey, pkg.Message)

	ids := make([]Identifier, 0, len(pkg.Commitments))
	for id := range pkg.Commitments {
		ids = append(ids, id)
	}

	z := edwards25519.NewScalar()
	for _, share := range shares {
		verifyingShare, ok := pub.VerifyingShares[share.Identifier]
		if !ok {
			return [64]byte{}, fmt.Errorf("frost: aggregate: unknown participant %s", share.Identifier)
		}
		lambda, err := lagrangeCoefficient(share.Identifier, ids)
		if err != nil {
			return [64]byte{}, fmt.Errorf("frost: aggregate: %w", err)
		}

		// Verify: share.Share * G == commitment_i + factor_i*binding_i + lambda_i*challenge*verifyingShare
		lhs := edwards25519.NewIdentityPoint().ScalarMult(share.Share, basepoint)

		c, ok := pkg.Commitments[share.Identifier]
		if !ok {
			return [64]byte{}, fmt.Errorf("frost: aggregate: participant %s not in signing package", share.Identifier)
		}
		rhs := edwards25519.NewIdentityPoint().ScalarMult(factors[share.Identifier], c.Binding)
		rhs = rhs.Add(rhs, c.Hiding)
		lc := edwards25519.NewScalar().Multiply(lambda, challenge)
		rhsShare := edwards25519.NewIdentityPoint().ScalarMult(lc, verifyingShare)
		rhs = rhs.Add(rhs, rhsShare)

		if lhs.Equal(rhs) != 1 {
			return [64]byte{}, fmt.Errorf("frost: aggregate: invalid signature share from %s", share.Identifier)
		}

		z = z.Add(z, share.Share)
	}

	var sig [64]byte
	copy(sig[:32], r.Bytes())
	copy(sig[32:], z.Bytes())
	return sig, nil
}
