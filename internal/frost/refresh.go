package frost

import (
	"fmt"

	"filippo.io/edwards25519"
)

// RefreshPart1 begins a proactive refresh: each participant commits to
// a fresh degree-(min-1) polynomial whose constant term is zero, so
// summing every participant's contribution re-randomizes every share
// without moving the group secret.
func RefreshPart1(id Identifier, maxSigners, minSigners uint16, rng randReader) (DkgRound1Secret, DkgRound1Package, error) {
	poly, err := randomPolynomial(edwards25519.NewScalar(), int(minSigners)-1, rng)
	if err != nil {
		return DkgRound1Secret{}, DkgRound1Package{}, fmt.Errorf("frost: refresh part1: %w", err)
	}
	commitments := make([]*edwards25519.Point, len(poly.coefficients))
	for i, c := range poly.coefficients {
		commitments[i] = edwards25519.NewIdentityPoint().ScalarMult(c, basepoint)
	}
	return DkgRound1Secret{poly: poly}, DkgRound1Package{Commitments: commitments}, nil
}

// RefreshPart2 has the same shape as DkgPart2: produce one zero-sharing
// share per peer.
func RefreshPart2(secret DkgRound1Secret, round1Inbox map[Identifier]DkgRound1Package) (DkgRound2Secret, map[Identifier]DkgRound2Package, error) {
	return DkgPart2(secret, round1Inbox)
}

// RefreshShares finalizes a proactive refresh: the new signing share is
// the old one plus every received zero-sharing contribution (including
// this participant's own), and every verifying share is updated the
// same way. The resulting group verifying key MUST equal the old one —
// callers are expected to assert that and abort, keeping the old keys
// active, if it doesn't.
func RefreshShares(
	myID Identifier,
	secret DkgRound2Secret,
	round1Inbox map[Identifier]DkgRound1Package,
	round2Inbox map[Identifier]DkgRound2Package,
	oldKeyPackage KeyPackage,
	oldPublicKeyPackage PublicKeyPackage,
) (KeyPackage, PublicKeyPackage, error) {
	newSigningShare := edwards25519.NewScalar().Set(oldKeyPackage.SigningShare)
	newSigningShare = newSigningShare.Add(newSigningShare, secret.poly.evaluate(myID.Scalar()))

	for peerID, pkg := range round2Inbox {
		round1Pkg, ok := round1Inbox[peerID]
		if !ok {
			return KeyPackage{}, PublicKeyPackage{}, fmt.Errorf("frost: refresh: no round1 package from %s", peerID)
		}
		if err := verifyShareAgainstCommitments(myID, pkg.Share, round1Pkg.Commitments); err != nil {
			return KeyPackage{}, PublicKeyPackage{}, fmt.Errorf("frost: refresh: peer %s: %w", peerID, err)
		}
		newSigningShare = newSigningShare.Add(newSigningShare, pkg.Share)
	}

	myCommitments := make([]*edwards25519.Point, len(secret.poly.coefficients))
	for i, c := range secret.poly.coefficients {
		myCommitments[i] = edwards25519.NewIdentityPoint().ScalarMult(c, basepoint)
	}
	allCommitments := make([][]*edwards25519.Point, 0, len(round1Inbox)+1)
	allCommitments = append(allCommitments, myCommitments)
	for _, pkg := range round1Inbox {
		allCommitments = append(allCommitments, pkg.Commitments)
	}

	// delta_id must be the sum of every participant's zero-sharing
	// polynomial evaluated at id, matching the sum that produced
	// newSigningShare above — not just the contribution of id's own
	// polynomial.
	newVerifyingShares := make(map[Identifier]*edwards25519.Point, len(oldPublicKeyPackage.VerifyingShares))
	for id, oldShare := range oldPublicKeyPackage.VerifyingShares {
		delta := edwards25519.NewIdentityPoint()
		for _, commitments := range allCommitments {
			term := edwards25519.NewIdentityPoint().Set(commitments[0])
			power := edwards25519.NewScalar().Set(id.Scalar())
			for i := 1; i < len(commitments); i++ {
				t := edwards25519.NewIdentityPoint().ScalarMult(power, commitments[i])
				term = term.Add(term, t)
				power = power.Multiply(power, id.Scalar())
			}
			delta = delta.Add(delta, term)
		}
		newVerifyingShares[id] = edwards25519.NewIdentityPoint().Add(oldShare, delta)
	}

	kp := KeyPackage{
		Identifier:     myID,
		SigningShare:   newSigningShare,
		VerifyingShare: newVerifyingShares[myID],
		VerifyingKey:   oldKeyPackage.VerifyingKey,
		MinSigners:     oldKeyPackage.MinSigners,
	}
	pub := PublicKeyPackage{VerifyingKey: oldPublicKeyPackage.VerifyingKey, VerifyingShares: newVerifyingShares}
	return kp, pub, nil
}
