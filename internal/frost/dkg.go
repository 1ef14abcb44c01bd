package frost

import (
	"fmt"

	"filippo.io/edwards25519"
)

// DkgRound1Secret is the private state a participant keeps between
// DKG part 1 and part 2: its own secret polynomial.
type DkgRound1Secret struct {
	poly *polynomial
}

// DkgRound1Package is what a participant broadcasts to every peer
// after part 1: commitments to each coefficient of its polynomial,
// used by peers to verify the shares they'll receive in part 2.
type DkgRound1Package struct {
	Commitments []*edwards25519.Point
}

// DkgRound2Secret carries forward everything part 3 needs.
type DkgRound2Secret struct {
	poly *polynomial
}

// DkgRound2Package is the share of the sender's polynomial intended
// for one specific recipient. Shares are transmitted directly over
// the assumed-private network rather than under a dedicated
// per-recipient encryption layer.
type DkgRound2Package struct {
	Share *edwards25519.Scalar
}

// DkgPart1 begins DKG: each participant commits to a fresh random
// polynomial of degree min-1.
func DkgPart1(id Identifier, maxSigners, minSigners uint16, rng randReader) (DkgRound1Secret, DkgRound1Package, error) {
	secret, err := randomScalar(rng)
	if err != nil {
		return DkgRound1Secret{}, DkgRound1Package{}, fmt.Errorf("frost: dkg part1: %w", err)
	}
	poly, err := randomPolynomial(secret, int(minSigners)-1, rng)
	if err != nil {
		return DkgRound1Secret{}, DkgRound1Package{}, fmt.Errorf("frost: dkg part1: %w", err)
	}

	commitments := make([]*edwards25519.Point, len(poly.coefficients))
	for i, c := range poly.coefficients {
		commitments[i] = edwards25519.NewIdentityPoint().ScalarMult(c, basepoint)
	}

	return DkgRound1Secret{poly: poly}, DkgRound1Package{Commitments: commitments}, nil
}

// DkgPart2 produces one share-package per peer from this participant's
// polynomial, to be sent to each identifier in round1Inbox.
func DkgPart2(secret DkgRound1Secret, round1Inbox map[Identifier]DkgRound1Package) (DkgRound2Secret, map[Identifier]DkgRound2Package, error) {
	out := make(map[Identifier]DkgRound2Package, len(round1Inbox))
	for id := range round1Inbox {
		out[id] = DkgRound2Package{Share: secret.poly.evaluate(id.Scalar())}
	}
	return DkgRound2Secret{poly: secret.poly}, out, nil
}

// verifyShareAgainstCommitments checks that a received share is
// consistent with the sender's round1 commitments: share*G must equal
// the polynomial's committed value at our identifier.
func verifyShareAgainstCommitments(id Identifier, share *edwards25519.Scalar, commitments []*edwards25519.Point) error {
	lhs := edwards25519.NewIdentityPoint().ScalarMult(share, basepoint)

	rhs := edwards25519.NewIdentityPoint().Set(commitments[0])
	power := edwards25519.NewScalar().Set(id.Scalar())
	for i := 1; i < len(commitments); i++ {
		term := edwards25519.NewIdentityPoint().ScalarMult(power, commitments[i])
		rhs = rhs.Add(rhs, term)
		power = power.Multiply(power, id.Scalar())
	}

	if lhs.Equal(rhs) != 1 {
		return fmt.Errorf("frost: dkg: share inconsistent with round1 commitments")
	}
	return nil
}

// DkgPart3 finalizes DKG: each participant sums the shares it received
// (plus its own polynomial evaluated at itself) into a signing share,
// and combines every participant's constant-term commitment into the
// group verifying key and per-identifier verifying shares.
func DkgPart3(
	myID Identifier,
	secret DkgRound2Secret,
	round1Inbox map[Identifier]DkgRound1Package,
	round2Inbox map[Identifier]DkgRound2Package,
	minSigners uint16,
) (KeyPackage, PublicKeyPackage, error) {
	signingShare := secret.poly.evaluate(myID.Scalar())

	for peerID, pkg := range round2Inbox {
		round1Pkg, ok := round1Inbox[peerID]
		if !ok {
			return KeyPackage{}, PublicKeyPackage{}, fmt.Errorf("frost: dkg part3: no round1 package from %s", peerID)
		}
		if err := verifyShareAgainstCommitments(myID, pkg.Share, round1Pkg.Commitments); err != nil {
			return KeyPackage{}, PublicKeyPackage{}, fmt.Errorf("frost: dkg part3: peer %s: %w", peerID, err)
		}
		signingShare = signingShare.Add(signingShare, pkg.Share)
	}

	myCommitments := make([]*edwards25519.Point, len(secret.poly.coefficients))
	for i, c := range secret.poly.coefficients {
		myCommitments[i] = edwards25519.NewIdentityPoint().ScalarMult(c, basepoint)
	}

	allIdentifiers := make([]Identifier, 0, len(round1Inbox)+1)
	allCommitments := make([][]*edwards25519.Point, 0, len(round1Inbox)+1)
	allIdentifiers = append(allIdentifiers, myID)
	allCommitments = append(allCommitments, myCommitments)
	for id, pkg := range round1Inbox {
		allIdentifiers = append(allIdentifiers, id)
		allCommitments = append(allCommitments, pkg.Commitments)
	}

	groupKey := edwards25519.NewIdentityPoint()
	for _, commitments := range allCommitments {
		groupKey = groupKey.Add(groupKey, commitments[0])
	}

	// Y_id must be the sum of every participant's committed polynomial
	// evaluated at id, not just the contribution of participant id's own
	// polynomial — each signing share is itself such a sum (see above),
	// so the verifying share has to match term for term.
	verifyingShares := make(map[Identifier]*edwards25519.Point, len(allIdentifiers))
	for _, id := range allIdentifiers {
		share := edwards25519.NewIdentityPoint()
		for _, commitments := range allCommitments {
			term := edwards25519.NewIdentityPoint().Set(commitments[0])
			power := edwards25519.NewScalar().Set(id.Scalar())
			for i := 1; i < len(commitments); i++ {
				t := edwards25519.NewIdentityPoint().ScalarMult(power, commitments[i])
				term = term.Add(term, t)
				power = power.Multiply(power, id.Scalar())
			}
			share = share.Add(share, term)
		}
		verifyingShares[id] = share
	}

	kp := KeyPackage{
		Identifier:     myID,
		SigningShare:   signingShare,
		VerifyingShare: verifyingShares[myID],
		VerifyingKey:   groupKey,
		MinSigners:     minSigners,
	}
	pub := PublicKeyPackage{VerifyingKey: groupKey, VerifyingShares: verifyingShares}
	return kp, pub, nil
}
