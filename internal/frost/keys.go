package frost

import (
	"fmt"
	"sort"

	"filippo.io/edwards25519"
)

var basepoint = edwards25519.NewGeneratorPoint()

// KeyPackage is one participant's private share plus the public
// metadata needed to use it: signing share, verifying share, group
// verifying key, and the threshold it was produced under. Callers
// persist min_signers alongside the share and must never let it drift
// from the PublicKeyPackage it was issued with.
type KeyPackage struct {
	Identifier      Identifier
	SigningShare    *edwards25519.Scalar
	VerifyingShare  *edwards25519.Point
	VerifyingKey    *edwards25519.Point
	MinSigners      uint16
}

// PublicKeyPackage is the public description of the whole federation.
type PublicKeyPackage struct {
	VerifyingKey    *edwards25519.Point
	VerifyingShares map[Identifier]*edwards25519.Point
}

// GroupVerifyingKeyBytes returns the 32-byte compressed group
// verifying key, byte-compatible with crypto/ed25519.Verify.
func (p PublicKeyPackage) GroupVerifyingKeyBytes() [32]byte {
	var out [32]byte
	copy(out[:], p.VerifyingKey.Bytes())
	return out
}

// MaxSigners is the number of verifying shares known, i.e. the current
// topology's n.
func (p PublicKeyPackage) MaxSigners() uint16 {
	return uint16(len(p.VerifyingShares))
}

// polynomial is a Shamir polynomial over the scalar field, stored as
// coefficients with coefficients[0] the constant term (the secret).
type polynomial struct {
	coefficients []*edwards25519.Scalar
}

func randomPolynomial(secret *edwards25519.Scalar, degree int, rng randReader) (*polynomial, error) {
	coeffs := make([]*edwards25519.Scalar, degree+1)
	coeffs[0] = secret
	for i := 1; i <= degree; i++ {
		s, err := randomScalar(rng)
		if err != nil {
			return nil, err
		}
		coeffs[i] = s
	}
	return &polynomial{coefficients: coeffs}, nil
}

// evaluate computes f(x) via Horner's method.
func (p *polynomial) evaluate(x *edwards25519.Scalar) *edwards25519.Scalar {
	result := edwards25519.NewScalar()
	for i := len(p.coefficients) - 1; i >= 0; i-- {
		result = result.Multiply(result, x)
		result = result.Add(result, p.coefficients[i])
	}
	return result
}

// lagrangeCoefficient computes lambda_i for interpolation at x=0 over
// the given set of identifiers.
func lagrangeCoefficient(id Identifier, all []Identifier) (*edwards25519.Scalar, error) {
	num := edwards25519.NewScalar().Set(oneScalar())
	den := edwards25519.NewScalar().Set(oneScalar())
	for _, other := range all {
		if other.Equal(id) {
			continue
		}
		num = num.Multiply(num, other.Scalar())
		diff := edwards25519.NewScalar().Subtract(other.Scalar(), id.Scalar())
		den = den.Multiply(den, diff)
	}
	denInv := edwards25519.NewScalar().Invert(den)
	return edwards25519.NewScalar().Multiply(num, denInv), nil
}

func oneScalar() *edwards25519.Scalar {
	one := [32]byte{1}
	s, err := edwards25519.NewScalar().SetCanonicalBytes(one[:])
	if err != nil {
		panic(err)
	}
	return s
}

// Dealer generates FROST key shares via a trusted dealer, deterministically
// from a 32-byte seed: the same seed always produces the same shares and
// group verifying key.
func Dealer(seed [32]byte, minSigners, maxSigners uint16) (map[Identifier]KeyPackage, PublicKeyPackage, error) {
	if minSigners < 1 || minSigners > maxSigners {
		return nil, PublicKeyPackage{}, fmt.Errorf("frost: invalid threshold %d-of-%d", minSigners, maxSigners)
	}
	rng := newSeededRNG(seed)

	secret, err := randomScalar(rng)
	if err != nil {
		return nil, PublicKeyPackage{}, err
	}
	poly, err := randomPolynomial(secret, int(minSigners)-1, rng)
	if err != nil {
		return nil, PublicKeyPackage{}, err
	}

	groupKey := edwards25519.NewIdentityPoint().ScalarMult(secret, basepoint)

	keyPackages := make(map[Identifier]KeyPackage, maxSigners)
	verifyingShares := make(map[Identifier]*edwards25519.Point, maxSigners)

	for i := uint16(1); i <= maxSigners; i++ {
		id := MustIdentifier(i)
		share := poly.evaluate(id.Scalar())
		verifyingShare := edwards25519.NewIdentityPoint().ScalarMult(share, basepoint)
		verifyingShares[id] = verifyingShare
		keyPackages[id] = KeyPackage{
			Identifier:     id,
			SigningShare:   share,
			VerifyingShare: verifyingShare,
			VerifyingKey:   groupKey,
			MinSigners:     minSigners,
		}
	}

	return keyPackages, PublicKeyPackage{VerifyingKey: groupKey, VerifyingShares: verifyingShares}, nil
}

// GroupKeyBytesFor returns the 32-byte compressed group verifying key
// that a (reconstructed) signing key corresponds to, without requiring
// a full Split call — used to verify a reconstruction before
// committing to a redeal.
func GroupKeyBytesFor(signingKey *edwards25519.Scalar) [32]byte {
	var out [32]byte
	copy(out[:], edwards25519.NewIdentityPoint().ScalarMult(signingKey, basepoint).Bytes())
	return out
}

// Reconstruct recovers the group signing key from at least min_signers
// key packages via Lagrange interpolation at x=0.
func Reconstruct(packages []KeyPackage) (*edwards25519.Scalar, error) {
	if len(packages) == 0 {
		return nil, fmt.Errorf("frost: reconstruct requires at least one key package")
	}
	min := packages[0].MinSigners
	if len(packages) < int(min) {
		return nil, fmt.Errorf("frost: reconstruct requires %d packages, got %d", min, len(packages))
	}
	ids := make([]Identifier, len(packages))
	for i, kp := range packages {
		ids[i] = kp.Identifier
	}
	secret := edwards25519.NewScalar()
	for _, kp := range packages {
		lambda, err := lagrangeCoefficient(kp.Identifier, ids)
		if err != nil {
			return nil, err
		}
		term := edwards25519.NewScalar().Multiply(lambda, kp.SigningShare)
		secret = secret.Add(secret, term)
	}
	return secret, nil
}

// Split re-shards a reconstructed group signing key into a new
// (newMin, newMax) topology over the given identifiers, preserving the
// group verifying key.
func Split(signingKey *edwards25519.Scalar, newMin, newMax uint16, identifiers []Identifier, rng randReader) (map[Identifier]KeyPackage, PublicKeyPackage, error) {
	if len(identifiers) != int(newMax) {
		return nil, PublicKeyPackage{}, fmt.Errorf("frost: split requires exactly %d identifiers, got %d", newMax, len(identifiers))
	}
	poly, err := randomPolynomial(signingKey, int(newMin)-1, rng)
	if err != nil {
		return nil, PublicKeyPackage{}, err
	}

	groupKey := edwards25519.NewIdentityPoint().ScalarMult(signingKey, basepoint)

	keyPackages := make(map[Identifier]KeyPackage, newMax)
	verifyingShares := make(map[Identifier]*edwards25519.Point, newMax)
	for _, id := range identifiers {
		share := poly.evaluate(id.Scalar())
		verifyingShare := edwards25519.NewIdentityPoint().ScalarMult(share, basepoint)
		verifyingShares[id] = verifyingShare
		keyPackages[id] = KeyPackage{
			Identifier:     id,
			SigningShare:   share,
			VerifyingShare: verifyingShare,
			VerifyingKey:   groupKey,
			MinSigners:     newMin,
		}
	}
	return keyPackages, PublicKeyPackage{VerifyingKey: groupKey, VerifyingShares: verifyingShares}, nil
}

// sortIdentifiers returns a stable, deterministic ordering of a set of
// identifiers — used whenever a commitment list or inbox must be
// hashed or iterated deterministically.
func sortIdentifiers(ids []Identifier) []Identifier {
	out := make([]Identifier, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool {
		bi, bj := out[i].Bytes(), out[j].Bytes()
		for k := range bi {
			if bi[k] != bj[k] {
				return bi[k] < bj[k]
			}
		}
		return false
	})
	return out
}
