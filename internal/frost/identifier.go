// Package frost implements the participant-side primitives of
// FROST-Ed25519 (RFC 9591): trusted-dealer keygen, distributed key
// generation, two-round threshold signing, proactive refresh, and
// share reconstruction/re-splitting. Every function here is total and
// deterministic given its inputs and an RNG; none of it talks to the
// network — that is the guardian daemon's job.
package frost

import (
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

// Identifier is a nonzero scalar identifying one participant's
// position in the group. Guardians use the 1-based share index
// directly as the identifier's integer value, so ShareIndex and
// Identifier always agree.
//
// Identifier holds its canonical byte encoding by value rather than a
// *edwards25519.Scalar so that it is safe to use as a map key: two
// Identifiers for the same index built independently (e.g. one
// constructed locally, one round-tripped through JSON from a peer)
// must compare equal under Go's native map-key equality, which a
// pointer field would defeat.
type Identifier struct {
	b [32]byte
}

// NewIdentifier builds the identifier for 1-based share index k.
// k must be in [1, 65535]; 0 is not a valid identifier.
func NewIdentifier(k uint16) (Identifier, error) {
	if k == 0 {
		return Identifier{}, errors.New("frost: identifier 0 is invalid")
	}
	var wide [64]byte
	binary.LittleEndian.PutUint16(wide[:2], k)
	s, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		return Identifier{}, fmt.Errorf("frost: deriving identifier: %w", err)
	}
	var id Identifier
	copy(id.b[:], s.Bytes())
	return id, nil
}

// MustIdentifier is NewIdentifier but panics on error; for use with
// compile-time-known indices (e.g. in tests and dealer keygen loops).
func MustIdentifier(k uint16) Identifier {
	id, err := NewIdentifier(k)
	if err != nil {
		panic(err)
	}
	return id
}

// Scalar recomputes the scalar value from the identifier's canonical
// byte encoding. id.b is always canonical: NewIdentifier derives it
// from SetUniformBytes and UnmarshalJSON validates it with
// SetCanonicalBytes before storing it.
func (id Identifier) Scalar() *edwards25519.Scalar {
	s, err := edwards25519.NewScalar().SetCanonicalBytes(id.b[:])
	if err != nil {
		panic(err)
	}
	return s
}

func (id Identifier) Equal(other Identifier) bool {
	return id.b == other.b
}

// Bytes returns the canonical 32-byte little-endian scalar encoding,
// used as map keys and wire representation.
func (id Identifier) Bytes() [32]byte {
	return id.b
}

func (id Identifier) String() string {
	b := id.Bytes()
	return fmt.Sprintf("%x", b[:2])
}

// MarshalJSON encodes the identifier as a hex string of its scalar
// bytes, matching the wire convention used for every other FROST byte
// value in this package.
func (id Identifier) MarshalJSON() ([]byte, error) {
	b := id.Bytes()
	return marshalHex(b[:])
}

func (id *Identifier) UnmarshalJSON(data []byte) error {
	raw, err := unmarshalHex(data, 32)
	if err != nil {
		return fmt.Errorf("frost: identifier: %w", err)
	}
	if _, err := edwards25519.NewScalar().SetCanonicalBytes(raw); err != nil {
		return fmt.Errorf("frost: identifier: %w", err)
	}
	copy(id.b[:], raw)
	return nil
}

// deriveChallenge computes c = SHA512(R || A || M) mod L — exactly
// RFC 8032's Ed25519 challenge, with no domain separation, so that
// aggregated FROST signatures are indistinguishable from ordinary
// Ed25519 signatures to any RFC 8032 verifier.
func deriveChallenge(r, a *edwards25519.Point, message []byte) *edwards25519.Scalar {
	h := sha512.New()
	h.Write(r.Bytes())
	h.Write(a.Bytes())
	h.Write(message)
	sum := h.Sum(nil)
	s, err := edwards25519.NewScalar().SetUniformBytes(sum)
	if err != nil {
		// sha512 always yields exactly 64 bytes; SetUniformBytes only
		// fails on wrong-length input.
		panic(err)
	}
	return s
}

// hashToScalar hashes dst||data with SHA-512 and reduces the wide
// output into a scalar. Used for the binding-factor and
// commitment-list hashes, which — unlike the Ed25519 challenge — do
// use domain separation per RFC 9591.
func hashToScalar(dst string, chunks ...[]byte) *edwards25519.Scalar {
	h := sha512.New()
	h.Write([]byte(dst))
	for _, c := range chunks {
		h.Write(c)
	}
	sum := h.Sum(nil)
	s, err := edwards25519.NewScalar().SetUniformBytes(sum)
	if err != nil {
		panic(err)
	}
	return s
}
