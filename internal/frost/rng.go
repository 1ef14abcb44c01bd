package frost

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/binary"
	"io"

	"filippo.io/edwards25519"
)

// randReader is the minimal RNG surface every FROST operation needs.
// Production call sites pass crypto/rand.Reader; deterministic
// call sites (the trusted dealer, and tests) pass a seededRNG.
type randReader interface {
	io.Reader
}

// seededRNG is a counter-mode SHA-512 stream: out_i = SHA512(seed ||
// counter_i). It exists purely so the trusted-dealer path can be
// deterministic from a 32-byte seed, without reaching for a stream
// cipher the example corpus never imports for this purpose — see
// DESIGN.md.
type seededRNG struct {
	seed    [32]byte
	counter uint64
	buf     []byte
}

func newSeededRNG(seed [32]byte) *seededRNG {
	return &seededRNG{seed: seed}
}

func (r *seededRNG) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(r.buf) == 0 {
			var ctr [8]byte
			binary.LittleEndian.PutUint64(ctr[:], r.counter)
			r.counter++
			h := sha512.New()
			h.Write(r.seed[:])
			h.Write(ctr[:])
			r.buf = h.Sum(nil)
		}
		k := copy(p[n:], r.buf)
		r.buf = r.buf[k:]
		n += k
	}
	return n, nil
}

// randomScalar draws a uniformly random scalar from rng (wide reduction
// of 64 bytes; a zero result is not rejected).
func randomScalar(rng randReader) (*edwards25519.Scalar, error) {
	var wide [64]byte
	if _, err := io.ReadFull(rng, wide[:]); err != nil {
		return nil, err
	}
	return edwards25519.NewScalar().SetUniformBytes(wide[:])
}

// SecureRNG is crypto/rand.Reader, exported so callers outside this
// package (guardian round1 handling) don't need to import crypto/rand
// just to pass it through.
var SecureRNG randReader = rand.Reader
