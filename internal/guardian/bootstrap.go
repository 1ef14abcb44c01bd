package guardian

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// bootstrapSeed derives the 32-byte trusted-dealer seed used when a
// guardian has no peers and no keys on disk. This is a demo-mode
// shortcut: it is never consulted once a share has come from DKG,
// refresh, or redeal.
func bootstrapSeed() [32]byte {
	reader := hkdf.New(sha256.New, []byte("root"), []byte("cream-root-genesis"), []byte("cream-frost-dealer-seed-v1"))
	var seed [32]byte
	if _, err := io.ReadFull(reader, seed[:]); err != nil {
		panic("guardian: hkdf bootstrap seed derivation failed: " + err.Error())
	}
	return seed
}
