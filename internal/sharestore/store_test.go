package sharestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/frostfed/guardian/internal/frost"
)

func TestSaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	seed := [32]byte{}
	copy(seed[:], "sharestore-roundtrip-seed")
	keyPackages, pub, err := frost.Dealer(seed, 2, 3)
	require.NoError(t, err)

	id := frost.MustIdentifier(1)
	want := Persisted{KeyPackage: keyPackages[id], PublicKeyPackage: pub}

	require.NoError(t, store.Save(1, want))

	got, ok := store.Load(1)
	require.True(t, ok)
	require.Equal(t, want.PublicKeyPackage.GroupVerifyingKeyBytes(), got.PublicKeyPackage.GroupVerifyingKeyBytes())
	require.Equal(t, want.KeyPackage.MinSigners, got.KeyPackage.MinSigners)
}

func TestLoadAbsentReturnsFalse(t *testing.T) {
	store := New(t.TempDir())
	_, ok := store.Load(7)
	require.False(t, ok)
}

func TestLoadCorruptReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	path := store.Path(3)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))
	_, ok := store.Load(3)
	require.False(t, ok)
}
