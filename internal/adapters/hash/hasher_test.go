package hash_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/buildcache/buildcache/internal/adapters/hash"
	"github.com/stretchr/testify/require"
)

func TestUpdateFromFileEquivalentToUpdate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "src.c")
	content := []byte("int main(void) { return 0; }\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	viaFile := hash.New()
	require.NoError(t, viaFile.UpdateFromFile(path))
	fileDigest := viaFile.Finalize()

	viaBytes := hash.New()
	viaBytes.Update(content)
	bytesDigest := viaBytes.Finalize()

	require.Equal(t, bytesDigest, fileDigest)
	require.Len(t, fileDigest, 64) // sha256 hex is 64 chars, well above the 128-bit floor
}

func TestFinalizeResets(t *testing.T) {
	h := hash.New()
	h.Update([]byte("a"))
	first := h.Finalize()

	h.Update([]byte("a"))
	second := h.Finalize()

	require.Equal(t, first, second)
}

func TestUpdateFromFileMissing(t *testing.T) {
	h := hash.New()
	err := h.UpdateFromFile(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestFactoryProducesIndependentHashers(t *testing.T) {
	f := hash.Factory{}
	a := f.New()
	b := f.New()

	a.Update([]byte("x"))
	b.Update([]byte("y"))

	require.NotEqual(t, a.Finalize(), b.Finalize())
}
