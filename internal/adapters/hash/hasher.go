// Package hash implements the streaming cryptographic digest (component A).
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"

	"github.com/buildcache/buildcache/internal/core/ports"
	"go.trai.ch/zerr"
)

const blockSize = 64 * 1024

var _ ports.Hasher = (*Hasher)(nil)
var _ ports.HasherFactory = Factory{}

// Hasher streams bytes into a crypto/sha256 digest. Entry keys, direct-mode
// keys, and preprocessed keys all need collision resistance, not speed or
// preimage resistance, which is exactly what sha256 gives without pulling in
// a dedicated hashing dependency the pack never reaches for over stdlib.
type Hasher struct {
	h hash.Hash
}

// New creates a Hasher ready for use.
func New() *Hasher {
	return &Hasher{h: sha256.New()}
}

// Update feeds bytes into the running digest.
func (h *Hasher) Update(b []byte) {
	_, _ = h.h.Write(b)
}

// UpdateFromFile feeds a file's content into the running digest, reading in
// fixed-size blocks. Equivalent, for the same byte content, to Update(content).
func (h *Hasher) UpdateFromFile(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is controlled by caller
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open file for hashing"), "path", path)
	}
	defer f.Close() //nolint:errcheck // best-effort close

	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(h.h, f, buf); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to read file for hashing"), "path", path)
	}
	return nil
}

// Finalize returns the lowercase hex digest and resets the hasher.
func (h *Hasher) Finalize() string {
	sum := h.h.Sum(nil)
	h.Reset()
	return hex.EncodeToString(sum)
}

// Reset discards any accumulated state without finalizing.
func (h *Hasher) Reset() {
	h.h = sha256.New()
}

// Factory constructs fresh Hasher instances.
type Factory struct{}

// New returns a fresh ports.Hasher.
func (Factory) New() ports.Hasher {
	return New()
}
