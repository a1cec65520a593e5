package hash

import "github.com/cespare/xxhash/v2"

// MemoKey computes a fast, non-cryptographic key for the in-process tool-ID
// memo (component G). The memo trusts a matching key without re-checking
// the path, so two distinct (path, mtime) pairs that collide in this 64-bit
// xxhash would share one tool ID for the memo's TTL; the teacher's xxhash
// choice for hot, non-security-critical hashing is kept for speed.
func MemoKey(parts ...string) uint64 {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(p)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}
