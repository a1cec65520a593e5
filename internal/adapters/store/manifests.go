package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/buildcache/buildcache/internal/core/domain"
	"go.trai.ch/zerr"
)

// manifestSeparator divides multiple candidate manifests accumulated under
// the same direct key (§3: distinct header sets collapsed to one key still
// need distinguishing at lookup time).
const manifestSeparator = "\x00"

// serializeManifest renders a single manifest in the line-oriented text
// format: version, entry key, file count, then one "path\thash" per line.
func serializeManifest(m domain.Manifest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n%s\n%d\n", m.Version, m.EntryKey, len(m.Files))
	for _, f := range m.Files {
		b.WriteString(f.Path)
		b.WriteByte('\t')
		b.WriteString(f.Hash)
		b.WriteByte('\n')
	}
	return b.String()
}

func parseManifest(block string) (domain.Manifest, error) {
	lines := strings.Split(block, "\n")
	if len(lines) < 3 {
		return domain.Manifest{}, zerr.New("manifest block too short")
	}

	version, err := strconv.Atoi(lines[0])
	if err != nil {
		return domain.Manifest{}, zerr.Wrap(err, "manifest has invalid version")
	}
	entryKey := domain.EntryKey(lines[1])
	count, err := strconv.Atoi(lines[2])
	if err != nil {
		return domain.Manifest{}, zerr.Wrap(err, "manifest has invalid file count")
	}

	m := domain.Manifest{Version: version, EntryKey: entryKey, Files: make([]domain.ManifestEntry, 0, count)}
	for i := 0; i < count; i++ {
		lineIdx := 3 + i
		if lineIdx >= len(lines) {
			return domain.Manifest{}, zerr.New("manifest truncated before declared file count")
		}
		parts := strings.SplitN(lines[lineIdx], "\t", 2)
		if len(parts) != 2 {
			return domain.Manifest{}, zerr.With(zerr.New("manifest file line malformed"), "line", lines[lineIdx])
		}
		m.Files = append(m.Files, domain.ManifestEntry{Path: parts[0], Hash: parts[1]})
	}
	return m, nil
}

// PublishManifest appends manifest to the (possibly already populated) file
// for directKey. Manifests published concurrently for the same direct key
// are accumulated rather than overwritten, since distinct header
// environments can legitimately share a direct key (§3).
func (s *Store) PublishManifest(directKey domain.DirectKey, manifest domain.Manifest) error {
	path, err := shardPath(s.root, manifestsDir, string(directKey))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create manifest shard"), "path", path)
	}

	existing, _, err := readManifests(path)
	if err != nil {
		return err
	}
	for _, m := range existing {
		if m.EntryKey == manifest.EntryKey {
			return nil // already recorded, nothing to do
		}
	}

	blocks := make([]string, 0, len(existing)+1)
	for _, m := range existing {
		blocks = append(blocks, serializeManifest(m))
	}
	blocks = append(blocks, serializeManifest(manifest))

	tmp := s.tmpPath()
	if err := os.WriteFile(tmp, []byte(strings.Join(blocks, manifestSeparator)), 0o644); err != nil {
		return zerr.Wrap(err, "failed to stage manifest")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return zerr.With(zerr.Wrap(err, "failed to publish manifest"), "path", path)
	}
	return nil
}

func readManifests(path string) ([]domain.Manifest, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is store-internal, built from a validated key
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, zerr.Wrap(err, "failed to read manifest file")
	}

	blocks := strings.Split(string(data), manifestSeparator)
	manifests := make([]domain.Manifest, 0, len(blocks))
	for _, block := range blocks {
		if strings.TrimSpace(block) == "" {
			continue
		}
		m, err := parseManifest(block)
		if err != nil {
			continue // a corrupted candidate manifest is skipped, not fatal
		}
		manifests = append(manifests, m)
	}
	return manifests, true, nil
}

// LookupManifest returns every manifest recorded for directKey, most
// recently published first. The caller (the pipeline's direct-mode probe) is
// responsible for verifying each candidate's recorded file hashes against
// the current filesystem state and picking the first that still matches, so
// the newest manifest wins ties the same way ccache's own direct-mode lookup
// does.
func (s *Store) LookupManifest(directKey domain.DirectKey) ([]domain.Manifest, error) {
	path, err := shardPath(s.root, manifestsDir, string(directKey))
	if err != nil {
		return nil, err
	}
	manifests, ok, err := readManifests(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	newestFirst := make([]domain.Manifest, len(manifests))
	for i, m := range manifests {
		newestFirst[len(manifests)-1-i] = m
	}
	return newestFirst, nil
}

// DumpManifest reads the manifest file at path directly (bypassing the
// directKey→shard derivation LookupManifest uses) and renders every
// candidate manifest it contains as human-readable text, restoring
// ccache's manifest inspection tooling (`--dump-manifest`).
func DumpManifest(path string) (string, error) {
	manifests, _, err := readManifests(path)
	if err != nil {
		return "", err
	}
	if len(manifests) == 0 {
		return "", zerr.With(zerr.New("no manifests found in file"), "path", path)
	}

	var b strings.Builder
	for i, m := range manifests {
		if i > 0 {
			b.WriteString("---\n")
		}
		fmt.Fprintf(&b, "version: %d\nentry_key: %s\nfiles: %d\n", m.Version, m.EntryKey, len(m.Files))
		for _, f := range m.Files {
			fmt.Fprintf(&b, "  %s\t%s\n", f.Hash, f.Path)
		}
	}
	return b.String(), nil
}
