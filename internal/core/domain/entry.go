package domain

import "time"

// ProgramID is a wrapper-supplied identity string for the tool: conventionally
// a hash-format epoch byte followed by the tool's version-banner bytes.
// Bumping the epoch invalidates all prior entries for that wrapper.
type ProgramID string

// RelevantArgs is the deterministic, wrapper-filtered projection of an
// Invocation's arguments that affects object output beyond the preprocessed text.
type RelevantArgs []string

// DirectKey is the fast-path digest: program ID, relevant args, relevant env,
// and the raw source-file contents.
type DirectKey string

// EntryKey is the digest identifying a stored CacheEntry, derived either from
// a verified Manifest or directly from a PreprocessedKey.
type EntryKey string

// ManifestEntry pairs an absolute, canonicalized input path with the content
// hash it had when the manifest was written.
type ManifestEntry struct {
	Path string
	Hash string
}

// Manifest lists every implicit input (header/include) discovered during a
// prior preprocessor run for a given DirectKey, plus the EntryKey that run
// produced. One DirectKey may map to multiple manifests (different include
// resolutions); newest-written is tried first.
type Manifest struct {
	Version  int
	EntryKey EntryKey
	Files    []ManifestEntry
}

// Artifact is one named output file's bytes, keyed by artifact ID
// (e.g. "object", "coverage").
type Artifact struct {
	Name string
	Data []byte
}

// CacheEntry is the stored artifact bundle for an EntryKey: the tool's
// produced files, captured stdout/stderr, and its return code.
type CacheEntry struct {
	Artifacts  []Artifact
	Stdout     []byte
	Stderr     []byte
	ReturnCode int
}

// BuildInfo is a lightweight record of when an entry was last published.
// Nothing in the module constructs or stores it at present.
type BuildInfo struct {
	EntryKey   EntryKey
	InputHash  DirectKey
	OutputHash string
	Timestamp  time.Time
}
