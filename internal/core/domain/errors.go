package domain

import "go.trai.ch/zerr"

var (
	// ErrUnsupportedInvocation is returned when a wrapper cannot cache the given invocation
	// (e.g. a link step or an invocation with no determinable target object file).
	ErrUnsupportedInvocation = zerr.New("unsupported invocation")

	// ErrHashVersionMismatch names a program ID whose hash-format epoch no longer
	// matches what the store was populated with. No adapter returns it: an epoch
	// change alters every key, so old entries simply stop matching.
	ErrHashVersionMismatch = zerr.New("hash version mismatch")

	// ErrRemoteUnavailable is returned when a remote provider call fails or times out.
	ErrRemoteUnavailable = zerr.New("remote cache unavailable")

	// ErrConfigInvalid names a configuration that cannot be parsed into a valid
	// Config. The config loader does not return it; it wraps the underlying read
	// or YAML error instead.
	ErrConfigInvalid = zerr.New("invalid configuration")

	// ErrNoWrapper is returned when no registered wrapper accepts the invocation.
	ErrNoWrapper = zerr.New("no wrapper for invocation")

	// ErrManifestInvalid marks cached data that fails validation. The remote wire
	// decoder returns it for an entry blob with a bad magic header; a manifest whose
	// recorded hashes no longer match is skipped as a miss without this error.
	ErrManifestInvalid = zerr.New("manifest invalid")

	// ErrEntryMissing names an entry key with no cached entry. The local store does
	// not return it; LookupEntry reports a miss as ok=false with a nil error.
	ErrEntryMissing = zerr.New("entry not found")

	// ErrOutputMissing is returned when a tool invocation that should have produced a
	// required output did not.
	ErrOutputMissing = zerr.New("required output missing")
)
