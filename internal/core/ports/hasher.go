package ports

// Hasher is the streaming cryptographic digest interface (component A).
// start -> Update(s) -> UpdateFromFile(s) -> Finalize produces a fixed-width,
// collision-resistant digest rendered as lowercase hex with no separators.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// Update feeds bytes into the running digest.
	Update(b []byte)

	// UpdateFromFile feeds a file's content into the running digest, reading
	// in fixed-size blocks. Equivalent, for the same byte content, to
	// Update(content).
	UpdateFromFile(path string) error

	// Finalize returns the lowercase hex digest and resets the hasher to its
	// initial state.
	Finalize() string

	// Reset discards any accumulated state without finalizing.
	Reset()
}

// HasherFactory constructs fresh Hasher instances; adapters are typically
// stateful per digest, so the pipeline asks for a new one per computation.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type HasherFactory interface {
	New() Hasher
}
