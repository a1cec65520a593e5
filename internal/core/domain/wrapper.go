package domain

// OutputSpec describes one output artifact a wrapper expects the tool to
// produce: the path it will appear at and whether the invocation is
// considered a failure if that file is missing. Exactly one output per
// invocation is Required.
type OutputSpec struct {
	Path     string
	Required bool
}

// Capability is a single optional feature a Wrapper implementation may support.
type Capability string

const (
	// CapabilityDirectMode means the wrapper can report implicit inputs from
	// preprocess() and so participates in the direct-mode fast path.
	CapabilityDirectMode Capability = "direct_mode"
	// CapabilityHardLinks means artifacts produced by this wrapper are safe to
	// hard-link rather than copy when replayed (no in-place mutation expected).
	CapabilityHardLinks Capability = "hard_links"
)

// PreprocessResult is the outcome of running the tool in "emit preprocessed
// text" mode.
type PreprocessResult struct {
	// Preprocessed is the preprocessed source bytes.
	Preprocessed []byte
	// ImplicitInputs is the list of implicit inputs (headers/includes) the
	// tool reported while preprocessing, populated only when direct mode is active.
	ImplicitInputs []string
}

// RunResult is the outcome of actually invoking the real tool on a cache miss.
type RunResult struct {
	Stdout     []byte
	Stderr     []byte
	ReturnCode int
}
