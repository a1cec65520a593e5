// Package pipeline implements the invocation pipeline (component F): the
// state machine that turns one intercepted tool invocation into either a
// cache replay or a real tool run followed by a publish.
package pipeline

import (
	"context"
	"math/rand/v2"
	"os"

	"github.com/buildcache/buildcache/internal/core/domain"
	"github.com/buildcache/buildcache/internal/core/ports"
	"go.trai.ch/zerr"
)

// evictionChance is the 1/N odds of triggering an eviction pass after a
// successful publish (§4.G: "called probabilistically after each
// successful publish"), avoiding a size scan on every single invocation.
const evictionChance = 256

// Result is the outcome of running one invocation through the pipeline:
// enough to let the front end reproduce the real tool's exit behavior
// byte-for-byte.
type Result struct {
	Stdout     []byte
	Stderr     []byte
	ReturnCode int
	Hit        bool
}

// Pipeline wires the wrapper registry, local store, remote provider, and
// hasher together into the invocation state machine.
type Pipeline struct {
	wrappers  []ports.Wrapper
	store     ports.LocalStore
	remote    ports.RemoteProvider
	remotePut func(domain.EntryKey, domain.CacheEntry)
	hasherFac ports.HasherFactory
	fs        ports.FileOps
	log       ports.Logger
	tracer    ports.Tracer
	cfg       domain.Config
}

// New creates a Pipeline. remotePut is called (never blocking) to schedule
// an async publish of a cache miss's result to the remote provider.
func New(
	wrappers []ports.Wrapper,
	store ports.LocalStore,
	remote ports.RemoteProvider,
	remotePut func(domain.EntryKey, domain.CacheEntry),
	hasherFac ports.HasherFactory,
	fileOps ports.FileOps,
	log ports.Logger,
	tracer ports.Tracer,
	cfg domain.Config,
) *Pipeline {
	return &Pipeline{
		wrappers:  wrappers,
		store:     store,
		remote:    remote,
		remotePut: remotePut,
		hasherFac: hasherFac,
		fs:        fileOps,
		log:       log,
		tracer:    tracer,
		cfg:       cfg,
	}
}

// Run executes one invocation through the full pipeline: select a wrapper,
// probe the cache, and on a miss run the real tool and publish its result.
func (p *Pipeline) Run(ctx context.Context, inv domain.Invocation) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	w := p.selectWrapper(inv)
	if w == nil {
		return Result{}, zerr.Wrap(domain.ErrNoWrapper, inv.Executable)
	}

	args, err := w.ResolveArgs(inv)
	if err != nil {
		// §7: a response-file or aliasing failure here means this
		// invocation can't be understood well enough to cache, not that
		// the real tool can't run — degrade to an uncached passthrough
		// using the executable and its raw, unresolved arguments.
		p.log.Debug("failed to resolve invocation args, running uncached", "error", err)
		return p.runMiss(w, append([]string{inv.Executable}, inv.Args...), inv, "")
	}

	if p.cfg.Disabled {
		return p.runMiss(w, args, inv, "")
	}

	// probe never returns an error: every failure mode downstream of "decide
	// whether there's a usable manifest" degrades to "no hit" internally,
	// per §7's "on any ambiguity, bypass the cache".
	if hit := p.probe(w, args, inv); hit != nil {
		return *hit, nil
	}

	entryKey, err := p.slowEntryKey(ctx, w, args, inv)
	if err != nil {
		// §7: anything that goes wrong before the tool has run — an
		// unsupported invocation shape, a hashing failure, a preprocessor
		// that can't be invoked — degrades to an uncached passthrough
		// rather than a user-visible failure.
		p.log.Debug("failed to compute entry key, running uncached", "error", err)
		return p.runMiss(w, args, inv, "")
	}

	if result, ok := p.replay(ctx, w, args, inv, entryKey); ok {
		return result, nil
	}

	return p.runMiss(w, args, inv, entryKey)
}

func (p *Pipeline) selectWrapper(inv domain.Invocation) ports.Wrapper {
	for _, w := range p.wrappers {
		if w.CanHandle(inv) {
			return w
		}
	}
	return nil
}

// probe attempts the direct-mode fast path: a DirectKey computed without
// running the preprocessor, verified against one of the manifests recorded
// for that key. A nil result means "no usable manifest" — including every
// lookup/materialize failure along the way (§7: lookup errors are a miss,
// logged at debug, never propagated).
func (p *Pipeline) probe(w ports.Wrapper, args []string, inv domain.Invocation) *Result {
	if !p.cfg.DirectMode || !w.Capabilities()[domain.CapabilityDirectMode] {
		return nil
	}

	directKey, err := p.directKey(w, args, inv)
	if err != nil {
		p.log.Debug("failed to compute direct key", "error", err)
		return nil
	}

	manifests, err := p.store.LookupManifest(directKey)
	if err != nil {
		p.log.Debug("manifest lookup failed, treating as miss", "error", err)
		return nil
	}

	for _, manifest := range manifests {
		if !p.manifestStillValid(manifest) {
			continue
		}
		entry, ok, err := p.store.LookupEntry(manifest.EntryKey)
		if err != nil {
			p.log.Debug("entry lookup failed, treating as miss", "error", err)
			continue
		}
		if !ok {
			continue
		}
		if err := p.materialize(w, args, inv, entry, manifest.EntryKey, true); err != nil {
			p.log.Debug("failed to materialize manifest hit, treating as miss", "error", err)
			continue
		}
		if err := p.store.RecordAccess(manifest.EntryKey); err != nil {
			p.log.Debug("failed to record access", "error", err)
		}
		if err := p.store.RecordHit(p.cfg.Accuracy); err != nil {
			p.log.Debug("failed to record hit", "error", err)
		}
		return &Result{Stdout: entry.Stdout, Stderr: entry.Stderr, ReturnCode: entry.ReturnCode, Hit: true}
	}
	return nil
}

// manifestStillValid re-hashes every file the manifest recorded and
// compares against the stored hash, the direct-mode verification step.
func (p *Pipeline) manifestStillValid(manifest domain.Manifest) bool {
	for _, f := range manifest.Files {
		h := p.hasherFac.New()
		if err := h.UpdateFromFile(f.Path); err != nil {
			return false
		}
		if h.Finalize() != f.Hash {
			return false
		}
	}
	return true
}

// directKey hashes the tool's identity, the relevant argument filter,
// relevant environment variables, and the raw contents of the source files
// named on the command line — everything needed to key a manifest lookup
// without running the preprocessor.
func (p *Pipeline) directKey(w ports.Wrapper, args []string, inv domain.Invocation) (domain.DirectKey, error) {
	programID, err := w.ProgramID(inv)
	if err != nil {
		return "", err
	}
	relevantArgs := w.RelevantArgs(args)
	relevantEnv := w.RelevantEnv(inv)

	h := p.hasherFac.New()
	h.Update([]byte(programID))
	for _, a := range relevantArgs {
		// base_dir rewriting (§ supplemented features): hash the
		// checkout-relative form of any absolute argument so a cache
		// populated from one checkout path is reusable from another.
		h.Update([]byte(domain.RewritePath(a, p.cfg.BaseDir)))
	}
	for _, k := range sortedKeys(relevantEnv) {
		h.Update([]byte(k))
		h.Update([]byte(relevantEnv[k]))
	}
	inputs, err := w.InputFiles(args, inv.WorkDir)
	if err != nil {
		return "", err
	}
	for _, in := range inputs {
		if err := h.UpdateFromFile(in); err != nil {
			return "", err
		}
	}
	return domain.DirectKey(h.Finalize()), nil
}

// slowEntryKey runs the preprocessor and hashes the resulting text along
// with the direct key's components, the fallback used when no manifest
// verified or direct mode is unavailable.
func (p *Pipeline) slowEntryKey(ctx context.Context, w ports.Wrapper, args []string, inv domain.Invocation) (domain.EntryKey, error) {
	_, span := p.tracer.Start(ctx, "pipeline.preprocess")
	defer span.End()

	directKey, err := p.directKey(w, args, inv)
	if err != nil {
		return "", err
	}

	result, err := w.Preprocess(args, inv.WorkDir, inv.Env, p.cfg.DirectMode)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	h := p.hasherFac.New()
	h.Update([]byte(directKey))
	h.Update(result.Preprocessed)
	entryKey := domain.EntryKey(h.Finalize())

	if p.cfg.DirectMode && len(result.ImplicitInputs) > 0 {
		if err := p.publishManifest(directKey, entryKey, result.ImplicitInputs); err != nil {
			p.log.Debug("failed to publish manifest", "error", err)
		}
	}

	return entryKey, nil
}

func (p *Pipeline) publishManifest(directKey domain.DirectKey, entryKey domain.EntryKey, implicitInputs []string) error {
	files := make([]domain.ManifestEntry, 0, len(implicitInputs))
	for _, path := range implicitInputs {
		h := p.hasherFac.New()
		if err := h.UpdateFromFile(path); err != nil {
			continue
		}
		files = append(files, domain.ManifestEntry{Path: path, Hash: h.Finalize()})
	}
	return p.store.PublishManifest(directKey, domain.Manifest{Version: 1, EntryKey: entryKey, Files: files})
}

// replay checks the local store, then the remote provider, for entryKey.
// Every failure along the way — a lookup error, a remote outage, a
// materialize failure on an entry that turned out to be unreadable —
// degrades to ok=false (miss) rather than propagating, per §7.
func (p *Pipeline) replay(ctx context.Context, w ports.Wrapper, args []string, inv domain.Invocation, entryKey domain.EntryKey) (Result, bool) {
	entry, ok, err := p.store.LookupEntry(entryKey)
	if err != nil {
		p.log.Debug("entry lookup failed, treating as miss", "error", err)
		ok = false
	}
	if ok {
		if err := p.materialize(w, args, inv, entry, entryKey, true); err != nil {
			p.log.Debug("failed to materialize local hit, treating as miss", "error", err)
		} else {
			if err := p.store.RecordAccess(entryKey); err != nil {
				p.log.Debug("failed to record access", "error", err)
			}
			if err := p.store.RecordHit(p.cfg.Accuracy); err != nil {
				p.log.Debug("failed to record hit", "error", err)
			}
			return Result{Stdout: entry.Stdout, Stderr: entry.Stderr, ReturnCode: entry.ReturnCode, Hit: true}, true
		}
	}

	remoteEntry, ok, err := p.remote.Get(ctx, entryKey)
	if err != nil {
		p.log.Debug("remote lookup failed, treating as miss", "error", err)
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}

	if err := p.materialize(w, args, inv, remoteEntry, entryKey, false); err != nil {
		p.log.Debug("failed to materialize remote hit, treating as miss", "error", err)
		return Result{}, false
	}
	if err := p.store.PublishEntry(entryKey, remoteEntry); err != nil {
		p.log.Debug("failed to mirror remote entry locally", "error", err)
	}
	if err := p.store.RecordRemoteHit(); err != nil {
		p.log.Debug("failed to record remote hit", "error", err)
	}
	return Result{Stdout: remoteEntry.Stdout, Stderr: remoteEntry.Stderr, ReturnCode: remoteEntry.ReturnCode, Hit: true}, true
}

// materialize writes a cache entry's captured artifacts back to the paths
// the tool would itself have produced. Artifacts are matched to outputs by
// the recorded artifactName, not by slice position: LookupEntry rebuilds
// entry.Artifacts from a directory listing, which is sorted alphabetically
// and so does not preserve publish-time order (e.g. "artifact1" sorts
// before "object").
//
// local reports whether entry came from this machine's own store (a direct
// LookupEntry, or an entry reached via a manifest hit) rather than the
// remote provider. For a local entry whose wrapper reports
// domain.CapabilityHardLinks, the artifact is hard-linked (or, failing
// that, copied) straight from the store's own on-disk file instead of being
// rewritten from the copy already read into entry.Artifacts — the same
// "don't touch the bytes if a link will do" shortcut gcc_wrapper_t's
// get_capabilities advertises. Remote entries have no local source file to
// link from, so they always fall back to writing the fetched bytes.
func (p *Pipeline) materialize(w ports.Wrapper, args []string, inv domain.Invocation, entry domain.CacheEntry, entryKey domain.EntryKey, local bool) error {
	outputs, err := w.ExpectedOutputs(args, inv.WorkDir)
	if err != nil {
		return err
	}
	byName := make(map[string][]byte, len(entry.Artifacts))
	for _, a := range entry.Artifacts {
		byName[a.Name] = a.Data
	}
	canLink := local && w.Capabilities()[domain.CapabilityHardLinks]

	for i, out := range outputs {
		name := artifactName(i)
		data, ok := byName[name]
		if !ok {
			continue
		}
		if canLink {
			if src, ok := p.store.ArtifactPath(entryKey, name); ok {
				if err := p.fs.LinkOrCopy(src, out.Path); err != nil {
					return zerr.With(zerr.Wrap(err, "failed to replay cached artifact"), "path", out.Path)
				}
				continue
			}
		}
		if err := p.fs.AtomicWrite(out.Path, data, 0o644); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to replay cached artifact"), "path", out.Path)
		}
	}
	return nil
}

// prefixedArgs prepends the configured prefix_command (e.g. distcc) ahead of
// the resolved tool invocation, so a miss composes with a distributed build
// front end instead of competing with one. Every Wrapper's RunForMiss treats
// args[0] as the executable, so prepending here is enough for gcc, msvc, and
// the generic wrapper alike.
func (p *Pipeline) prefixedArgs(args []string) []string {
	if len(p.cfg.PrefixCommand) == 0 {
		return args
	}
	prefixed := make([]string, 0, len(p.cfg.PrefixCommand)+len(args))
	prefixed = append(prefixed, p.cfg.PrefixCommand...)
	prefixed = append(prefixed, args...)
	return prefixed
}

// runMiss runs the real tool, captures its produced outputs, and publishes
// the result locally and (asynchronously) remotely. An empty entryKey means
// caching was disabled for this invocation; the tool still runs normally.
func (p *Pipeline) runMiss(w ports.Wrapper, args []string, inv domain.Invocation, entryKey domain.EntryKey) (Result, error) {
	runResult, err := w.RunForMiss(p.prefixedArgs(args), inv.WorkDir, inv.Env)
	if err != nil {
		return Result{}, err
	}
	result := Result{Stdout: runResult.Stdout, Stderr: runResult.Stderr, ReturnCode: runResult.ReturnCode}

	if entryKey == "" || runResult.ReturnCode != 0 {
		return result, nil
	}

	if err := p.store.RecordMiss(); err != nil {
		p.log.Debug("failed to record miss", "error", err)
	}

	entry, err := p.collectArtifacts(w, args, inv, runResult)
	if err != nil {
		p.log.Debug("failed to collect produced artifacts, not caching", "error", err)
		return result, nil
	}

	if err := p.store.PublishEntry(entryKey, entry); err != nil {
		p.log.Debug("failed to publish cache entry", "error", err)
	} else {
		if p.remotePut != nil {
			p.remotePut(entryKey, entry)
		}
		p.maybeEvict()
	}

	return result, nil
}

// maybeEvict rolls a 1-in-evictionChance trigger and, on a hit, sweeps the
// store down to its low-water mark. Skipped entirely when no size cap is
// configured.
func (p *Pipeline) maybeEvict() {
	if p.cfg.MaxSizeBytes <= 0 {
		return
	}
	if rand.IntN(evictionChance) != 0 { //nolint:gosec // eviction sampling, not security-sensitive
		return
	}
	lowWater := int64(float64(p.cfg.MaxSizeBytes) * domain.DefaultLowWaterMark)
	if err := p.store.EvictUntil(lowWater); err != nil {
		p.log.Debug("eviction pass failed", "error", err)
	}
}

func (p *Pipeline) collectArtifacts(w ports.Wrapper, args []string, inv domain.Invocation, runResult domain.RunResult) (domain.CacheEntry, error) {
	outputs, err := w.ExpectedOutputs(args, inv.WorkDir)
	if err != nil {
		return domain.CacheEntry{}, err
	}

	entry := domain.CacheEntry{Stdout: runResult.Stdout, Stderr: runResult.Stderr, ReturnCode: runResult.ReturnCode}
	for i, out := range outputs {
		data, err := readProducedFile(out.Path)
		if err != nil {
			if out.Required {
				return domain.CacheEntry{}, zerr.With(zerr.Wrap(domain.ErrOutputMissing, "required output missing"), "path", out.Path)
			}
			continue
		}
		entry.Artifacts = append(entry.Artifacts, domain.Artifact{Name: artifactName(i), Data: data})
	}
	return entry, nil
}

// readProducedFile reads a file the wrapped tool just produced. This is
// plain local disk I/O on a path the tool itself chose, not a cache-store
// operation, so it goes through os directly rather than ports.FileOps.
func readProducedFile(path string) ([]byte, error) {
	return os.ReadFile(path) //nolint:gosec // path comes from the wrapper's own ExpectedOutputs
}

func artifactName(i int) string {
	if i == 0 {
		return "object"
	}
	return "artifact" + string(rune('0'+i))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
