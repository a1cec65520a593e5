package store

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/buildcache/buildcache/internal/adapters/hash" //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/core/domain"
	"go.trai.ch/zerr"
)

// ledger is the stats file (component G): a single small text file guarded
// by an exclusive flock so concurrent compiler-wrapper processes can bump
// counters without clobbering each other. No ecosystem package in the
// corpus wraps flock more conveniently than syscall.Flock itself, so this
// is one of the few stdlib-only corners of the store.
type ledger struct {
	path string
	mu   sync.Mutex // serializes access from goroutines within this process

	memoMu sync.RWMutex
	memo   map[uint64]toolIDMemo
}

const memoTTL = 30 * time.Second

type toolIDMemo struct {
	id       string
	mtime    int64
	fetchedAt time.Time
}

func newLedger(path string) *ledger {
	return &ledger{
		path: path,
		memo: make(map[uint64]toolIDMemo),
	}
}

// statsFields mirrors domain.StatsSnapshot in a fixed line order so the
// stats file stays a simple, greppable key=value text file.
var statsFields = []string{
	"total_bytes", "entry_count", "hits_direct", "hits_preprocessed",
	"hits_remote", "misses", "evictions",
}

func (l *ledger) withLock(fn func(*os.File) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open stats ledger"), "path", l.path)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return zerr.Wrap(err, "failed to lock stats ledger")
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN) //nolint:errcheck // best-effort unlock on close

	return fn(f)
}

func readSnapshot(f *os.File) (domain.StatsSnapshot, error) {
	if _, err := f.Seek(0, 0); err != nil {
		return domain.StatsSnapshot{}, zerr.Wrap(err, "failed to seek stats ledger")
	}
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := f.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			break
		}
	}

	values := map[string]int64{}
	for _, line := range strings.Split(string(buf), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		n, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			continue
		}
		values[parts[0]] = n
	}

	return domain.StatsSnapshot{
		TotalBytes:       values["total_bytes"],
		EntryCount:       values["entry_count"],
		HitsDirect:       values["hits_direct"],
		HitsPreprocessed: values["hits_preprocessed"],
		HitsRemote:       values["hits_remote"],
		Misses:           values["misses"],
		Evictions:        values["evictions"],
	}, nil
}

func writeSnapshot(f *os.File, s domain.StatsSnapshot) error {
	values := map[string]int64{
		"total_bytes":       s.TotalBytes,
		"entry_count":       s.EntryCount,
		"hits_direct":       s.HitsDirect,
		"hits_preprocessed": s.HitsPreprocessed,
		"hits_remote":       s.HitsRemote,
		"misses":            s.Misses,
		"evictions":         s.Evictions,
	}

	var b strings.Builder
	for _, name := range statsFields {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatInt(values[name], 10))
		b.WriteByte('\n')
	}

	if err := f.Truncate(0); err != nil {
		return zerr.Wrap(err, "failed to truncate stats ledger")
	}
	if _, err := f.Seek(0, 0); err != nil {
		return zerr.Wrap(err, "failed to seek stats ledger")
	}
	if _, err := f.WriteString(b.String()); err != nil {
		return zerr.Wrap(err, "failed to write stats ledger")
	}
	return f.Sync()
}

func (l *ledger) snapshot() (domain.StatsSnapshot, error) {
	var snap domain.StatsSnapshot
	err := l.withLock(func(f *os.File) error {
		s, err := readSnapshot(f)
		snap = s
		return err
	})
	return snap, err
}

func (l *ledger) mutate(fn func(*domain.StatsSnapshot)) error {
	return l.withLock(func(f *os.File) error {
		snap, err := readSnapshot(f)
		if err != nil {
			return err
		}
		fn(&snap)
		return writeSnapshot(f, snap)
	})
}

func (l *ledger) recordPublish(sizeBytes int64) error {
	return l.mutate(func(s *domain.StatsSnapshot) {
		s.TotalBytes += sizeBytes
		s.EntryCount++
	})
}

func (l *ledger) recordEviction(sizeBytes int64) error {
	return l.mutate(func(s *domain.StatsSnapshot) {
		s.TotalBytes -= sizeBytes
		s.EntryCount--
		s.Evictions++
	})
}

func (l *ledger) recordHit(level domain.AccuracyLevel) error {
	return l.mutate(func(s *domain.StatsSnapshot) {
		switch level {
		case domain.AccuracySloppy, domain.AccuracyDefault:
			s.HitsDirect++
		default:
			s.HitsPreprocessed++
		}
	})
}

func (l *ledger) recordHitRemote() error {
	return l.mutate(func(s *domain.StatsSnapshot) { s.HitsRemote++ })
}

func (l *ledger) recordMiss() error {
	return l.mutate(func(s *domain.StatsSnapshot) { s.Misses++ })
}

func (l *ledger) zero() error {
	return l.mutate(func(s *domain.StatsSnapshot) { *s = domain.StatsSnapshot{} })
}

// toolID returns the memoized identity string for the tool at path, keyed by
// a fast non-cryptographic hash of path+mtime so a rebuilt compiler at the
// same path invalidates the memo instead of silently reusing a stale
// identity for up to the full TTL.
func (l *ledger) toolID(path string, mtime int64, compute func() (string, error)) (string, error) {
	key := hash.MemoKey(path, strconv.FormatInt(mtime, 10))

	l.memoMu.RLock()
	cached, ok := l.memo[key]
	l.memoMu.RUnlock()
	if ok && cached.mtime == mtime && time.Since(cached.fetchedAt) < memoTTL {
		return cached.id, nil
	}

	id, err := compute()
	if err != nil {
		return "", err
	}

	l.memoMu.Lock()
	l.memo[key] = toolIDMemo{id: id, mtime: mtime, fetchedAt: time.Now()}
	l.memoMu.Unlock()
	return id, nil
}
