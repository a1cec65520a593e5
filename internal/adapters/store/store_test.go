package store_test

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/buildcache/buildcache/internal/adapters/fsutil"
	"github.com/buildcache/buildcache/internal/adapters/store"
	"github.com/buildcache/buildcache/internal/core/domain"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(t.TempDir(), fsutil.New())
	require.NoError(t, err)
	return s
}

func TestPublishEntryThenLookup(t *testing.T) {
	s := newTestStore(t)
	entry := domain.CacheEntry{
		Artifacts:  []domain.Artifact{{Name: "out.o", Data: []byte("object")}},
		Stdout:     []byte("compiling\n"),
		ReturnCode: 0,
	}

	require.NoError(t, s.PublishEntry("deadbeef1234", entry))

	got, ok, err := s.LookupEntry("deadbeef1234")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry.ReturnCode, got.ReturnCode)
	require.Equal(t, entry.Stdout, got.Stdout)
	require.Len(t, got.Artifacts, 1)
	require.Equal(t, "object", string(got.Artifacts[0].Data))
}

func TestLookupEntryMissReturnsFalseNotError(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.LookupEntry("0123456789ab")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPublishEntryIsFirstWriterWins(t *testing.T) {
	s := newTestStore(t)
	first := domain.CacheEntry{ReturnCode: 0, Stdout: []byte("first")}
	second := domain.CacheEntry{ReturnCode: 1, Stdout: []byte("second")}

	require.NoError(t, s.PublishEntry("cafebabe0001", first))
	require.NoError(t, s.PublishEntry("cafebabe0001", second))

	got, ok, err := s.LookupEntry("cafebabe0001")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "first", string(got.Stdout))
}

func TestPublishAndLookupManifest(t *testing.T) {
	s := newTestStore(t)
	manifest := domain.Manifest{
		Version:  1,
		EntryKey: "entrykey0001",
		Files: []domain.ManifestEntry{
			{Path: "main.c", Hash: "abc123"},
			{Path: "util.h", Hash: "def456"},
		},
	}

	require.NoError(t, s.PublishManifest("directkey001", manifest))

	got, err := s.LookupManifest("directkey001")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, manifest.EntryKey, got[0].EntryKey)
	require.Equal(t, manifest.Files, got[0].Files)
}

func TestPublishManifestAccumulatesDistinctEntryKeys(t *testing.T) {
	s := newTestStore(t)
	m1 := domain.Manifest{Version: 1, EntryKey: "entrykeyaaaa", Files: []domain.ManifestEntry{{Path: "a.c", Hash: "1"}}}
	m2 := domain.Manifest{Version: 1, EntryKey: "entrykeybbbb", Files: []domain.ManifestEntry{{Path: "a.c", Hash: "2"}}}

	require.NoError(t, s.PublishManifest("directkey002", m1))
	require.NoError(t, s.PublishManifest("directkey002", m2))

	got, err := s.LookupManifest("directkey002")
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestLookupManifestReturnsNewestPublishedFirst(t *testing.T) {
	s := newTestStore(t)
	older := domain.Manifest{Version: 1, EntryKey: "entrykeyold1", Files: []domain.ManifestEntry{{Path: "a.c", Hash: "1"}}}
	newer := domain.Manifest{Version: 1, EntryKey: "entrykeynew1", Files: []domain.ManifestEntry{{Path: "a.c", Hash: "2"}}}

	require.NoError(t, s.PublishManifest("directkey003", older))
	require.NoError(t, s.PublishManifest("directkey003", newer))

	got, err := s.LookupManifest("directkey003")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, newer.EntryKey, got[0].EntryKey)
	require.Equal(t, older.EntryKey, got[1].EntryKey)
}

func TestDumpManifestRendersFilesAndHashes(t *testing.T) {
	root := t.TempDir()
	s, err := store.New(root, fsutil.New())
	require.NoError(t, err)

	manifest := domain.Manifest{
		Version:  1,
		EntryKey: "entrykey0001",
		Files: []domain.ManifestEntry{
			{Path: "main.c", Hash: "abc123"},
		},
	}
	require.NoError(t, s.PublishManifest("directkey001", manifest))

	var manifestPath string
	require.NoError(t, filepath.WalkDir(filepath.Join(root, "c", "manifests"), func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		manifestPath = p
		return nil
	}))
	require.NotEmpty(t, manifestPath)

	out, err := store.DumpManifest(manifestPath)
	require.NoError(t, err)
	require.Contains(t, out, "entry_key: entrykey0001")
	require.Contains(t, out, "abc123\tmain.c")
}

func TestDumpManifestMissingFile(t *testing.T) {
	_, err := store.DumpManifest(filepath.Join(t.TempDir(), "nonexistent"))
	require.Error(t, err)
}

func TestStatsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	entry := domain.CacheEntry{Artifacts: []domain.Artifact{{Name: "a.o", Data: []byte("1234")}}}

	require.NoError(t, s.PublishEntry("stat0000test", entry))
	require.NoError(t, s.RecordHit(domain.AccuracyDefault))
	require.NoError(t, s.RecordMiss())

	snap, err := s.Stats()
	require.NoError(t, err)
	require.Equal(t, int64(1), snap.EntryCount)
	require.Equal(t, int64(1), snap.HitsDirect)
	require.Equal(t, int64(1), snap.Misses)
	require.EqualValues(t, len("1234"), snap.TotalBytes)

	require.NoError(t, s.ZeroStats())
	snap, err = s.Stats()
	require.NoError(t, err)
	require.Equal(t, domain.StatsSnapshot{}, snap)
}

func TestEvictUntilRemovesLeastRecentlyUsedFirst(t *testing.T) {
	s := newTestStore(t)
	big := domain.CacheEntry{Artifacts: []domain.Artifact{{Name: "a.o", Data: make([]byte, 100)}}}
	small := domain.CacheEntry{Artifacts: []domain.Artifact{{Name: "b.o", Data: make([]byte, 10)}}}

	require.NoError(t, s.PublishEntry("aaaaaaaa0001", big))
	require.NoError(t, s.PublishEntry("bbbbbbbb0002", small))

	require.NoError(t, s.EvictUntil(50))

	_, okBig, _ := s.LookupEntry("aaaaaaaa0001")
	_, okSmall, _ := s.LookupEntry("bbbbbbbb0002")
	require.False(t, okBig)
	require.True(t, okSmall)
}

func TestClearRemovesEntriesAndResetsStats(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PublishEntry("ccccccccc003", domain.CacheEntry{Stdout: []byte("x")}))

	require.NoError(t, s.Clear())

	_, ok, err := s.LookupEntry("ccccccccc003")
	require.NoError(t, err)
	require.False(t, ok)

	snap, err := s.Stats()
	require.NoError(t, err)
	require.Equal(t, domain.StatsSnapshot{}, snap)
}
