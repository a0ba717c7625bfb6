package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/siv/pkg/siv/diff"
	"github.com/jamesainslie/siv/pkg/siv/digest"
	"github.com/jamesainslie/siv/pkg/siv/engine"
	"github.com/jamesainslie/siv/pkg/siv/types"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	t.Parallel()

	s := openStore(t)

	rec := &Record{
		Mode:         engine.ModeVerify,
		Root:         "/srv",
		ManifestPath: "/var/lib/siv/srv.csv",
		Algorithm:    "sha256",
		StartedAt:    time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC),
		Elapsed:      2 * time.Second,
		FileCount:    10,
		DirCount:     2,
		Deleted:      1,
		Added:        2,
		Changed:      3,
	}
	require.NoError(t, s.Put(rec))
	require.NotEmpty(t, rec.ID)

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Root, got.Root)
	assert.True(t, rec.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, rec.Elapsed, got.Elapsed)
	assert.Equal(t, 6, got.Warnings())
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()

	_, err := openStore(t).Get("does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListNewestFirst(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Fractional seconds of different widths must still sort by time.
	offsets := []time.Duration{
		0,
		500 * time.Millisecond,
		1*time.Second + 123*time.Millisecond,
		time.Hour,
	}
	for i, off := range offsets {
		require.NoError(t, s.Put(&Record{Root: "/r", FileCount: i, StartedAt: base.Add(off)}))
	}

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, rec := range all {
		assert.Equal(t, 3-i, rec.FileCount)
	}

	limited, err := s.List(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, 3, limited[0].FileCount)
	assert.Equal(t, 2, limited[1].FileCount)
}

func TestStore_ListEmpty(t *testing.T) {
	t.Parallel()

	records, err := openStore(t).List(10)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestStore_Prune(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	now := time.Now()

	old := &Record{Root: "/r", StartedAt: now.Add(-100 * 24 * time.Hour)}
	recent := &Record{Root: "/r", StartedAt: now.Add(-time.Hour)}
	require.NoError(t, s.Put(old))
	require.NoError(t, s.Put(recent))

	removed, err := s.Prune(now.Add(-90 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Get(old.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.Get(recent.ID)
	require.NoError(t, err)
	assert.Equal(t, recent.ID, got.ID)

	records, err := s.List(0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestStore_Reopen(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "history")
	s, err := Open(dir)
	require.NoError(t, err)
	rec := &Record{Root: "/persist"}
	require.NoError(t, s.Put(rec))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "/persist", got.Root)
}

func TestFromVerify(t *testing.T) {
	t.Parallel()

	res := &engine.VerifyResult{
		Summary: engine.Summary{
			Mode:      engine.ModeVerify,
			Root:      "/r",
			Algorithm: digest.MD5,
			FileCount: 4,
			DirCount:  1,
			Skipped:   []types.SkippedEntry{{Path: "/r/l", Reason: "symlink"}},
		},
		Diff: &diff.Result{
			Deleted: []string{"/r/a"},
			Changed: []types.ChangeRecord{{Path: "/r/b"}, {Path: "/r/c"}},
		},
	}

	rec := FromVerify(res, "/tmp/r.txt")
	assert.Equal(t, engine.ModeVerify, rec.Mode)
	assert.Equal(t, "md5", rec.Algorithm)
	assert.Equal(t, 1, rec.Skipped)
	assert.Equal(t, 1, rec.Deleted)
	assert.Equal(t, 0, rec.Added)
	assert.Equal(t, 2, rec.Changed)
	assert.Equal(t, "/tmp/r.txt", rec.ReportPath)

	initRec := FromInit(&engine.InitResult{Summary: res.Summary}, "")
	assert.Zero(t, initRec.Warnings())
}
