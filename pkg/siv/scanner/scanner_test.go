package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/siv/pkg/siv/digest"
	"github.com/jamesainslie/siv/pkg/siv/siverr"
	"github.com/jamesainslie/siv/pkg/siv/types"
)

// buildTree creates the files and directories described by layout under a
// fresh temp dir. Keys ending in "/" are directories; other keys are files
// with the mapped content.
func buildTree(t *testing.T, layout map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range layout {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if rel[len(rel)-1] == '/' {
			require.NoError(t, os.MkdirAll(path, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func scan(t *testing.T, root string) *types.ScanResult {
	t.Helper()
	r, err := New(Options{Root: root, Algorithm: digest.SHA1}).Scan(context.Background())
	require.NoError(t, err)
	return r
}

func TestScan_CanonicalOrder(t *testing.T) {
	t.Parallel()

	root := buildTree(t, map[string]string{
		"b/":        "",
		"a/x.txt":   "x",
		"a/c/d.txt": "d",
		"z.txt":     "z",
		"m.txt":     "m",
	})

	r := scan(t, root)

	want := []string{
		filepath.Join(root, "a"),
		filepath.Join(root, "a", "c"),
		filepath.Join(root, "a", "c", "d.txt"),
		filepath.Join(root, "a", "x.txt"),
		filepath.Join(root, "b"),
		filepath.Join(root, "m.txt"),
		filepath.Join(root, "z.txt"),
	}
	assert.Equal(t, want, r.Manifest.Paths())
	assert.Equal(t, 4, r.FileCount)
	assert.Equal(t, 3, r.DirCount)
	assert.Empty(t, r.Skipped)
	assert.Equal(t, digest.SHA1, r.Manifest.Algorithm)
}

func TestScan_EntryFields(t *testing.T) {
	t.Parallel()

	root := buildTree(t, map[string]string{"sub/f.txt": "hello"})
	require.NoError(t, os.Chmod(filepath.Join(root, "sub", "f.txt"), 0o640))

	r := scan(t, root)
	require.Len(t, r.Manifest.Entries, 2)

	dir := r.Manifest.Entries[0]
	assert.Equal(t, "sub", dir.Name)
	assert.True(t, dir.IsDir())
	assert.Nil(t, dir.File)
	assert.Equal(t, "0o755", dir.Perm)

	file := r.Manifest.Entries[1]
	assert.Equal(t, "f.txt", file.Name)
	assert.Equal(t, types.KindFile, file.Kind)
	require.NotNil(t, file.File)
	assert.Equal(t, int64(5), file.File.Size)
	assert.Equal(t, "0o640", file.Perm)
	assert.Equal(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", file.File.Fingerprint)

	info, err := os.Stat(filepath.Join(root, "sub", "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, types.FormatModTime(info.ModTime()), file.File.ModTime)
	assert.NotEmpty(t, file.Owner)
	assert.NotEmpty(t, file.Group)
}

func TestScan_Deterministic(t *testing.T) {
	t.Parallel()

	root := buildTree(t, map[string]string{
		"one/two/three.bin": "3",
		"one/a.bin":         "a",
		"top.bin":           "t",
	})

	first := scan(t, root)
	second := scan(t, root)
	assert.True(t, first.Manifest.Equal(second.Manifest))
}

func TestScan_EmptyDirectory(t *testing.T) {
	t.Parallel()

	r := scan(t, t.TempDir())
	assert.Zero(t, r.Manifest.Len())
	assert.Zero(t, r.FileCount)
	assert.Zero(t, r.DirCount)
}

func TestScan_OnEntryStreamsInOrder(t *testing.T) {
	t.Parallel()

	root := buildTree(t, map[string]string{"d/f": "1", "g": "2"})

	var seen []string
	r, err := New(Options{
		Root:      root,
		Algorithm: digest.MD5,
		OnEntry:   func(e types.Entry) { seen = append(seen, e.Path) },
	}).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, r.Manifest.Paths(), seen)
}

func TestScan_RootErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	tests := []struct {
		name string
		root string
		want error
	}{
		{name: "missing", root: filepath.Join(dir, "nope"), want: siverr.ErrNotFound},
		{name: "file", root: file, want: siverr.ErrNotADirectory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(Options{Root: tt.root, Algorithm: digest.SHA1}).Scan(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestScan_UnsupportedAlgorithm(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Root: t.TempDir(), Algorithm: "crc32"}).Scan(context.Background())
	assert.ErrorIs(t, err, siverr.ErrUnsupportedAlgorithm)
}

func TestScan_SkipsSymlinks(t *testing.T) {
	t.Parallel()

	root := buildTree(t, map[string]string{"real/f": "data"})
	link := filepath.Join(root, "link")
	if err := os.Symlink(filepath.Join(root, "real"), link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	r := scan(t, root)
	assert.NotContains(t, r.Manifest.Paths(), link)
	assert.Equal(t, []types.SkippedEntry{{Path: link, Reason: ReasonSymlink}}, r.Skipped)
	assert.Equal(t, 1, r.FileCount)
}

func TestScan_UnreadableDirectoryAborts(t *testing.T) {
	t.Parallel()

	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := buildTree(t, map[string]string{"locked/f": "x"})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	r, err := New(Options{Root: root, Algorithm: digest.SHA1}).Scan(context.Background())
	assert.Nil(t, r)
	assert.ErrorIs(t, err, siverr.ErrIO)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestScan_Cancelled(t *testing.T) {
	t.Parallel()

	root := buildTree(t, map[string]string{"a/b": "1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{Root: root, Algorithm: digest.SHA1}).Scan(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPrincipals_FallbackToNumeric(t *testing.T) {
	t.Parallel()

	p := NewPrincipals(4)
	calls := 0
	p.lookupUser = func(uid string) (string, error) {
		calls++
		if uid == "1000" {
			return "alice", nil
		}
		return "", errors.New("unknown user")
	}
	p.lookupGroup = func(string) (string, error) { return "", errors.New("unknown group") }

	assert.Equal(t, "alice", p.User(1000))
	assert.Equal(t, "alice", p.User(1000))
	assert.Equal(t, 1, calls, "second lookup is served from cache")
	assert.Equal(t, "4242", p.User(4242))
	assert.Equal(t, "77", p.Group(77))
}

func TestScan_SkipsCarriageReturnNames(t *testing.T) {
	t.Parallel()

	root := buildTree(t, map[string]string{
		"x\ry":    "1",
		"c\r\nd":  "2",
		"dir\r/f": "3",
		"keep":    "4",
	})

	r := scan(t, root)

	assert.Equal(t, []string{filepath.Join(root, "keep")}, r.Manifest.Paths())
	assert.Equal(t, 1, r.FileCount)
	assert.Zero(t, r.DirCount)

	require.Len(t, r.Skipped, 3)
	for _, s := range r.Skipped {
		assert.Equal(t, ReasonUnrepresentable, s.Reason, s.Path)
	}
}

func TestValidateRoot_CarriageReturn(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "odd\rroot")
	require.NoError(t, os.Mkdir(root, 0o755))

	_, err := ValidateRoot(root)
	assert.ErrorIs(t, err, siverr.ErrValidation)
}

func TestScan_FileRemovedAfterListingAborts(t *testing.T) {
	t.Parallel()

	root := buildTree(t, map[string]string{
		"a/inner": "1",
		"z.txt":   "2",
	})
	victim := filepath.Join(root, "z.txt")

	// The root's files are listed before the walk enters a/.
	opts := Options{
		Root:      root,
		Algorithm: digest.SHA1,
		OnEntry: func(e types.Entry) {
			if e.Path == filepath.Join(root, "a") {
				require.NoError(t, os.Remove(victim))
			}
		},
	}

	r, err := New(opts).Scan(context.Background())
	assert.Nil(t, r)
	assert.ErrorIs(t, err, siverr.ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), victim)
}

func TestScan_Reusable(t *testing.T) {
	t.Parallel()

	root := buildTree(t, map[string]string{"a/b": "1", "c": "2"})
	s := New(Options{Root: root, Algorithm: digest.SHA1})

	first, err := s.Scan(context.Background())
	require.NoError(t, err)
	second, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, second.Manifest.Len())
	assert.Equal(t, 2, second.FileCount)
	assert.Equal(t, 1, second.DirCount)
	assert.True(t, first.Manifest.Equal(second.Manifest))
}
