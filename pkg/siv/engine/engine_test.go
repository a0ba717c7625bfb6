package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/siv/pkg/siv/digest"
	"github.com/jamesainslie/siv/pkg/siv/manifest"
	"github.com/jamesainslie/siv/pkg/siv/siverr"
)

type fixture struct {
	root     string
	manifest string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "tree")

	require.NoError(t, os.MkdirAll(filepath.Join(root, "etc", "conf.d"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "etc", "hosts"), []byte("127.0.0.1 localhost\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "etc", "conf.d", "app.conf"), []byte("debug=false\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("readme\n"), 0o644))

	return fixture{root: root, manifest: filepath.Join(base, "baseline.csv")}
}

func (f fixture) init(t *testing.T, alg digest.Algorithm) *InitResult {
	t.Helper()
	res, err := Initialize(context.Background(), InitOptions{
		Root:         f.root,
		ManifestPath: f.manifest,
		Algorithm:    alg,
	})
	require.NoError(t, err)
	return res
}

func (f fixture) verify(t *testing.T) *VerifyResult {
	t.Helper()
	res, err := Verify(context.Background(), VerifyOptions{Root: f.root, ManifestPath: f.manifest})
	require.NoError(t, err)
	return res
}

func TestInitialize(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.init(t, digest.SHA256)

	assert.Equal(t, ModeInit, res.Mode)
	assert.Equal(t, 3, res.FileCount)
	assert.Equal(t, 2, res.DirCount)
	assert.Equal(t, digest.SHA256, res.Algorithm)

	stored, err := manifest.ReadFile(f.manifest)
	require.NoError(t, err)
	assert.True(t, res.Manifest.Equal(stored))
}

func TestVerify_Unchanged(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.init(t, digest.SHA1)

	res := f.verify(t)
	assert.Equal(t, ModeVerify, res.Mode)
	assert.True(t, res.Diff.Empty())
	assert.Equal(t, digest.SHA1, res.Algorithm)
	assert.Equal(t, 3, res.FileCount)
}

func TestVerify_UsesBaselineAlgorithm(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.init(t, digest.BLAKE3)

	res := f.verify(t)
	assert.Equal(t, digest.BLAKE3, res.Current.Algorithm)
	assert.False(t, res.Diff.AlgorithmMismatch())
	assert.True(t, res.Diff.Empty())
}

func TestVerify_DetectsChanges(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.init(t, digest.MD5)

	hosts := filepath.Join(f.root, "etc", "hosts")
	require.NoError(t, os.WriteFile(hosts, []byte("10.0.0.66 intruders\n"), 0o644))
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(hosts, later, later))

	require.NoError(t, os.Remove(filepath.Join(f.root, "README")))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "backdoor.sh"), []byte("#!/bin/sh\n"), 0o755))

	res := f.verify(t)

	assert.Equal(t, []string{filepath.Join(f.root, "README")}, res.Diff.Deleted)
	assert.Equal(t, []string{filepath.Join(f.root, "backdoor.sh")}, res.Diff.Added)
	require.Len(t, res.Diff.Changed, 1)

	rec := res.Diff.Changed[0]
	assert.Equal(t, hosts, rec.Path)
	assert.NotNil(t, rec.Fingerprint)
	assert.NotNil(t, rec.ModTime)
	assert.Nil(t, rec.Size, "both contents are 20 bytes")
	assert.Equal(t, 3, res.Diff.Warnings())
}

func TestVerify_AlgorithmConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.init(t, digest.SHA1)

	_, err := Verify(context.Background(), VerifyOptions{
		Root:         f.root,
		ManifestPath: f.manifest,
		Algorithm:    digest.SHA256,
	})
	assert.ErrorIs(t, err, siverr.ErrConfigurationConflict)
}

func TestVerify_MissingBaseline(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := Verify(context.Background(), VerifyOptions{Root: f.root, ManifestPath: f.manifest})
	assert.ErrorIs(t, err, siverr.ErrNotFound)
}

func TestInitialize_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tests := []struct {
		name string
		opts InitOptions
		want error
	}{
		{
			name: "manifest inside tree",
			opts: InitOptions{Root: f.root, ManifestPath: filepath.Join(f.root, "m.csv"), Algorithm: digest.SHA1},
			want: siverr.ErrValidation,
		},
		{
			name: "missing root",
			opts: InitOptions{Root: filepath.Join(f.root, "absent"), ManifestPath: f.manifest, Algorithm: digest.SHA1},
			want: siverr.ErrNotFound,
		},
		{
			name: "unsupported algorithm",
			opts: InitOptions{Root: f.root, ManifestPath: f.manifest, Algorithm: "whirlpool"},
			want: siverr.ErrUnsupportedAlgorithm,
		},
		{
			name: "empty root",
			opts: InitOptions{ManifestPath: f.manifest, Algorithm: digest.SHA1},
			want: siverr.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := Initialize(context.Background(), tt.opts)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerify_CarriageReturnNamesStayUnchanged(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, name := range []string{"a\rb", "c\r\nd"} {
		require.NoError(t, os.WriteFile(filepath.Join(f.root, name), []byte("x"), 0o644))
	}

	initRes := f.init(t, digest.SHA1)
	assert.Len(t, initRes.Skipped, 2)
	assert.Equal(t, 3, initRes.FileCount)

	res := f.verify(t)
	assert.True(t, res.Diff.Empty(), "deleted=%q added=%q", res.Diff.Deleted, res.Diff.Added)
	assert.Len(t, res.Skipped, 2)
}
