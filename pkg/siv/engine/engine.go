// Package engine runs the two siv operations: recording a baseline
// manifest of a directory tree and verifying the tree against it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jamesainslie/siv/pkg/siv/diff"
	"github.com/jamesainslie/siv/pkg/siv/digest"
	"github.com/jamesainslie/siv/pkg/siv/logging"
	"github.com/jamesainslie/siv/pkg/siv/manifest"
	"github.com/jamesainslie/siv/pkg/siv/pathutil"
	"github.com/jamesainslie/siv/pkg/siv/scanner"
	"github.com/jamesainslie/siv/pkg/siv/siverr"
	"github.com/jamesainslie/siv/pkg/siv/types"
)

var logger = logging.Get("engine")

// Mode names an operation.
type Mode string

// Operations.
const (
	ModeInit   Mode = "init"
	ModeVerify Mode = "verify"
)

// InitOptions configures Initialize.
type InitOptions struct {
	Root         string
	ManifestPath string
	Algorithm    digest.Algorithm

	// OnEntry, if set, observes every scanned entry.
	OnEntry func(types.Entry)
}

// VerifyOptions configures Verify.
type VerifyOptions struct {
	Root         string
	ManifestPath string

	// Algorithm must be empty: the digest is fixed by the baseline.
	Algorithm digest.Algorithm

	OnEntry func(types.Entry)
}

// Summary describes a completed run.
type Summary struct {
	Mode         Mode
	Root         string
	ManifestPath string
	Algorithm    digest.Algorithm
	StartedAt    time.Time
	Elapsed      time.Duration
	FileCount    int
	DirCount     int
	Skipped      []types.SkippedEntry
}

// InitResult is the outcome of Initialize.
type InitResult struct {
	Summary
	Manifest *types.Manifest
}

// VerifyResult is the outcome of Verify.
type VerifyResult struct {
	Summary
	Baseline *types.Manifest
	Current  *types.Manifest
	Diff     *diff.Result
}

// Initialize scans the tree and writes its manifest to opts.ManifestPath.
func Initialize(ctx context.Context, opts InitOptions) (*InitResult, error) {
	start := time.Now()

	root, manifestPath, err := resolve(opts.Root, opts.ManifestPath)
	if err != nil {
		return nil, err
	}
	if _, err := opts.Algorithm.New(); err != nil {
		return nil, err
	}

	logger.Info("initialization started", "root", root, "manifest", manifestPath, "algorithm", opts.Algorithm)

	scan, err := scanner.New(scanner.Options{
		Root:      root,
		Algorithm: opts.Algorithm,
		OnEntry:   opts.OnEntry,
	}).Scan(ctx)
	if err != nil {
		logger.Error("scan failed", "root", root, "error", err)
		return nil, err
	}

	if err := manifest.WriteFile(manifestPath, scan.Manifest); err != nil {
		logger.Error("manifest write failed", "manifest", manifestPath, "error", err)
		return nil, err
	}

	res := &InitResult{
		Summary:  summarize(ModeInit, root, manifestPath, start, scan),
		Manifest: scan.Manifest,
	}
	logger.Info("initialization finished",
		"files", res.FileCount,
		"dirs", res.DirCount,
		"elapsed", res.Elapsed)
	return res, nil
}

// Verify scans the tree with the baseline's algorithm and diffs the result
// against the baseline at opts.ManifestPath.
func Verify(ctx context.Context, opts VerifyOptions) (*VerifyResult, error) {
	start := time.Now()

	if opts.Algorithm != "" {
		return nil, siverr.New(siverr.KindConfigurationConflict, "verify", "",
			fmt.Errorf("algorithm %q given, but the digest is fixed by the baseline manifest", opts.Algorithm))
	}

	root, manifestPath, err := resolve(opts.Root, opts.ManifestPath)
	if err != nil {
		return nil, err
	}

	baseline, err := manifest.ReadFile(manifestPath)
	if err != nil {
		logger.Error("baseline read failed", "manifest", manifestPath, "error", err)
		return nil, err
	}

	logger.Info("verification started", "root", root, "manifest", manifestPath, "algorithm", baseline.Algorithm)

	scan, err := scanner.New(scanner.Options{
		Root:      root,
		Algorithm: baseline.Algorithm,
		OnEntry:   opts.OnEntry,
	}).Scan(ctx)
	if err != nil {
		logger.Error("scan failed", "root", root, "error", err)
		return nil, err
	}

	result := diff.Compare(baseline, scan.Manifest)

	res := &VerifyResult{
		Summary:  summarize(ModeVerify, root, manifestPath, start, scan),
		Baseline: baseline,
		Current:  scan.Manifest,
		Diff:     result,
	}
	if result.Empty() {
		logger.Info("verification finished, no differences", "elapsed", res.Elapsed)
	} else {
		logger.Warn("verification finished with differences",
			"deleted", len(result.Deleted),
			"added", len(result.Added),
			"changed", len(result.Changed),
			"elapsed", res.Elapsed)
	}
	return res, nil
}

// resolve makes root and manifestPath absolute and rejects a manifest
// stored inside the tree it describes.
func resolve(root, manifestPath string) (string, string, error) {
	if root == "" {
		return "", "", siverr.New(siverr.KindValidation, "resolve", "", errors.New("monitored directory is required"))
	}
	if manifestPath == "" {
		return "", "", siverr.New(siverr.KindValidation, "resolve", "", errors.New("manifest path is required"))
	}

	absRoot, err := scanner.ValidateRoot(root)
	if err != nil {
		return "", "", err
	}
	absManifest, err := filepath.Abs(manifestPath)
	if err != nil {
		return "", "", siverr.New(siverr.KindIO, "resolve", manifestPath, err)
	}

	inside, err := pathutil.Contains(absRoot, absManifest)
	if err != nil {
		return "", "", siverr.New(siverr.KindIO, "resolve", manifestPath, err)
	}
	if inside {
		return "", "", siverr.New(siverr.KindValidation, "resolve", absManifest,
			fmt.Errorf("manifest must be outside the monitored directory %s", absRoot))
	}
	return absRoot, absManifest, nil
}

func summarize(mode Mode, root, manifestPath string, start time.Time, scan *types.ScanResult) Summary {
	return Summary{
		Mode:         mode,
		Root:         root,
		ManifestPath: manifestPath,
		Algorithm:    scan.Manifest.Algorithm,
		StartedAt:    start,
		Elapsed:      time.Since(start),
		FileCount:    scan.FileCount,
		DirCount:     scan.DirCount,
		Skipped:      scan.Skipped,
	}
}
