// Package diff compares a baseline manifest with a fresh one and reports
// which paths were deleted, which were added and which attributes changed
// on the paths present in both.
package diff

import (
	"github.com/jamesainslie/siv/pkg/siv/digest"
	"github.com/jamesainslie/siv/pkg/siv/types"
)

// Result is the outcome of a comparison.
type Result struct {
	// Deleted lists baseline paths missing from the current tree,
	// in baseline order.
	Deleted []string `json:"deleted" yaml:"deleted"`

	// Added lists current paths missing from the baseline, in current order.
	Added []string `json:"added" yaml:"added"`

	// Changed lists the paths present in both with at least one
	// differing attribute, in baseline order.
	Changed []types.ChangeRecord `json:"changed" yaml:"changed"`

	// BaselineAlgorithm and CurrentAlgorithm identify the digests each
	// manifest was produced with.
	BaselineAlgorithm digest.Algorithm `json:"baseline_algorithm" yaml:"baseline_algorithm"`
	CurrentAlgorithm  digest.Algorithm `json:"current_algorithm" yaml:"current_algorithm"`
}

// AlgorithmMismatch reports whether the manifests used different digests,
// in which case every fingerprint comparison is meaningless.
func (r *Result) AlgorithmMismatch() bool {
	return r.BaselineAlgorithm != r.CurrentAlgorithm
}

// Empty reports whether the trees are identical.
func (r *Result) Empty() bool {
	return r.Warnings() == 0
}

// Warnings is the number of reported differences.
func (r *Result) Warnings() int {
	return len(r.Deleted) + len(r.Added) + len(r.Changed)
}

// Compare diffs baseline against current. Attribute comparison is exact
// equality of the persisted text forms.
func Compare(baseline, current *types.Manifest) *Result {
	r := &Result{
		Deleted:           []string{},
		Added:             []string{},
		Changed:           []types.ChangeRecord{},
		BaselineAlgorithm: baseline.Algorithm,
		CurrentAlgorithm:  current.Algorithm,
	}

	baseIdx := baseline.Index()
	curIdx := current.Index()

	var before []types.Entry
	for _, e := range baseline.Entries {
		if _, ok := curIdx[e.Path]; !ok {
			r.Deleted = append(r.Deleted, e.Path)
			continue
		}
		before = append(before, e)
	}

	var after []types.Entry
	for _, e := range current.Entries {
		if _, ok := baseIdx[e.Path]; !ok {
			r.Added = append(r.Added, e.Path)
			continue
		}
		after = append(after, e)
	}

	// before and after hold the same path set. Canonical order keeps them
	// aligned except where an entry moved between the directory and file
	// groups by changing kind; those pairs fall back to the index.
	for i, b := range before {
		var a types.Entry
		if i < len(after) && after[i].Path == b.Path {
			a = after[i]
		} else {
			a = current.Entries[curIdx[b.Path]]
		}
		if rec, changed := compareEntries(b, a); changed {
			r.Changed = append(r.Changed, rec)
		}
	}

	return r
}

func compareEntries(b, a types.Entry) (types.ChangeRecord, bool) {
	rec := types.ChangeRecord{Path: b.Path}
	rec.Size = change(b.SizeText(), a.SizeText())
	rec.Owner = change(b.Owner, a.Owner)
	rec.Group = change(b.Group, a.Group)
	rec.Perm = change(b.Perm, a.Perm)
	rec.ModTime = change(b.ModTimeText(), a.ModTimeText())
	rec.Fingerprint = change(b.FingerprintText(), a.FingerprintText())
	return rec, !rec.Empty()
}

func change(before, after string) *types.Change {
	if before == after {
		return nil
	}
	return &types.Change{Before: before, After: after}
}
