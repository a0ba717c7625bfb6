// Package scanner walks a directory tree and produces its manifest in
// canonical order: at every level subdirectories first, each followed by
// its whole subtree, then files, both groups sorted by name.
//
// The walk is sequential and driven by an explicit stack, so output order
// never depends on scheduling and deep trees do not grow the call stack.
package scanner

import (
	"github.com/jamesainslie/siv/pkg/siv/digest"
	"github.com/jamesainslie/siv/pkg/siv/types"
)

// Options configures a scan.
type Options struct {
	// Root is the directory to scan. It is made absolute and cleaned.
	Root string

	// Algorithm fingerprints every file in the tree.
	Algorithm digest.Algorithm

	// OnEntry, if set, is called with each entry as it is produced,
	// in manifest order.
	OnEntry func(types.Entry)

	// Principals resolves owner and group ids. Nil uses a private cache.
	Principals *Principals
}

// Validate checks that the options can drive a scan.
func (o *Options) Validate() error {
	if _, err := o.Algorithm.New(); err != nil {
		return err
	}
	return nil
}
