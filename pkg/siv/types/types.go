// Package types provides the core data model of the integrity verifier:
// manifest entries, manifests, scan results and change records, along with
// the normalized text forms every comparison is made on.
package types

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/siv/pkg/siv/digest"
	"github.com/jamesainslie/siv/pkg/siv/siverr"
)

// ModTimeLayout is the persisted layout of modification times.
const ModTimeLayout = "02/01/2006 15:04:05"

// ZoneLabel is the fixed UTC offset label appended to modification times.
const ZoneLabel = "GMT+1"

// manifestZone pins modification times to UTC+01:00 regardless of host zone.
var manifestZone = time.FixedZone(ZoneLabel, 60*60)

// FormatModTime renders t in the persisted modification-time format,
// e.g. "15/06/2024 10:30:00 GMT+1".
func FormatModTime(t time.Time) string {
	return t.In(manifestZone).Format(ModTimeLayout) + " " + ZoneLabel
}

// FormatPerm renders the permission bits of mode in "0o755" form.
func FormatPerm(mode fs.FileMode) string {
	return "0o" + strconv.FormatUint(uint64(mode.Perm()), 8)
}

// FormatSize converts a size in bytes to a human-readable string
// using binary (IEC) units.
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}

// Kind is the type of filesystem object an entry describes.
type Kind int

// Entry kinds.
const (
	KindFile Kind = iota
	KindDirectory
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// FileAttrs holds the fields only files carry.
type FileAttrs struct {
	// Size is the file size in bytes.
	Size int64

	// ModTime is the modification time in FormatModTime form.
	ModTime string

	// Fingerprint is the hex digest of the file content.
	Fingerprint string
}

// Entry is one manifest row: a file or a directory.
// Directories have a nil File.
type Entry struct {
	// Name is the base name of the object.
	Name string

	// Path is the full path of the object and the entry's key.
	Path string

	// Kind is file or directory.
	Kind Kind

	// Owner is the resolved name of the owning user.
	Owner string

	// Group is the resolved name of the owning group.
	Group string

	// Perm is the permission bits in FormatPerm form.
	Perm string

	// File is set for files only.
	File *FileAttrs
}

// NewDirectory builds a directory entry.
func NewDirectory(name, path, owner, group, perm string) Entry {
	return Entry{
		Name:  name,
		Path:  path,
		Kind:  KindDirectory,
		Owner: owner,
		Group: group,
		Perm:  perm,
	}
}

// NewFile builds a file entry.
func NewFile(name, path, owner, group, perm string, attrs FileAttrs) Entry {
	return Entry{
		Name:  name,
		Path:  path,
		Kind:  KindFile,
		Owner: owner,
		Group: group,
		Perm:  perm,
		File:  &attrs,
	}
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Kind == KindDirectory
}

// SizeText returns the size column text, empty for directories.
func (e Entry) SizeText() string {
	if e.File == nil {
		return ""
	}
	return strconv.FormatInt(e.File.Size, 10)
}

// ModTimeText returns the modification time column text, empty for directories.
func (e Entry) ModTimeText() string {
	if e.File == nil {
		return ""
	}
	return e.File.ModTime
}

// FingerprintText returns the fingerprint column text, empty for directories.
func (e Entry) FingerprintText() string {
	if e.File == nil {
		return ""
	}
	return e.File.Fingerprint
}

// Equal reports whether two entries are identical in every field.
func (e Entry) Equal(o Entry) bool {
	if e.Name != o.Name || e.Path != o.Path || e.Kind != o.Kind ||
		e.Owner != o.Owner || e.Group != o.Group || e.Perm != o.Perm {
		return false
	}
	if (e.File == nil) != (o.File == nil) {
		return false
	}
	return e.File == nil || *e.File == *o.File
}

// Manifest is an ordered snapshot of a tree, tagged with the algorithm
// that produced every fingerprint in it.
type Manifest struct {
	// Algorithm produced every fingerprint in Entries.
	Algorithm digest.Algorithm

	// Entries are in canonical scan order.
	Entries []Entry
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	return len(m.Entries)
}

// Paths returns the entry paths in manifest order.
func (m *Manifest) Paths() []string {
	paths := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		paths[i] = e.Path
	}
	return paths
}

// Index maps each path to its position in Entries.
func (m *Manifest) Index() map[string]int {
	idx := make(map[string]int, len(m.Entries))
	for i, e := range m.Entries {
		idx[e.Path] = i
	}
	return idx
}

// Validate checks the manifest invariants: a supported algorithm and
// unique paths.
func (m *Manifest) Validate() error {
	if !m.Algorithm.Valid() {
		return siverr.New(siverr.KindUnsupportedAlgorithm, "validate manifest", "",
			fmt.Errorf("%q is not one of %v", m.Algorithm, digest.Supported()))
	}
	seen := make(map[string]struct{}, len(m.Entries))
	for _, e := range m.Entries {
		if _, dup := seen[e.Path]; dup {
			return siverr.New(siverr.KindParse, "validate manifest", e.Path,
				errors.New("duplicate path"))
		}
		seen[e.Path] = struct{}{}
	}
	return nil
}

// Equal reports whether two manifests have the same algorithm and
// identical entries in the same order.
func (m *Manifest) Equal(o *Manifest) bool {
	if m.Algorithm != o.Algorithm || len(m.Entries) != len(o.Entries) {
		return false
	}
	for i := range m.Entries {
		if !m.Entries[i].Equal(o.Entries[i]) {
			return false
		}
	}
	return true
}

// SkippedEntry is a filesystem object the data model does not describe.
type SkippedEntry struct {
	// Path is the skipped object's path.
	Path string `json:"path" yaml:"path"`

	// Reason names the object type, e.g. "symlink".
	Reason string `json:"reason" yaml:"reason"`
}

// ScanResult is the output of a tree scan.
type ScanResult struct {
	// Manifest holds the scanned entries in canonical order.
	Manifest *Manifest

	// FileCount is the number of file entries.
	FileCount int

	// DirCount is the number of directory entries.
	DirCount int

	// Skipped lists objects left out of the manifest.
	Skipped []SkippedEntry

	// Elapsed is the wall-clock duration of the scan.
	Elapsed time.Duration
}
