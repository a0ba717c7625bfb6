package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jamesainslie/siv/pkg/siv/digest"
	"github.com/jamesainslie/siv/pkg/siv/logging"
	"github.com/jamesainslie/siv/pkg/siv/siverr"
	"github.com/jamesainslie/siv/pkg/siv/types"
)

var logger = logging.Get("scanner")

// Skip reasons recorded for objects outside the data model.
const (
	ReasonSymlink   = "symlink"
	ReasonSocket    = "socket"
	ReasonNamedPipe = "named pipe"
	ReasonDevice    = "device"
	ReasonIrregular = "irregular file"

	// ReasonUnrepresentable marks names holding a carriage return, which the
	// manifest CSV cannot carry through a write and read unchanged.
	ReasonUnrepresentable = "carriage return in name"
)

// Scanner produces the manifest of a directory tree.
type Scanner struct {
	opts       Options
	principals *Principals
}

// walk holds the state of a single Scan.
type walk struct {
	*Scanner

	entries   []types.Entry
	skipped   []types.SkippedEntry
	fileCount int
	dirCount  int
}

// frame is one directory on the walk stack. Subdirectories are entered one
// at a time; files are emitted once every subdirectory subtree is done.
type frame struct {
	dir   string
	dirs  []string
	files []string
	next  int
}

// New creates a Scanner with the given options.
func New(opts Options) *Scanner {
	p := opts.Principals
	if p == nil {
		p = NewPrincipals(DefaultPrincipalCacheSize)
	}
	return &Scanner{opts: opts, principals: p}
}

// Scan walks the tree and returns its manifest. Any failure to list, stat
// or read an object aborts the scan; no partial result is returned.
// Cancellation of ctx is observed between entries.
func (s *Scanner) Scan(ctx context.Context) (*types.ScanResult, error) {
	start := time.Now()

	if err := s.opts.Validate(); err != nil {
		return nil, err
	}

	root, err := ValidateRoot(s.opts.Root)
	if err != nil {
		return nil, err
	}

	logger.Info("scan started", "root", root, "algorithm", s.opts.Algorithm)

	w := &walk{Scanner: s}
	top, err := w.list(root)
	if err != nil {
		return nil, err
	}
	stack := []*frame{top}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}

		f := stack[len(stack)-1]
		if f.next < len(f.dirs) {
			name := f.dirs[f.next]
			f.next++

			path := filepath.Join(f.dir, name)
			entry, err := s.directoryEntry(name, path)
			if err != nil {
				return nil, err
			}
			w.emit(entry)
			w.dirCount++

			child, err := w.list(path)
			if err != nil {
				return nil, err
			}
			stack = append(stack, child)
			continue
		}

		for _, name := range f.files {
			entry, err := s.fileEntry(name, filepath.Join(f.dir, name))
			if err != nil {
				return nil, err
			}
			w.emit(entry)
			w.fileCount++
		}
		stack = stack[:len(stack)-1]
	}

	elapsed := time.Since(start)
	logger.Info("scan finished",
		"root", root,
		"files", w.fileCount,
		"dirs", w.dirCount,
		"skipped", len(w.skipped),
		"elapsed", elapsed)

	return &types.ScanResult{
		Manifest: &types.Manifest{
			Algorithm: s.opts.Algorithm,
			Entries:   w.entries,
		},
		FileCount: w.fileCount,
		DirCount:  w.dirCount,
		Skipped:   w.skipped,
		Elapsed:   elapsed,
	}, nil
}

// ValidateRoot resolves root to a clean absolute path and checks that it
// is an existing directory whose path the manifest can record.
func ValidateRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", siverr.New(siverr.KindIO, "resolve", root, err)
	}
	if strings.ContainsRune(abs, '\r') {
		return "", siverr.New(siverr.KindValidation, "scan", strconv.Quote(abs),
			errors.New("root path contains a carriage return"))
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", siverr.New(siverr.KindNotFound, "scan", abs, nil)
		}
		return "", siverr.New(siverr.KindIO, "stat", abs, err)
	}
	if !info.IsDir() {
		return "", siverr.New(siverr.KindNotADirectory, "scan", abs, nil)
	}
	return abs, nil
}

// list reads a directory and partitions its children. Objects that are
// neither directories nor regular files are recorded as skipped.
func (w *walk) list(dir string) (*frame, error) {
	children, err := os.ReadDir(dir)
	if err != nil {
		return nil, siverr.New(siverr.KindIO, "list", dir, err)
	}

	f := &frame{dir: dir}
	for _, child := range children {
		mode := child.Type()
		switch {
		case strings.ContainsRune(child.Name(), '\r'):
			w.skip(filepath.Join(dir, child.Name()), ReasonUnrepresentable)
		case mode.IsDir():
			f.dirs = append(f.dirs, child.Name())
		case mode.IsRegular():
			f.files = append(f.files, child.Name())
		default:
			w.skip(filepath.Join(dir, child.Name()), skipReason(mode))
		}
	}

	sort.Strings(f.dirs)
	sort.Strings(f.files)

	logger.Debug("listed directory", "dir", dir, "dirs", len(f.dirs), "files", len(f.files))
	return f, nil
}

func (s *Scanner) directoryEntry(name, path string) (types.Entry, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return types.Entry{}, siverr.New(siverr.KindIO, "stat", path, err)
	}
	if !info.IsDir() {
		return types.Entry{}, siverr.New(siverr.KindIO, "stat", path,
			fmt.Errorf("changed from directory to %s during scan", describe(info.Mode())))
	}

	owner, group := s.principals.Owner(info)
	return types.NewDirectory(name, path, owner, group, types.FormatPerm(info.Mode())), nil
}

func (s *Scanner) fileEntry(name, path string) (types.Entry, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return types.Entry{}, siverr.New(siverr.KindIO, "stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return types.Entry{}, siverr.New(siverr.KindIO, "stat", path,
			fmt.Errorf("changed from file to %s during scan", describe(info.Mode())))
	}

	fingerprint, err := digest.File(path, s.opts.Algorithm)
	if err != nil {
		return types.Entry{}, err
	}

	owner, group := s.principals.Owner(info)
	return types.NewFile(name, path, owner, group, types.FormatPerm(info.Mode()), types.FileAttrs{
		Size:        info.Size(),
		ModTime:     types.FormatModTime(info.ModTime()),
		Fingerprint: fingerprint,
	}), nil
}

func (w *walk) emit(e types.Entry) {
	w.entries = append(w.entries, e)
	if w.opts.OnEntry != nil {
		w.opts.OnEntry(e)
	}
}

func (w *walk) skip(path, reason string) {
	logger.Warn("skipping entry", "path", path, "reason", reason)
	w.skipped = append(w.skipped, types.SkippedEntry{Path: path, Reason: reason})
}

// skipReason names an object type the manifest does not model.
func skipReason(mode fs.FileMode) string {
	switch {
	case mode&fs.ModeSymlink != 0:
		return ReasonSymlink
	case mode&fs.ModeSocket != 0:
		return ReasonSocket
	case mode&fs.ModeNamedPipe != 0:
		return ReasonNamedPipe
	case mode&fs.ModeDevice != 0, mode&fs.ModeCharDevice != 0:
		return ReasonDevice
	default:
		return ReasonIrregular
	}
}

func describe(mode fs.FileMode) string {
	switch {
	case mode.IsDir():
		return "directory"
	case mode.IsRegular():
		return "file"
	default:
		return skipReason(mode)
	}
}
