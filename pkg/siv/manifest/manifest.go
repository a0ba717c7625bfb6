// Package manifest encodes and decodes manifests as CSV files.
//
// A manifest file is an RFC 4180 CSV document. The first row is a header
// whose seventh label names the digest algorithm, e.g. "Hash (sha1)";
// every following row describes one file or directory:
//
//	name, size, owner, group, permissions, modified, fingerprint, path
//
// Directory rows leave size, modified and fingerprint empty.
package manifest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jamesainslie/siv/pkg/siv/digest"
	"github.com/jamesainslie/siv/pkg/siv/siverr"
	"github.com/jamesainslie/siv/pkg/siv/types"
)

// Columns is the number of columns in every manifest row.
const Columns = 8

// Column positions.
const (
	colName = iota
	colSize
	colOwner
	colGroup
	colPerm
	colModTime
	colFingerprint
	colPath
)

// Header returns the header row for a manifest fingerprinted with alg.
func Header(alg digest.Algorithm) []string {
	return []string{
		"Name",
		"Size (B)",
		"Owner",
		"Group",
		"Permission levels",
		"Last modification date time",
		"Hash (" + alg.String() + ")",
		"Path",
	}
}

// Write encodes m to w.
func Write(w io.Writer, m *types.Manifest) error {
	return encode(w, m, "")
}

// Read decodes a manifest from r.
func Read(r io.Reader) (*types.Manifest, error) {
	return decode(r, "")
}

// WriteFile writes m to path. The file is written to a temporary sibling
// and renamed into place, so a failed write never leaves a truncated
// manifest behind. The parent directory must exist.
func WriteFile(path string, m *types.Manifest) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, base+".*.tmp")
	if err != nil {
		return siverr.New(siverr.KindIO, "write manifest", path, err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	bw := bufio.NewWriter(tmp)
	if err := encode(bw, m, path); err != nil {
		cleanup()
		return err
	}
	if err := bw.Flush(); err != nil {
		cleanup()
		return siverr.New(siverr.KindIO, "write manifest", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		cleanup()
		return siverr.New(siverr.KindIO, "write manifest", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return siverr.New(siverr.KindIO, "write manifest", path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return siverr.New(siverr.KindIO, "write manifest", path, err)
	}
	return nil
}

// ReadFile reads the manifest stored at path.
func ReadFile(path string) (*types.Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, siverr.New(siverr.KindNotFound, "read manifest", path, err)
		}
		return nil, siverr.New(siverr.KindIO, "read manifest", path, err)
	}
	defer f.Close()

	return decode(bufio.NewReader(f), path)
}

func encode(w io.Writer, m *types.Manifest, name string) error {
	if !m.Algorithm.Valid() {
		return siverr.New(siverr.KindUnsupportedAlgorithm, "write manifest", name,
			fmt.Errorf("%q is not one of %v", m.Algorithm, digest.Supported()))
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(Header(m.Algorithm)); err != nil {
		return siverr.New(siverr.KindIO, "write manifest", name, err)
	}

	row := make([]string, Columns)
	for _, e := range m.Entries {
		row[colName] = e.Name
		row[colSize] = e.SizeText()
		row[colOwner] = e.Owner
		row[colGroup] = e.Group
		row[colPerm] = e.Perm
		row[colModTime] = e.ModTimeText()
		row[colFingerprint] = e.FingerprintText()
		row[colPath] = e.Path
		if err := representable(row); err != nil {
			return siverr.New(siverr.KindValidation, "write manifest", name,
				fmt.Errorf("entry %q: %w", e.Path, err))
		}
		if err := cw.Write(row); err != nil {
			return siverr.New(siverr.KindIO, "write manifest", name, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return siverr.New(siverr.KindIO, "write manifest", name, err)
	}
	return nil
}

// representable rejects fields holding a carriage return, which
// encoding/csv does not read back unchanged.
func representable(row []string) error {
	for _, field := range row {
		if strings.ContainsRune(field, '\r') {
			return errors.New("carriage return cannot be stored in a manifest")
		}
	}
	return nil
}

func decode(r io.Reader, name string) (*types.Manifest, error) {
	const op = "read manifest"

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, siverr.AtLine(siverr.KindMalformedHeader, op, name, 1, errors.New("empty manifest"))
		}
		return nil, readError(op, name, err)
	}

	alg, err := parseHeader(header, op, name)
	if err != nil {
		return nil, err
	}

	m := &types.Manifest{Algorithm: alg}
	seen := make(map[string]int)

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(op, name, err)
		}

		line, _ := cr.FieldPos(0)
		entry, err := parseRow(record)
		if err != nil {
			return nil, siverr.AtLine(siverr.KindParse, op, name, line, err)
		}

		if first, dup := seen[entry.Path]; dup {
			return nil, siverr.AtLine(siverr.KindParse, op, name, line,
				fmt.Errorf("duplicate path %q (first seen on line %d)", entry.Path, first))
		}
		seen[entry.Path] = line

		m.Entries = append(m.Entries, entry)
	}

	return m, nil
}

// parseHeader extracts the digest algorithm from the header row.
func parseHeader(header []string, op, name string) (digest.Algorithm, error) {
	if len(header) != Columns {
		return "", siverr.AtLine(siverr.KindMalformedHeader, op, name, 1,
			fmt.Errorf("expected %d columns, got %d", Columns, len(header)))
	}

	label := strings.TrimSpace(header[colFingerprint])
	open := strings.IndexByte(label, '(')
	closing := strings.LastIndexByte(label, ')')
	if open < 0 || closing < open {
		return "", siverr.AtLine(siverr.KindMalformedHeader, op, name, 1,
			fmt.Errorf("hash column %q does not name an algorithm", label))
	}

	id := strings.TrimSpace(label[open+1 : closing])
	if id == "" {
		return "", siverr.AtLine(siverr.KindMalformedHeader, op, name, 1,
			fmt.Errorf("hash column %q does not name an algorithm", label))
	}

	alg, err := digest.ParseAlgorithm(id)
	if err != nil {
		return "", siverr.AtLine(siverr.KindUnsupportedAlgorithm, op, name, 1,
			fmt.Errorf("%q is not one of %v", id, digest.Supported()))
	}
	return alg, nil
}

// parseRow converts one data row to an entry.
func parseRow(record []string) (types.Entry, error) {
	if len(record) != Columns {
		return types.Entry{}, fmt.Errorf("expected %d columns, got %d", Columns, len(record))
	}

	path := record[colPath]
	if path == "" {
		return types.Entry{}, errors.New("empty path")
	}

	size, mtime, fingerprint := record[colSize], record[colModTime], record[colFingerprint]
	empty := 0
	for _, v := range []string{size, mtime, fingerprint} {
		if v == "" {
			empty++
		}
	}

	switch empty {
	case 3:
		return types.NewDirectory(record[colName], path,
			record[colOwner], record[colGroup], record[colPerm]), nil
	case 0:
		n, err := strconv.ParseInt(size, 10, 64)
		if err != nil || n < 0 {
			return types.Entry{}, fmt.Errorf("invalid size %q", size)
		}
		return types.NewFile(record[colName], path,
			record[colOwner], record[colGroup], record[colPerm], types.FileAttrs{
				Size:        n,
				ModTime:     mtime,
				Fingerprint: fingerprint,
			}), nil
	default:
		return types.Entry{}, errors.New("file columns must be all set or all empty")
	}
}

func readError(op, name string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return siverr.AtLine(siverr.KindParse, op, name, pe.StartLine, pe.Err)
	}
	return siverr.New(siverr.KindIO, op, name, err)
}
