// Package siverr defines the error kinds surfaced by the integrity verifier.
//
// Every failure produced by the scanner, digest engine, manifest codec and
// run engine carries a Kind so that callers can print a specific
// diagnostic instead of a generic failure:
//
//	if errors.Is(err, siverr.ErrMalformedHeader) {
//	    // the baseline file is not a manifest
//	}
package siverr

import (
	"errors"
	"strconv"
	"strings"
)

// Kind classifies an error.
type Kind string

// Error kinds.
const (
	KindNotFound              Kind = "not_found"
	KindNotADirectory         Kind = "not_a_directory"
	KindIO                    Kind = "io"
	KindParse                 Kind = "parse"
	KindMalformedHeader       Kind = "malformed_header"
	KindUnsupportedAlgorithm  Kind = "unsupported_algorithm"
	KindConfigurationConflict Kind = "configuration_conflict"
	KindValidation            Kind = "validation"
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrNotFound              = errors.New("not found")
	ErrNotADirectory         = errors.New("not a directory")
	ErrIO                    = errors.New("i/o failure")
	ErrParse                 = errors.New("malformed manifest row")
	ErrMalformedHeader       = errors.New("malformed manifest header")
	ErrUnsupportedAlgorithm  = errors.New("unsupported digest algorithm")
	ErrConfigurationConflict = errors.New("configuration conflict")
	ErrValidation            = errors.New("invalid argument")
)

var sentinels = map[Kind]error{
	KindNotFound:              ErrNotFound,
	KindNotADirectory:         ErrNotADirectory,
	KindIO:                    ErrIO,
	KindParse:                 ErrParse,
	KindMalformedHeader:       ErrMalformedHeader,
	KindUnsupportedAlgorithm:  ErrUnsupportedAlgorithm,
	KindConfigurationConflict: ErrConfigurationConflict,
	KindValidation:            ErrValidation,
}

// Error is a kind-tagged error with the context needed to report it.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Op is the operation that failed (e.g. "scan", "read manifest").
	Op string

	// Path is the offending file or directory, if any.
	Path string

	// Line is the 1-based manifest line, if any.
	Line int

	// Err is the underlying cause. May be nil.
	Err error
}

// New creates an Error of the given kind.
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// AtLine creates an Error pointing at a manifest line.
func AtLine(kind Kind, op, path string, line int, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Line: line, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.Path)
	}
	if e.Line > 0 {
		b.WriteString(": line ")
		b.WriteString(strconv.Itoa(e.Line))
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else if s, ok := sentinels[e.Kind]; ok {
		b.WriteString(s.Error())
	} else {
		b.WriteString(string(e.Kind))
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the kind of the first *Error in err's chain,
// or the empty Kind if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
