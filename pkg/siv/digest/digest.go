// Package digest computes hex content fingerprints of files.
//
// The algorithm is always passed explicitly; the package keeps no notion of
// a current algorithm, so one process can hash under one algorithm and then
// verify against a baseline recorded under another.
package digest

import (
	"crypto/md5"  //nolint:gosec // md5 is a supported fingerprint, not a security boundary
	"crypto/sha1" //nolint:gosec // sha1 is a supported fingerprint, not a security boundary
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/jamesainslie/siv/pkg/siv/siverr"
	"github.com/zeebo/blake3"
)

// ChunkSize is the number of bytes read from a file per hashing step.
const ChunkSize = 4096

// Algorithm identifies a digest algorithm.
type Algorithm string

// Supported algorithms.
const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

var constructors = map[Algorithm]func() hash.Hash{
	MD5:    md5.New,
	SHA1:   sha1.New,
	SHA256: sha256.New,
	BLAKE3: func() hash.Hash { return blake3.New() },
}

// Supported returns the supported algorithms in a stable order.
func Supported() []Algorithm {
	return []Algorithm{MD5, SHA1, SHA256, BLAKE3}
}

// ParseAlgorithm resolves a case-insensitive algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	alg := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := constructors[alg]; !ok {
		return "", siverr.New(siverr.KindUnsupportedAlgorithm, "parse algorithm", "",
			fmt.Errorf("%q is not one of %v", s, Supported()))
	}
	return alg, nil
}

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	_, ok := constructors[a]
	return ok
}

// String returns the algorithm identifier.
func (a Algorithm) String() string {
	return string(a)
}

// New returns a fresh hash state for a.
func (a Algorithm) New() (hash.Hash, error) {
	ctor, ok := constructors[a]
	if !ok {
		return nil, siverr.New(siverr.KindUnsupportedAlgorithm, "digest", "",
			fmt.Errorf("%q is not one of %v", string(a), Supported()))
	}
	return ctor(), nil
}

// File streams the file at path through alg and returns the hex digest.
// Open and read failures are reported as siverr.KindIO with the path.
func File(path string, alg Algorithm) (string, error) {
	h, err := alg.New()
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", siverr.New(siverr.KindIO, "open", path, err)
	}
	defer f.Close()

	adviseSequential(f)

	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(h, onlyReader{f}, buf); err != nil {
		return "", siverr.New(siverr.KindIO, "hash", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Reader streams r through alg and returns the hex digest.
func Reader(r io.Reader, alg Algorithm) (string, error) {
	h, err := alg.New()
	if err != nil {
		return "", err
	}

	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(h, onlyReader{r}, buf); err != nil {
		return "", siverr.New(siverr.KindIO, "hash", "", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// onlyReader hides WriterTo/ReaderFrom so CopyBuffer reads in ChunkSize steps.
type onlyReader struct {
	io.Reader
}
