// Package report renders the outcome of an init or verify run in several
// formats (text, pretty, json, yaml).
//
// Formatters are kept in a registry so the CLI can select one by name:
//
//	formatter, err := report.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, rep); err != nil {
//	    return err
//	}
package report

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/siv/pkg/siv/diff"
	"github.com/jamesainslie/siv/pkg/siv/digest"
	"github.com/jamesainslie/siv/pkg/siv/engine"
	"github.com/jamesainslie/siv/pkg/siv/types"
)

// Report is the data every formatter renders.
type Report struct {
	// Mode is "init" or "verify".
	Mode engine.Mode

	// Root is the monitored directory.
	Root string

	// ManifestPath is the baseline manifest written or read.
	ManifestPath string

	// ReportPath is where the text report is stored.
	ReportPath string

	// Algorithm is the digest used for the run.
	Algorithm digest.Algorithm

	FileCount int
	DirCount  int
	Elapsed   time.Duration

	// Skipped lists objects the scanner ignored.
	Skipped []types.SkippedEntry

	// Diff is set for verify runs only.
	Diff *diff.Result
}

// FromInit builds the report of an init run.
func FromInit(res *engine.InitResult, reportPath string) *Report {
	return fromSummary(res.Summary, reportPath)
}

// FromVerify builds the report of a verify run.
func FromVerify(res *engine.VerifyResult, reportPath string) *Report {
	r := fromSummary(res.Summary, reportPath)
	r.Diff = res.Diff
	return r
}

func fromSummary(s engine.Summary, reportPath string) *Report {
	return &Report{
		Mode:         s.Mode,
		Root:         s.Root,
		ManifestPath: s.ManifestPath,
		ReportPath:   reportPath,
		Algorithm:    s.Algorithm,
		FileCount:    s.FileCount,
		DirCount:     s.DirCount,
		Elapsed:      s.Elapsed,
		Skipped:      s.Skipped,
	}
}

// Warnings is the number of differences found, zero for init runs.
func (r *Report) Warnings() int {
	if r.Diff == nil {
		return 0
	}
	return r.Diff.Warnings()
}

// Formatter renders a Report.
type Formatter interface {
	// Format writes the rendered report to the buffer.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty formatter registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds a formatter factory, replacing any with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown format %q (available: %v)", name, r.available())
	}
	return factory(), nil
}

// Available returns the sorted registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.available()
}

func (r *Registry) available() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in formatters.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns the formatter names in the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// seconds renders d as fractional seconds, e.g. "0.012345".
func seconds(d time.Duration) string {
	return fmt.Sprintf("%.6f", d.Seconds())
}
