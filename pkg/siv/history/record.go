package history

import (
	"time"

	"github.com/jamesainslie/siv/pkg/siv/engine"
)

// Record summarizes one init or verify run.
type Record struct {
	ID           string        `json:"id"`
	Mode         engine.Mode   `json:"mode"`
	Root         string        `json:"root"`
	ManifestPath string        `json:"manifest"`
	ReportPath   string        `json:"report,omitempty"`
	Algorithm    string        `json:"algorithm"`
	StartedAt    time.Time     `json:"started_at"`
	Elapsed      time.Duration `json:"elapsed"`
	FileCount    int           `json:"files"`
	DirCount     int           `json:"dirs"`
	Skipped      int           `json:"skipped"`
	Deleted      int           `json:"deleted"`
	Added        int           `json:"added"`
	Changed      int           `json:"changed"`
}

// Warnings is the number of differences the run reported.
func (r *Record) Warnings() int {
	return r.Deleted + r.Added + r.Changed
}

// FromInit records an init run.
func FromInit(res *engine.InitResult, reportPath string) *Record {
	return fromSummary(res.Summary, reportPath)
}

// FromVerify records a verify run.
func FromVerify(res *engine.VerifyResult, reportPath string) *Record {
	r := fromSummary(res.Summary, reportPath)
	if res.Diff != nil {
		r.Deleted = len(res.Diff.Deleted)
		r.Added = len(res.Diff.Added)
		r.Changed = len(res.Diff.Changed)
	}
	return r
}

func fromSummary(s engine.Summary, reportPath string) *Record {
	return &Record{
		Mode:         s.Mode,
		Root:         s.Root,
		ManifestPath: s.ManifestPath,
		ReportPath:   reportPath,
		Algorithm:    s.Algorithm.String(),
		StartedAt:    s.StartedAt,
		Elapsed:      s.Elapsed,
		FileCount:    s.FileCount,
		DirCount:     s.DirCount,
		Skipped:      len(s.Skipped),
	}
}
