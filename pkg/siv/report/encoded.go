package report

import (
	"time"

	"github.com/jamesainslie/siv/pkg/siv/diff"
	"github.com/jamesainslie/siv/pkg/siv/types"
)

// document is the structure shared by the json and yaml formatters.
type document struct {
	Mode      string               `json:"mode" yaml:"mode"`
	Root      string               `json:"root" yaml:"root"`
	Manifest  string               `json:"manifest" yaml:"manifest"`
	Report    string               `json:"report,omitempty" yaml:"report,omitempty"`
	Algorithm string               `json:"algorithm" yaml:"algorithm"`
	Stats     documentStats        `json:"stats" yaml:"stats"`
	Skipped   []types.SkippedEntry `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Diff      *diff.Result         `json:"diff,omitempty" yaml:"diff,omitempty"`
}

type documentStats struct {
	Files    int     `json:"files" yaml:"files"`
	Dirs     int     `json:"dirs" yaml:"dirs"`
	Warnings int     `json:"warnings" yaml:"warnings"`
	Elapsed  string  `json:"elapsed" yaml:"elapsed"`
	Seconds  float64 `json:"elapsed_seconds" yaml:"elapsed_seconds"`
}

func buildDocument(r *Report) document {
	return document{
		Mode:      string(r.Mode),
		Root:      r.Root,
		Manifest:  r.ManifestPath,
		Report:    r.ReportPath,
		Algorithm: r.Algorithm.String(),
		Stats: documentStats{
			Files:    r.FileCount,
			Dirs:     r.DirCount,
			Warnings: r.Warnings(),
			Elapsed:  r.Elapsed.Round(time.Microsecond).String(),
			Seconds:  r.Elapsed.Seconds(),
		},
		Skipped: r.Skipped,
		Diff:    r.Diff,
	}
}
