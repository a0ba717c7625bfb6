package report

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/valyala/fasttemplate"

	"github.com/jamesainslie/siv/pkg/siv/engine"
	"github.com/jamesainslie/siv/pkg/siv/siverr"
)

const initTemplate = `The full path of the monitored directory is {{root}}
The full path of the verification file is {{manifest}}
The full path of this report file is {{report}}
The hash function used is {{algorithm}}
Overall, {{dirs}} directories containing a total of {{files}} files have been scanned
The total time spent in initialization mode is {{elapsed}} (seconds)
`

const verifyTemplate = `The full path of the monitored directory is {{root}}
The full path of the verification file is {{manifest}}
The full path of this report file is {{report}}
The hash function used is {{algorithm}}
Overall, {{dirs}} directories containing a total of {{files}} files have been scanned
Overall, {{warnings}} warnings have been issued
The total time spent in verification mode is {{elapsed}} (seconds)
`

var (
	initTpl   = fasttemplate.New(initTemplate, "{{", "}}")
	verifyTpl = fasttemplate.New(verifyTemplate, "{{", "}}")
)

// TextFormatter renders the plain report stored in the report file.
type TextFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TextFormatter) Format(w *bytes.Buffer, r *Report) error {
	tpl := initTpl
	if r.Mode == engine.ModeVerify {
		tpl = verifyTpl
	}

	values := map[string]interface{}{
		"root":      r.Root,
		"manifest":  r.ManifestPath,
		"report":    r.ReportPath,
		"algorithm": r.Algorithm.String(),
		"dirs":      strconv.Itoa(r.DirCount),
		"files":     strconv.Itoa(r.FileCount),
		"warnings":  strconv.Itoa(r.Warnings()),
		"elapsed":   seconds(r.Elapsed),
	}
	if _, err := tpl.Execute(w, values); err != nil {
		return err
	}

	if len(r.Skipped) > 0 {
		w.WriteString("\n------------ Skipped entries ------------\n")
		for i, s := range r.Skipped {
			fmt.Fprintf(w, "%d - %s (%s)\n", i+1, s.Path, s.Reason)
		}
	}

	if r.Diff == nil {
		return nil
	}
	d := r.Diff

	if d.AlgorithmMismatch() {
		fmt.Fprintf(w, "\nWarning: the baseline was hashed with %s but the tree with %s\n",
			d.BaselineAlgorithm, d.CurrentAlgorithm)
	}

	w.WriteString("\n------------ Deleted files or directories ------------\n")
	if len(d.Deleted) == 0 {
		w.WriteString("Nothing was deleted!\n")
	}
	for i, p := range d.Deleted {
		fmt.Fprintf(w, "%d - %s\n", i+1, p)
	}

	w.WriteString("\n------------ New files or directories ------------\n")
	if len(d.Added) == 0 {
		w.WriteString("Nothing was added!\n")
	}
	for i, p := range d.Added {
		fmt.Fprintf(w, "%d - %s\n", i+1, p)
	}

	w.WriteString("\n------------ Modified files or directories ------------\n")
	if len(d.Changed) == 0 {
		w.WriteString("No file or directory was modified!\n")
	}
	for i, c := range d.Changed {
		fmt.Fprintf(w, "%d - The file/folder %s has undergone the following modifications:\n", i+1, c.Path)
		for _, field := range c.Fields() {
			fmt.Fprintf(w, "\t%s:\t|%s| --> |%s|\n", field.Name, field.Change.Before, field.Change.After)
		}
	}

	return nil
}

// WriteFile stores the text rendering of r at path, replacing any
// existing file.
func WriteFile(path string, r *Report) error {
	var buf bytes.Buffer
	if err := (&TextFormatter{}).Format(&buf, r); err != nil {
		return siverr.New(siverr.KindIO, "write report", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return siverr.New(siverr.KindIO, "write report", path, err)
	}
	return nil
}

func init() {
	Register("text", func() Formatter {
		return &TextFormatter{}
	})
}

// Ensure TextFormatter implements Formatter.
var _ Formatter = (*TextFormatter)(nil)
