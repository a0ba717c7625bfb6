package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/siv/pkg/siv/diff"
	"github.com/jamesainslie/siv/pkg/siv/engine"
	"github.com/jamesainslie/siv/pkg/siv/types"
)

// PrettyFormatter renders a styled terminal summary using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	if len(r.Skipped) > 0 {
		w.WriteString(f.formatSkipped(r.Skipped))
	}
	if r.Diff != nil {
		w.WriteString(f.formatDiff(r.Diff))
	}

	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Report) string {
	title := "Baseline recorded"
	if r.Mode == engine.ModeVerify {
		title = "Verification"
	}

	lines := []string{
		TitleStyle.Render(title),
		field("Directory:", r.Root),
		field("Manifest:", r.ManifestPath),
	}
	if r.ReportPath != "" {
		lines = append(lines, field("Report:", r.ReportPath))
	}
	lines = append(lines,
		field("Algorithm:", r.Algorithm.String()),
		field("Scanned:", fmt.Sprintf("%s files in %s directories in %s",
			humanize.Comma(int64(r.FileCount)),
			humanize.Comma(int64(r.DirCount)),
			formatDuration(r.Elapsed))),
	)

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatSkipped(skipped []types.SkippedEntry) string {
	var b strings.Builder
	b.WriteString(WarningStyle.Render(fmt.Sprintf("Skipped %d %s:", len(skipped), plural(len(skipped), "entry", "entries"))))
	b.WriteString("\n")
	for _, s := range skipped {
		fmt.Fprintf(&b, "  %s %s\n", PathStyle.Render(s.Path), MutedStyle.Render("("+s.Reason+")"))
	}
	b.WriteString("\n")
	return b.String()
}

func (f *PrettyFormatter) formatDiff(d *diff.Result) string {
	var b strings.Builder

	if d.AlgorithmMismatch() {
		b.WriteString(DangerStyle.Render(fmt.Sprintf("Baseline hashed with %s, tree hashed with %s",
			d.BaselineAlgorithm, d.CurrentAlgorithm)))
		b.WriteString("\n\n")
	}

	section(&b, "Deleted", DangerStyle.Render("-"), d.Deleted)
	section(&b, "Added", SuccessStyle.Render("+"), d.Added)

	if len(d.Changed) > 0 {
		b.WriteString(TitleStyle.Render(fmt.Sprintf("Modified (%d)", len(d.Changed))))
		b.WriteString("\n")
		for _, c := range d.Changed {
			fmt.Fprintf(&b, "  %s %s\n", WarningStyle.Render("~"), PathStyle.Render(c.Path))
			for _, fld := range c.Fields() {
				before, after := fld.Change.Before, fld.Change.After
				if fld.Name == types.FieldSize {
					before, after = humanSize(before), humanSize(after)
				}
				fmt.Fprintf(&b, "      %s %s %s %s\n",
					LabelStyle.Render(fld.Name+":"),
					MutedStyle.Render(orNone(before)),
					MutedStyle.Render("->"),
					ValueStyle.Render(orNone(after)))
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (f *PrettyFormatter) formatFooter(r *Report) string {
	if r.Diff == nil {
		return FooterBox.Render(SuccessStyle.Render("Manifest written"))
	}
	if r.Diff.Empty() {
		return FooterBox.Render(SuccessStyle.Render("No differences found"))
	}

	d := r.Diff
	return FooterBox.Render(WarningStyle.Render(fmt.Sprintf("%d %s: %d deleted, %d added, %d modified",
		d.Warnings(), plural(d.Warnings(), "warning", "warnings"),
		len(d.Deleted), len(d.Added), len(d.Changed))))
}

func section(b *strings.Builder, title, marker string, paths []string) {
	if len(paths) == 0 {
		return
	}
	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s (%d)", title, len(paths))))
	b.WriteString("\n")
	for _, p := range paths {
		fmt.Fprintf(b, "  %s %s\n", marker, PathStyle.Render(p))
	}
	b.WriteString("\n")
}

func field(label, value string) string {
	return LabelStyle.Render(label) + " " + ValueStyle.Render(value)
}

// humanSize renders a byte count column as e.g. "1.5 KiB (1536)".
func humanSize(s string) string {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return s
	}
	return types.FormatSize(n) + " (" + s + ")"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.String()
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
