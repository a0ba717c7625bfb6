package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/jamesainslie/siv/pkg/siv/config"
	"github.com/jamesainslie/siv/pkg/siv/history"
	"github.com/jamesainslie/siv/pkg/siv/logging"
	"github.com/jamesainslie/siv/pkg/siv/pathutil"
	"github.com/jamesainslie/siv/pkg/siv/report"
	"github.com/jamesainslie/siv/pkg/siv/siverr"
)

var logger = logging.Get("cli")

// runPaths are the three locations every run works with.
type runPaths struct {
	Root     string
	Manifest string
	Report   string
}

// resolvePaths expands and validates the -D, -V and -R arguments. In init
// mode the report gets ".txt" appended when missing; in verify mode it must
// already end with ".txt". The manifest always gets ".csv" appended.
func resolvePaths(dir, manifestPath, reportPath string, verify bool) (runPaths, error) {
	var p runPaths

	required := []struct{ flag, value string }{
		{"-D", dir},
		{"-V", manifestPath},
		{"-R", reportPath},
	}
	for _, r := range required {
		if r.value == "" {
			return p, siverr.New(siverr.KindValidation, "parse arguments", "", fmt.Errorf("%s is required", r.flag))
		}
	}

	var err error
	if p.Root, err = expandAbs(dir); err != nil {
		return p, err
	}
	if p.Manifest, err = expandAbs(pathutil.EnsureSuffix(manifestPath, ".csv")); err != nil {
		return p, err
	}

	if verify {
		if filepath.Ext(reportPath) != ".txt" {
			return p, siverr.New(siverr.KindValidation, "parse arguments", reportPath,
				errors.New("report file must end with .txt"))
		}
	} else {
		reportPath = pathutil.EnsureSuffix(reportPath, ".txt")
	}
	if p.Report, err = expandAbs(reportPath); err != nil {
		return p, err
	}

	inside, err := pathutil.Contains(p.Root, p.Report)
	if err != nil {
		return p, siverr.New(siverr.KindIO, "resolve", p.Report, err)
	}
	if inside {
		return p, siverr.New(siverr.KindValidation, "parse arguments", p.Report,
			fmt.Errorf("report file cannot be inside the monitored directory %s", p.Root))
	}
	if p.Report == p.Manifest {
		return p, siverr.New(siverr.KindValidation, "parse arguments", p.Report,
			errors.New("report and verification file must differ"))
	}

	return p, nil
}

func expandAbs(path string) (string, error) {
	expanded, err := pathutil.ExpandPath(path)
	if err != nil {
		return "", siverr.New(siverr.KindIO, "resolve", path, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", siverr.New(siverr.KindIO, "resolve", path, err)
	}
	return abs, nil
}

// emitSummary writes the report in the configured format unless quiet.
func emitSummary(w io.Writer, c *config.Config, rep *report.Report) error {
	if getQuiet() {
		return nil
	}

	formatter, err := report.Get(getFormat(c))
	if err != nil {
		return siverr.New(siverr.KindValidation, "format", "", err)
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, rep); err != nil {
		return fmt.Errorf("failed to format summary: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// recordRun appends rec to the run history. Failures are logged but do not
// fail the run.
func recordRun(c *config.Config, rec *history.Record) {
	if c == nil || !c.History.Enabled {
		return
	}

	store, err := history.Open(historyPath(c))
	if err != nil {
		logger.Warn("history unavailable", "error", err)
		return
	}
	defer store.Close()

	if err := store.Put(rec); err != nil {
		logger.Warn("failed to record run", "error", err)
		return
	}

	if c.History.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -c.History.RetentionDays)
		if _, err := store.Prune(cutoff); err != nil {
			logger.Warn("failed to prune history", "error", err)
		}
	}
}

func historyPath(c *config.Config) string {
	if c != nil && c.History.Path != "" {
		return c.History.Path
	}
	return config.HistoryDir()
}
