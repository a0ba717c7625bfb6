package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/siv/pkg/siv/config"
	"github.com/jamesainslie/siv/pkg/siv/engine"
	"github.com/jamesainslie/siv/pkg/siv/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded runs",
	Long: `View the history of init and verify runs.

Every run records its directory, verification file, hash function,
counts and the number of differences found.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove runs older than the retention period",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of runs to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory() (*history.Store, error) {
	s, err := history.Open(historyPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return s, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := openHistory()
	if err != nil {
		return err
	}
	defer s.Close()

	return listHistory(cmd.OutOrStdout(), s, historyLimit)
}

func listHistory(w io.Writer, s *history.Store, limit int) error {
	records, err := s.List(limit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		fmt.Fprintln(w, "Run 'siv init' to record a baseline.")
		return nil
	}

	fmt.Fprintf(w, "\n%-36s  %-6s  %-16s  %8s  %8s  %s\n", "ID", "MODE", "WHEN", "FILES", "WARNINGS", "DIRECTORY")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, r := range records {
		fmt.Fprintf(w, "%-36s  %-6s  %-16s  %8d  %8d  %s\n",
			r.ID,
			r.Mode,
			humanize.Time(r.StartedAt),
			r.FileCount,
			r.Warnings(),
			r.Root,
		)
	}

	fmt.Fprintln(w, strings.Repeat("-", 100))
	fmt.Fprintf(w, "\nShowing %d runs. Use --limit to see more.\n", len(records))
	fmt.Fprintln(w, "Use 'siv history show <id>' for details on a specific run.")
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	s, err := openHistory()
	if err != nil {
		return err
	}
	defer s.Close()

	return showHistory(cmd.OutOrStdout(), s, args[0])
}

func showHistory(w io.Writer, s *history.Store, id string) error {
	r, err := s.Get(id)
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no run with id %s", id)
	}
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	fmt.Fprintln(w, "\nRun Details")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "ID:            %s\n", r.ID)
	fmt.Fprintf(w, "Mode:          %s\n", r.Mode)
	fmt.Fprintf(w, "Started:       %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Elapsed:       %s\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Directory:     %s\n", r.Root)
	fmt.Fprintf(w, "Verification:  %s\n", r.ManifestPath)
	if r.ReportPath != "" {
		fmt.Fprintf(w, "Report:        %s\n", r.ReportPath)
	}
	fmt.Fprintf(w, "Hash function: %s\n", r.Algorithm)
	fmt.Fprintf(w, "Scanned:       %s files, %s directories\n",
		humanize.Comma(int64(r.FileCount)), humanize.Comma(int64(r.DirCount)))
	if r.Skipped > 0 {
		fmt.Fprintf(w, "Skipped:       %d\n", r.Skipped)
	}
	if r.Mode == engine.ModeVerify {
		fmt.Fprintf(w, "Deleted:       %d\n", r.Deleted)
		fmt.Fprintf(w, "Added:         %d\n", r.Added)
		fmt.Fprintf(w, "Modified:      %d\n", r.Changed)
	}
	return nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	s, err := openHistory()
	if err != nil {
		return err
	}
	defer s.Close()

	days := config.DefaultRetentionDays
	if cfg != nil && cfg.History.RetentionDays > 0 {
		days = cfg.History.RetentionDays
	}

	out := cmd.OutOrStdout()
	printInfo(out, "Removing runs older than %d days...", days)

	removed, err := s.Prune(time.Now().AddDate(0, 0, -days))
	if err != nil {
		return err
	}

	noun := "runs"
	if removed == 1 {
		noun = "run"
	}
	printInfo(out, "Removed %d %s.", removed, noun)
	return nil
}
