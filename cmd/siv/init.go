package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/siv/pkg/siv/config"
	"github.com/jamesainslie/siv/pkg/siv/digest"
	"github.com/jamesainslie/siv/pkg/siv/engine"
	"github.com/jamesainslie/siv/pkg/siv/history"
	"github.com/jamesainslie/siv/pkg/siv/report"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Record a baseline manifest of a directory",
	Long: `Scan a directory tree and record every file and directory in a
verification file (CSV). A short report is written to the report file.

The verification file gets ".csv" appended and the report file ".txt"
appended when missing. Neither may be inside the monitored directory.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

type initArgs struct {
	dir      string
	manifest string
	report   string
	hash     string
}

var initFlags initArgs

func init() {
	initCmd.Flags().StringVarP(&initFlags.dir, "directory", "D", "", "directory to monitor")
	initCmd.Flags().StringVarP(&initFlags.manifest, "verification-file", "V", "", "verification file to write")
	initCmd.Flags().StringVarP(&initFlags.report, "report-file", "R", "", "report file to write")
	initCmd.Flags().StringVarP(&initFlags.hash, "hash-function", "H", "", "hash function: md5, sha1, sha256, blake3 (default from config)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	return doInit(cmd.Context(), cfg, initFlags, cmd.OutOrStdout())
}

func doInit(ctx context.Context, c *config.Config, a initArgs, out io.Writer) error {
	paths, err := resolvePaths(a.dir, a.manifest, a.report, false)
	if err != nil {
		return err
	}

	hash := a.hash
	if hash == "" && c != nil {
		hash = c.Hash.Default
	}
	if hash == "" {
		hash = config.DefaultAlgorithm
	}
	alg, err := digest.ParseAlgorithm(hash)
	if err != nil {
		return err
	}

	printInfo(out, "Starting initialization mode...")

	res, err := engine.Initialize(ctx, engine.InitOptions{
		Root:         paths.Root,
		ManifestPath: paths.Manifest,
		Algorithm:    alg,
	})
	if err != nil {
		return err
	}

	rep := report.FromInit(res, paths.Report)
	if err := report.WriteFile(paths.Report, rep); err != nil {
		return err
	}
	recordRun(c, history.FromInit(res, paths.Report))

	return emitSummary(out, c, rep)
}
