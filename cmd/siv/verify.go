package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/siv/pkg/siv/config"
	"github.com/jamesainslie/siv/pkg/siv/engine"
	"github.com/jamesainslie/siv/pkg/siv/history"
	"github.com/jamesainslie/siv/pkg/siv/report"
	"github.com/jamesainslie/siv/pkg/siv/siverr"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a directory against its baseline manifest",
	Long: `Scan a directory tree with the hash function recorded in the
verification file and report every deleted, added or modified file or
directory. The report file must end with ".txt".

With --exit-code the command exits with status 10 when differences are
found.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

type verifyArgs struct {
	dir      string
	manifest string
	report   string
	hash     string
	exitCode bool
}

var verifyFlags verifyArgs

func init() {
	verifyCmd.Flags().StringVarP(&verifyFlags.dir, "directory", "D", "", "directory to verify")
	verifyCmd.Flags().StringVarP(&verifyFlags.manifest, "verification-file", "V", "", "baseline verification file")
	verifyCmd.Flags().StringVarP(&verifyFlags.report, "report-file", "R", "", "report file to write (.txt)")
	verifyCmd.Flags().StringVarP(&verifyFlags.hash, "hash-function", "H", "", "not allowed: the hash function comes from the verification file")
	verifyCmd.Flags().BoolVar(&verifyFlags.exitCode, "exit-code", false, "exit with status 10 when differences are found")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	return doVerify(cmd.Context(), cfg, verifyFlags, cmd.OutOrStdout())
}

func doVerify(ctx context.Context, c *config.Config, a verifyArgs, out io.Writer) error {
	if a.hash != "" {
		return siverr.New(siverr.KindConfigurationConflict, "verify", "",
			fmt.Errorf("-H %s given, but the hash function is fixed by the verification file", a.hash))
	}

	paths, err := resolvePaths(a.dir, a.manifest, a.report, true)
	if err != nil {
		return err
	}

	printInfo(out, "Starting verification mode...")

	res, err := engine.Verify(ctx, engine.VerifyOptions{
		Root:         paths.Root,
		ManifestPath: paths.Manifest,
	})
	if err != nil {
		return err
	}

	rep := report.FromVerify(res, paths.Report)
	if err := report.WriteFile(paths.Report, rep); err != nil {
		return err
	}
	recordRun(c, history.FromVerify(res, paths.Report))

	if err := emitSummary(out, c, rep); err != nil {
		return err
	}

	if a.exitCode && !res.Diff.Empty() {
		return errDifferences
	}
	return nil
}
