package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/siv/pkg/siv/config"
	"github.com/jamesainslie/siv/pkg/siv/logging"
	"github.com/jamesainslie/siv/pkg/siv/siverr"
)

var (
	cfgFile string

	// cfg is loaded by the PersistentPreRunE hook.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "siv",
		Short: "Detect changes to a directory tree",
		Long: `siv records a baseline manifest of a directory tree (names, sizes,
owners, groups, permissions, modification times and content hashes)
and later verifies the tree against it, reporting every file or
directory that was deleted, added or modified.

Examples:
  siv init -D /etc -V ~/baselines/etc -R ~/baselines/etc-init
  siv init -D /srv/www -V www.csv -R www.txt -H sha256
  siv verify -D /etc -V ~/baselines/etc.csv -R ~/baselines/etc-check.txt
  siv history                 # List recorded runs
  siv config show             # Show configuration`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: bootstrap,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Close()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/siv/config.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "", "summary format: text, pretty, json, yaml (default from config)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "no summary output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging to stderr")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// bootstrap loads configuration and starts logging before any command.
func bootstrap(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFile(cfgFile)
	if err != nil {
		return siverr.New(siverr.KindValidation, "load config", cfgFile, err)
	}
	cfg = c

	maxSize, err := cfg.Logging.MaxSizeBytes()
	if err != nil {
		return siverr.New(siverr.KindValidation, "load config", cfgFile, err)
	}

	consoleLevel := ""
	if getVerbose() {
		consoleLevel = "debug"
	}

	err = logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Path:         cfg.Logging.Path,
		MaxSize:      maxSize,
		MaxBackups:   cfg.Logging.MaxBackups,
		Components:   cfg.Logging.Components,
		ConsoleLevel: consoleLevel,
	})
	if err != nil {
		printError("logging disabled: %v", err)
	}
	return nil
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// getFormat returns the summary format from the flag or the config.
func getFormat(c *config.Config) string {
	if f := viper.GetString("format"); f != "" {
		return f
	}
	if c != nil && c.Report.Format != "" {
		return c.Report.Format
	}
	return config.DefaultFormat
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(w io.Writer, format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(w, format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// Exit codes by error kind.
const (
	exitFailure     = 1
	exitUsage       = 2
	exitNotFound    = 3
	exitIO          = 4
	exitBadManifest = 5
	exitAlgorithm   = 6
	exitDifferences = 10
)

// errDifferences is returned by verify --exit-code when the tree changed.
var errDifferences = errors.New("differences found")

// reportError prints a diagnostic for err and returns the exit code.
func reportError(w io.Writer, err error) int {
	if errors.Is(err, errDifferences) {
		return exitDifferences
	}

	msg := err.Error()
	kind := siverr.KindOf(err)

	var hint string
	code := exitFailure
	switch kind {
	case siverr.KindNotFound:
		hint, code = "the path does not exist", exitNotFound
	case siverr.KindNotADirectory:
		hint, code = "the monitored path must be a directory", exitNotFound
	case siverr.KindIO:
		hint, code = "a file could not be read or written; check permissions", exitIO
	case siverr.KindParse:
		hint, code = "the verification file is corrupt", exitBadManifest
	case siverr.KindMalformedHeader:
		hint, code = "the verification file is not a siv manifest", exitBadManifest
	case siverr.KindUnsupportedAlgorithm:
		hint, code = "supported hash functions: md5, sha1, sha256, blake3", exitAlgorithm
	case siverr.KindConfigurationConflict:
		hint, code = "verification uses the hash function recorded in the verification file; drop -H", exitUsage
	case siverr.KindValidation:
		code = exitUsage
	default:
		if strings.Contains(msg, "unknown command") || strings.Contains(msg, "flag") {
			code = exitUsage
		}
	}

	fmt.Fprintf(w, "Error: %s\n", msg)
	if hint != "" {
		fmt.Fprintf(w, "  %s\n", hint)
	}
	return code
}
