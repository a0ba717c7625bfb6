package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/siv/pkg/siv/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage siv configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/siv/config.yaml (if set)
  2. ~/.config/siv/config.yaml

Environment variables can override config file settings using the SIV_ prefix:
  SIV_HASH_DEFAULT=sha256
  SIV_REPORT_FORMAT=json
  SIV_HISTORY_ENABLED=false`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return err
		}
	}
	if _, err := os.Stat(path); err != nil {
		path = ""
	}
	return showConfig(cmd.OutOrStdout(), cfg, path, getFormat(cfg))
}

type setting struct {
	key   string
	value string
}

func settings(c *config.Config) []setting {
	return []setting{
		{"hash.default", c.Hash.Default},
		{"report.format", c.Report.Format},
		{"history.enabled", strconv.FormatBool(c.History.Enabled)},
		{"history.path", orDefault(c.History.Path, "(default)")},
		{"history.retention_days", strconv.Itoa(c.History.RetentionDays)},
		{"logging.level", c.Logging.Level},
		{"logging.path", orDefault(c.Logging.Path, "(default)")},
		{"logging.max_size", c.Logging.MaxSize},
		{"logging.max_backups", strconv.Itoa(c.Logging.MaxBackups)},
	}
}

func envName(key string) string {
	return "SIV_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// showConfig prints the effective configuration. path is empty when no file was found.
func showConfig(w io.Writer, c *config.Config, path, format string) error {
	if c == nil {
		return errors.New("configuration not loaded")
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	}

	if path != "" {
		fmt.Fprintf(w, "Config file: %s\n\n", path)
	} else {
		fmt.Fprint(w, "Config file: (using defaults, no file found)\n\n")
	}

	fmt.Fprintln(w, "Current Configuration:")
	fmt.Fprintln(w, "----------------------")
	var overrides []string
	for _, s := range settings(c) {
		fmt.Fprintf(w, "%-24s%s\n", s.key+":", s.value)
		if v, ok := os.LookupEnv(envName(s.key)); ok && v != "" {
			overrides = append(overrides, envName(s.key)+"="+v)
		}
	}

	fmt.Fprintln(w, "\nEnvironment Overrides:")
	fmt.Fprintln(w, "----------------------")
	if len(overrides) == 0 {
		fmt.Fprintln(w, "(none)")
	}
	for _, o := range overrides {
		fmt.Fprintln(w, o)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		printInfo(cmd.OutOrStdout(), "Config file already exists: %s", path)
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	printInfo(cmd.OutOrStdout(), "Created default config file: %s", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
