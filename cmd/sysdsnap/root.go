package main

import (
	"github.com/spf13/cobra"

	"sysdsnap/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sysdsnap",
	Short: "sysdsnap - offline init-system tree analyzer",
	Long: `sysdsnap walks a systemd-style init-system tree (either the live
host or a captured alternative root), builds a normalized Master
Structure of its units, binaries and dynamic mounts, expands the
dependency closure reachable from a given unit, and diffs or graphs
the result.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("sysdsnap version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a sysdsnap.toml config file")
	rootCmd.PersistentFlags().String("log-level", "", "override the configured log level (debug, info, warn, error)")
}
