package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sysdsnap/internal/depclosure"
	"sysdsnap/internal/report"
)

var (
	reportDeps string
	reportOut  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a Dependency Map as a human-readable summary",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDeps, "deps", "", "path to a Dependency Map JSON file (required)")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "output file (default: stdout)")
	reportCmd.MarkFlagRequired("deps")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(reportDeps)
	if err != nil {
		return fmt.Errorf("reading dependency map: %w", err)
	}
	var dm depclosure.DependencyMap
	if err := json.Unmarshal(data, &dm); err != nil {
		return fmt.Errorf("parsing dependency map: %w", err)
	}

	rendered := report.Render(&dm)

	if reportOut == "" {
		_, err = fmt.Fprintln(os.Stdout, rendered)
		return err
	}
	return os.WriteFile(reportOut, []byte(rendered+"\n"), 0o644)
}
