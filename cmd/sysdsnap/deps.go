package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sysdsnap/internal/depclosure"
	"sysdsnap/internal/masterstructure"
	"sysdsnap/internal/slogutil"
)

var (
	depsMaster string
	depsOrigin string
	depsOut    string
	depsFormat string
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Expand the dependency closure reachable from a unit",
	Long: `deps reads a previously built Master Structure and walks the
breadth-first worklist outward from --origin, producing a Dependency
Map keyed by unit name.`,
	RunE: runDeps,
}

func init() {
	depsCmd.Flags().StringVar(&depsMaster, "master", "", "path to a Master Structure JSON file (required)")
	depsCmd.Flags().StringVar(&depsOrigin, "origin", "", "unit name to start the closure from (required)")
	depsCmd.Flags().StringVar(&depsOut, "out", "", "output file (default: stdout)")
	depsCmd.Flags().StringVar(&depsFormat, "format", "json", "output format: json or yaml")
	depsCmd.MarkFlagRequired("master")
	depsCmd.MarkFlagRequired("origin")
	rootCmd.AddCommand(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
	result, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}

	factory := slogutil.NewLoggerFactory(result.Config, cliLogLevel(cmd))
	defer factory.Close()
	logger, err := factory.ClosureLogger()
	if err != nil {
		return fmt.Errorf("creating closure logger: %w", err)
	}

	data, err := os.ReadFile(depsMaster)
	if err != nil {
		return fmt.Errorf("reading master structure: %w", err)
	}
	var ms masterstructure.MasterStructure
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("parsing master structure: %w", err)
	}

	engine := depclosure.New(&ms, ms.RemotePath, logger)
	dm := engine.Build(depsOrigin)

	return writeOutput(dm, depsFormat, depsOut)
}
