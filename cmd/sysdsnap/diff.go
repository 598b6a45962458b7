package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sysdsnap/internal/differ"
	"sysdsnap/internal/slogutil"
)

var (
	diffOut    string
	diffFormat string
)

var diffCmd = &cobra.Command{
	Use:   "diff <origin> <comparison>",
	Short: "Structurally diff two same-shaped artifacts",
	Long: `diff loads two JSON documents of the same shape (two Master
Structures, two Dependency Maps, or any other structurally comparable
pair) and reports which top-level keys differ, are unique to one side,
or carry suppressed library-version noise.`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffOut, "out", "", "output file (default: stdout)")
	diffCmd.Flags().StringVar(&diffFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	result, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}

	factory := slogutil.NewLoggerFactory(result.Config, cliLogLevel(cmd))
	defer factory.Close()
	if _, err := factory.DiffLogger(); err != nil {
		return fmt.Errorf("creating diff logger: %w", err)
	}

	origin, err := differ.Load(args[0])
	if err != nil {
		return fmt.Errorf("loading %s: %w", args[0], err)
	}
	comparison, err := differ.Load(args[1])
	if err != nil {
		return fmt.Errorf("loading %s: %w", args[1], err)
	}

	d := differ.Compare(origin, comparison)
	return writeOutput(d, diffFormat, diffOut)
}
