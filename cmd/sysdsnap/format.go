package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sysdsnap/internal/config"
	"sysdsnap/internal/slogutil"
)

// writeOutput encodes v as JSON or YAML (per format) to outPath, or to
// stdout when outPath is empty.
func writeOutput(v any, format, outPath string) error {
	var data []byte
	var err error

	switch format {
	case "", "json":
		data, err = json.MarshalIndent(v, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unsupported format %q (want json or yaml)", format)
	}
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	data = append(data, '\n')

	if outPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}

// loadConfig loads the layered configuration from --config and
// optionally prints the config source, the environment overrides
// actually applied and the effective config before returning. The
// --log-level override is not read here; cliLogLevel resolves it.
func loadConfig(cmd *cobra.Command, explain bool) (*config.LoadResult, error) {
	result, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if explain {
		fmt.Fprintf(os.Stderr, "config source: ")
		if result.UsedDefaults {
			fmt.Fprintln(os.Stderr, "built-in defaults")
		} else {
			fmt.Fprintln(os.Stderr, result.ConfigPath)
		}
		for _, o := range result.EnvOverrides {
			fmt.Fprintf(os.Stderr, "  %s overrides %s = %s\n", o.EnvVar, o.Path, o.Value)
		}
		if rendered, err := result.Config.RenderTOML(); err == nil {
			fmt.Fprintf(os.Stderr, "effective config:\n%s", rendered)
		}
	}

	return result, nil
}

// cliLogLevel resolves the --log-level flag, returning 0 ("not set")
// when the flag was left empty so config/default precedence applies.
func cliLogLevel(cmd *cobra.Command) slog.Level {
	s, _ := cmd.Flags().GetString("log-level")
	if s == "" {
		return 0
	}
	return slogutil.LevelFromString(s)
}
