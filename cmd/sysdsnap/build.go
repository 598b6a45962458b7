package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sysdsnap/internal/cache"
	"sysdsnap/internal/config"
	"sysdsnap/internal/masterstructure"
	"sysdsnap/internal/slogutil"
)

var (
	buildAltRoot string
	buildFstab   string
	buildOut     string
	buildFormat  string
	buildExplain bool
	buildNoCache bool
	buildPurge   bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Walk an init-system tree and emit its Master Structure",
	Long: `build walks the search directories under an alternative root (or
the live filesystem when --root is omitted), inspects every referenced
binary, merges fstab-synthesized mount/swap units, and writes the
resulting Master Structure as JSON or YAML.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildAltRoot, "root", "", "alternative root to walk (default: live filesystem)")
	buildCmd.Flags().StringVar(&buildFstab, "fstab", "", "path to fstab (default: <root>/etc/fstab)")
	buildCmd.Flags().StringVar(&buildOut, "out", "", "output file (default: stdout)")
	buildCmd.Flags().StringVar(&buildFormat, "format", "json", "output format: json or yaml")
	buildCmd.Flags().BoolVar(&buildExplain, "explain-config", false, "print the assembled configuration's provenance to stderr")
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "disable the binary-inspection cache")
	buildCmd.Flags().BoolVar(&buildPurge, "purge-cache", false, "drop all cached inspections before building")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	result, err := loadConfig(cmd, buildExplain)
	if err != nil {
		return err
	}
	cfg := result.Config
	if buildAltRoot != "" {
		cfg.AltRoot = buildAltRoot
	}
	if buildFstab != "" {
		cfg.FstabPath = buildFstab
	}
	if buildNoCache {
		cfg.Cache.Enabled = false
	}

	factory := slogutil.NewLoggerFactory(cfg, cliLogLevel(cmd))
	defer factory.Close()
	logger, err := factory.BuildLogger()
	if err != nil {
		return fmt.Errorf("creating build logger: %w", err)
	}

	var c *cache.Cache
	if cfg.Cache.Enabled {
		if err := os.MkdirAll(config.CacheHome(), 0o755); err != nil {
			return fmt.Errorf("creating cache home: %w", err)
		}
		db, err := cache.Open(cfg.Cache.Path, logger)
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer db.Close()
		c = cache.New(db)
		if buildPurge {
			if err := c.Purge(); err != nil {
				return fmt.Errorf("purging cache: %w", err)
			}
		}
	}

	builder := masterstructure.New(cfg, c, logger)
	ms, err := builder.Build(context.Background())
	if err != nil {
		return fmt.Errorf("building master structure: %w", err)
	}

	return writeOutput(ms, buildFormat, buildOut)
}
