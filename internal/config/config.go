// Package config loads the layered sysdsnap configuration: built-in
// defaults, an optional TOML file, and SYSDSNAP_-prefixed environment
// variables, in that order of increasing precedence, via spf13/viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// ToolsConfig names the external subprocesses the binary inspector
// invokes and how long to let them run. A zero Timeout means "wait
// forever", the default.
type ToolsConfig struct {
	ELFTool     string        `mapstructure:"elf_tool" toml:"elf_tool"`
	StringsTool string        `mapstructure:"strings_tool" toml:"strings_tool"`
	Timeout     time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// CacheConfig controls the on-disk binary-inspection/snapshot cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Path    string `mapstructure:"path" toml:"path"`
}

// LoggingConfig configures internal/slogutil.
type LoggingConfig struct {
	Level      string `mapstructure:"level" toml:"level"`
	Format     string `mapstructure:"format" toml:"format"`
	MaxSize    string `mapstructure:"max_size" toml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`
}

// Config is the complete sysdsnap configuration.
type Config struct {
	// AltRoot is the alternative-root prefix. Empty means the live
	// local filesystem.
	AltRoot string `mapstructure:"alt_root" toml:"alt_root"`
	// SearchDirs, when non-empty, replaces the built-in search-path
	// list wholesale. Leave empty to use the manager's own defaults.
	SearchDirs []string `mapstructure:"search_dirs" toml:"search_dirs,omitempty"`
	// ExtraSearchDirs are appended after the built-in (or overridden)
	// search-path list.
	ExtraSearchDirs []string `mapstructure:"extra_search_dirs" toml:"extra_search_dirs,omitempty"`
	// FstabPath overrides the default "<alt-root>/etc/fstab" location.
	FstabPath string `mapstructure:"fstab_path" toml:"fstab_path"`

	Tools   ToolsConfig   `mapstructure:"tools" toml:"tools"`
	Cache   CacheConfig   `mapstructure:"cache" toml:"cache"`
	Logging LoggingConfig `mapstructure:"logging" toml:"logging"`
}

// RenderTOML serializes the effective configuration in the same TOML
// shape Load reads, so --explain-config can echo back exactly what a
// config file reproducing the current state would contain.
func (c *Config) RenderTOML() ([]byte, error) {
	return toml.Marshal(c)
}

// EnvOverride records one environment-variable override actually
// applied on top of the file/defaults layer, surfaced by
// `sysdsnap build --explain-config`.
type EnvOverride struct {
	EnvVar string
	Path   string
	Value  string
}

// LoadResult is the outcome of a Load call plus bookkeeping about how
// the configuration was assembled.
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	EnvOverrides []EnvOverride
	UsedDefaults bool
}

const envPrefix = "SYSDSNAP"

// Default returns the built-in configuration: no alt root, the
// manager's own search-path list (left empty here so callers fall
// back to masterstructure.DefaultSearchDirs), readelf/strings with no
// timeout, caching on at the default cache-home location, and
// info-level human logging.
func Default() *Config {
	return &Config{
		Tools: ToolsConfig{
			ELFTool:     "readelf",
			StringsTool: "strings",
			Timeout:     0,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    DefaultCachePath(),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "human",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// Load assembles the configuration from defaults, an optional TOML
// file at configPath (skipped if empty and not found at the default
// location), and SYSDSNAP_-prefixed environment variables.
func Load(configPath string) (*LoadResult, error) {
	v := viper.New()
	v.SetConfigType("toml")

	setDefaults(v, Default())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("sysdsnap")
		v.AddConfigPath(".")
		if home, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "sysdsnap"))
		}
	}

	result := &LoadResult{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		result.UsedDefaults = true
	} else {
		result.ConfigPath = v.ConfigFileUsed()
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	result.Config = cfg
	result.EnvOverrides = collectEnvOverrides(v)

	return result, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("alt_root", cfg.AltRoot)
	v.SetDefault("search_dirs", cfg.SearchDirs)
	v.SetDefault("extra_search_dirs", cfg.ExtraSearchDirs)
	v.SetDefault("fstab_path", cfg.FstabPath)
	v.SetDefault("tools.elf_tool", cfg.Tools.ELFTool)
	v.SetDefault("tools.strings_tool", cfg.Tools.StringsTool)
	v.SetDefault("tools.timeout", cfg.Tools.Timeout)
	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.max_size", cfg.Logging.MaxSize)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
}

// envKeys lists the dotted config paths we report on in EnvOverrides;
// kept as a flat list rather than reflected over the struct, in
// keeping with the "fixed tables, not reflection" design note.
var envKeys = []string{
	"alt_root", "fstab_path",
	"tools.elf_tool", "tools.strings_tool", "tools.timeout",
	"cache.enabled", "cache.path",
	"logging.level", "logging.format", "logging.max_size", "logging.max_backups",
}

func collectEnvOverrides(v *viper.Viper) []EnvOverride {
	var overrides []EnvOverride
	for _, key := range envKeys {
		envVar := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if val, ok := os.LookupEnv(envVar); ok {
			overrides = append(overrides, EnvOverride{EnvVar: envVar, Path: key, Value: val})
		}
	}
	return overrides
}

// CacheHome returns the directory sysdsnap uses for its cache
// database and log files: $SYSDSNAP_HOME if set, else
// os.UserCacheDir()/sysdsnap.
func CacheHome() string {
	if home := os.Getenv(envPrefix + "_HOME"); home != "" {
		return home
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "sysdsnap")
}

// DefaultCachePath returns the default sqlite cache database path.
func DefaultCachePath() string {
	return filepath.Join(CacheHome(), "cache.db")
}

// LogsDir returns the directory rotating log files are written under,
// creating it if necessary.
func LogsDir() (string, error) {
	dir := filepath.Join(CacheHome(), "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// LogPath returns the rotating-log-file path for a named subsystem
// ("build", "closure", "diff", "graph").
func LogPath(subsystem string) (string, error) {
	dir, err := LogsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, subsystem+".log"), nil
}
