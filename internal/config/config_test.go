package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Tools.ELFTool != "readelf" {
		t.Errorf("ELFTool = %q, want readelf", cfg.Tools.ELFTool)
	}
	if cfg.Tools.StringsTool != "strings" {
		t.Errorf("StringsTool = %q, want strings", cfg.Tools.StringsTool)
	}
	if cfg.Tools.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0 (no timeout)", cfg.Tools.Timeout)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache should be enabled by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.AltRoot != "" {
		t.Errorf("AltRoot = %q, want empty (live filesystem)", cfg.AltRoot)
	}
}

func TestLoadUsesDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	result, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !result.UsedDefaults {
		t.Error("UsedDefaults should be true when no config file is present")
	}
	if result.Config.Tools.ELFTool != "readelf" {
		t.Errorf("ELFTool = %q, want readelf", result.Config.Tools.ELFTool)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sysdsnap.toml")
	contents := `
alt_root = "/mnt/image"

[tools]
elf_tool = "my-readelf"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if result.ConfigPath != path {
		t.Errorf("ConfigPath = %q, want %q", result.ConfigPath, path)
	}
	if result.Config.AltRoot != "/mnt/image" {
		t.Errorf("AltRoot = %q, want /mnt/image", result.Config.AltRoot)
	}
	if result.Config.Tools.ELFTool != "my-readelf" {
		t.Errorf("ELFTool = %q, want my-readelf", result.Config.Tools.ELFTool)
	}
	// Untouched fields keep their defaults.
	if result.Config.Tools.StringsTool != "strings" {
		t.Errorf("StringsTool = %q, want strings", result.Config.Tools.StringsTool)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SYSDSNAP_ALT_ROOT", "/mnt/other")
	t.Setenv("SYSDSNAP_TOOLS_ELF_TOOL", "readelf-env")

	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	result, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if result.Config.AltRoot != "/mnt/other" {
		t.Errorf("AltRoot = %q, want /mnt/other", result.Config.AltRoot)
	}
	if result.Config.Tools.ELFTool != "readelf-env" {
		t.Errorf("ELFTool = %q, want readelf-env", result.Config.Tools.ELFTool)
	}

	found := false
	for _, ov := range result.EnvOverrides {
		if ov.EnvVar == "SYSDSNAP_ALT_ROOT" {
			found = true
			if ov.Value != "/mnt/other" {
				t.Errorf("override value = %q", ov.Value)
			}
		}
	}
	if !found {
		t.Error("expected SYSDSNAP_ALT_ROOT in EnvOverrides")
	}
}

func TestRenderTOMLRoundTrips(t *testing.T) {
	cfg := Default()
	cfg.AltRoot = "/mnt/image"

	rendered, err := cfg.RenderTOML()
	if err != nil {
		t.Fatalf("RenderTOML() error = %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "sysdsnap.toml")
	if err := os.WriteFile(path, rendered, 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of rendered config error = %v", err)
	}
	if result.Config.AltRoot != "/mnt/image" {
		t.Errorf("AltRoot = %q after round trip", result.Config.AltRoot)
	}
	if result.Config.Tools.ELFTool != cfg.Tools.ELFTool {
		t.Errorf("ELFTool = %q after round trip", result.Config.Tools.ELFTool)
	}
}

func TestCacheHomeRespectsEnv(t *testing.T) {
	t.Setenv("SYSDSNAP_HOME", "/custom/home")
	if got := CacheHome(); got != "/custom/home" {
		t.Errorf("CacheHome() = %q, want /custom/home", got)
	}
}

func TestLogPath(t *testing.T) {
	t.Setenv("SYSDSNAP_HOME", t.TempDir())
	path, err := LogPath("build")
	if err != nil {
		t.Fatalf("LogPath() error = %v", err)
	}
	if filepath.Base(path) != "build.log" {
		t.Errorf("LogPath() = %q, want basename build.log", path)
	}
}
