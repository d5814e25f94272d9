package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"pixpress/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "pixpress", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Optimize.Concurrency != 4 {
		t.Fatalf("unexpected default concurrency: %d", cfg.Optimize.Concurrency)
	}
	if cfg.Optimize.JPEGQuality != 80 {
		t.Fatalf("unexpected default jpeg quality: %d", cfg.Optimize.JPEGQuality)
	}
	if cfg.Optimize.Overwrite {
		t.Fatal("expected overwrite disabled by default")
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadParsesAndNormalizesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[optimize]
concurrency = 2
jpeg_quality = 65
extensions = [".PNG", "jpg", "jpg", ""]
target_format = " JPG "

[logging]
format = "weird"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if cfg.Optimize.Concurrency != 2 {
		t.Fatalf("unexpected concurrency: %d", cfg.Optimize.Concurrency)
	}
	if cfg.Optimize.JPEGQuality != 65 {
		t.Fatalf("unexpected jpeg quality: %d", cfg.Optimize.JPEGQuality)
	}
	if got := cfg.Optimize.Extensions; len(got) != 2 || got[0] != "png" || got[1] != "jpg" {
		t.Fatalf("unexpected extensions: %v", got)
	}
	if cfg.Optimize.TargetFormat != "jpg" {
		t.Fatalf("unexpected target format: %q", cfg.Optimize.TargetFormat)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected unknown log format to fall back to console, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadQuality(t *testing.T) {
	cfg := config.Default()
	cfg.Optimize.JPEGQuality = 150
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for jpeg_quality > 100")
	}
}

func TestValidateRejectsUnknownTargetFormat(t *testing.T) {
	cfg := config.Default()
	cfg.Optimize.TargetFormat = "webp"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unsupported target_format")
	}
}

func TestSupportsExtension(t *testing.T) {
	cfg := config.Default()
	cases := []struct {
		ext  string
		want bool
	}{
		{".png", true},
		{"PNG", true},
		{"jpeg", true},
		{".gif", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := cfg.SupportsExtension(tc.ext); got != tc.want {
			t.Fatalf("SupportsExtension(%q) = %v, want %v", tc.ext, got, tc.want)
		}
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected sample config contents")
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Optimize.Concurrency != config.Default().Optimize.Concurrency {
		t.Fatalf("sample should carry default concurrency, got %d", cfg.Optimize.Concurrency)
	}
}
