package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pixpress/internal/config"
	"pixpress/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

// setupCLITestEnv isolates HOME, writes a config file pointing at temp dirs,
// and puts working optimizer stubs on PATH. The oxipng stub honours the
// --out flag so end-to-end runs produce real staged files.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)
	writeOptimizerStubs(t, base)

	configPath := filepath.Join(homeDir, ".config", "pixpress", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
	}
}

// writeOptimizerStubs installs fake oxipng/jpegoptim scripts ahead of PATH.
// The stubs emit a fixed 2-byte output so every optimization "shrinks".
func writeOptimizerStubs(t *testing.T, base string) {
	t.Helper()

	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}

	// args: -o <level> --out <dst> <src>
	oxipng := "#!/bin/sh\nwhile [ \"$1\" != \"--out\" ]; do shift; done\nprintf ok > \"$2\"\n"
	// args: -m<q> --stdout <src>
	jpegoptim := "#!/bin/sh\nprintf ok\n"

	if err := os.WriteFile(filepath.Join(binDir, "oxipng"), []byte(oxipng), 0o755); err != nil {
		t.Fatalf("write oxipng stub: %v", err)
	}
	if err := os.WriteFile(filepath.Join(binDir, "jpegoptim"), []byte(jpegoptim), 0o755); err != nil {
		t.Fatalf("write jpegoptim stub: %v", err)
	}

	oldPath := os.Getenv("PATH")
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath)
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nwork_dir = %q\nlog_dir = %q\n\n[optimize]\nconcurrency = %d\n\n[history]\nenabled = true\nretention_days = 30\n",
		cfg.Paths.WorkDir,
		cfg.Paths.LogDir,
		cfg.Optimize.Concurrency,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = []string{"--config", configPath}
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
