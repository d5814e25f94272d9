package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"pixpress/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace_OK(t *testing.T) {
	result := CheckFreeSpace("test", t.TempDir(), 1)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckFreeSpace_Insufficient(t *testing.T) {
	// No filesystem has this much headroom.
	result := CheckFreeSpace("test", t.TempDir(), 1<<62)
	if result.Passed {
		t.Fatal("expected failure for absurd requirement")
	}
}

func TestCheckFreeSpace_MissingPath(t *testing.T) {
	result := CheckFreeSpace("test", filepath.Join(t.TempDir(), "nope"), 1)
	if result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckBinary_Found(t *testing.T) {
	// sh exists everywhere this test runs.
	result := CheckBinary("shell", "sh")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckBinary_Missing(t *testing.T) {
	result := CheckBinary("ghost", "definitely-not-a-real-binary-3c1f")
	if result.Passed {
		t.Fatal("expected failure for missing binary")
	}
}

func TestCheckBinary_Unconfigured(t *testing.T) {
	result := CheckBinary("ghost", "  ")
	if result.Passed {
		t.Fatal("expected failure for empty command")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_SkipsJpegoptimWhenNotNeeded(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Optimize.Extensions = []string{"png"}

	results := RunAll(&cfg)
	for _, r := range results {
		if r.Name == "jpegoptim" {
			t.Fatal("jpegoptim checked despite png-only config")
		}
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
}

func TestFailures(t *testing.T) {
	results := []Result{
		{Name: "a", Passed: true},
		{Name: "b", Passed: false, Detail: "broken"},
	}
	failed := Failures(results)
	if len(failed) != 1 || failed[0].Name != "b" {
		t.Fatalf("failures = %v", failed)
	}
}
