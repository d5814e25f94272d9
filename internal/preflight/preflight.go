// Package preflight verifies the environment before a batch starts: directory
// permissions, destination free space, and the external optimizer binaries.
// Checks report rather than abort so the CLI can show everything wrong at once.
package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"pixpress/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the standing checks for the given config. Per-batch checks
// (destination access, free space) are run separately by the caller because
// they depend on the batch being processed.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckBinary("oxipng", cfg.Optimize.OxipngBinary),
	}
	if needsJpegoptim(cfg) {
		results = append(results, CheckBinary("jpegoptim", cfg.Optimize.JpegoptimBinary))
	}
	return results
}

// Failures filters results down to the checks that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least required
// bytes available to the calling user.
func CheckFreeSpace(name, path string, required uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	available := stat.Bavail * uint64(stat.Bsize)
	if available < required {
		return Result{
			Name:   name,
			Detail: fmt.Sprintf("%s (error: %d bytes free, need %d)", path, available, required),
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d bytes free)", path, available)}
}

// CheckBinary verifies an external tool resolves on PATH (or at its configured
// absolute location).
func CheckBinary(name, command string) Result {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	resolved, err := exec.LookPath(cmd)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", cmd)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// needsJpegoptim reports whether any configured extension routes to jpegoptim.
func needsJpegoptim(cfg *config.Config) bool {
	for _, ext := range cfg.Optimize.Extensions {
		switch strings.ToLower(ext) {
		case "jpg", "jpeg":
			return true
		}
	}
	return false
}
