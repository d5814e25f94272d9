package optimizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"pixpress/internal/fileutil"
)

var commandContext = exec.CommandContext

// Params configure one optimization run.
type Params struct {
	Overwrite    bool
	TargetFormat string
	JPEGQuality  int
	PNGLevel     int
	WorkDir      string
}

// Result captures what one optimization produced.
type Result struct {
	OriginalSize int64
	NewSize      int64
	SavedBytes   int64
	OutputPath   string
	Skipped      bool
	Duration     time.Duration
}

// Client defines image optimization behaviour.
type Client interface {
	Optimize(ctx context.Context, sourcePath string, params Params) (Result, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithOxipngBinary overrides the default oxipng binary name.
func WithOxipngBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.oxipng = binary
		}
	}
}

// WithJpegoptimBinary overrides the default jpegoptim binary name.
func WithJpegoptimBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.jpegoptim = binary
		}
	}
}

// CLI wraps the oxipng and jpegoptim command-line optimizers.
type CLI struct {
	oxipng    string
	jpegoptim string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{oxipng: "oxipng", jpegoptim: "jpegoptim"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Binaries returns the binary names each supported format resolves to.
func (c *CLI) Binaries() []string {
	return []string{c.oxipng, c.jpegoptim}
}

// Optimize compresses sourcePath into a staged temp file, then either keeps
// the staged file, replaces the source in place, or discards the result when
// it did not shrink. Safe for concurrent calls on distinct paths; staged names
// carry a uuid so parallel runs over same-named files never collide.
func (c *CLI) Optimize(ctx context.Context, sourcePath string, params Params) (Result, error) {
	if sourcePath == "" {
		return Result{}, errors.New("source path required")
	}
	start := time.Now()

	originalSize, err := fileutil.FileSize(sourcePath)
	if err != nil {
		return Result{}, fmt.Errorf("stat source: %w", err)
	}

	format := formatOf(sourcePath)
	if target := formatName(params.TargetFormat); target != "" && target != format {
		return Result{}, fmt.Errorf("conversion from %s to %s not supported", format, target)
	}

	stagedPath := stagePath(sourcePath, params.WorkDir)
	switch format {
	case "png":
		err = c.runOxipng(ctx, sourcePath, stagedPath, params.PNGLevel)
	case "jpg":
		err = c.runJpegoptim(ctx, sourcePath, stagedPath, params.JPEGQuality)
	default:
		return Result{}, fmt.Errorf("unsupported file format %q", filepath.Ext(sourcePath))
	}
	if err != nil {
		_ = os.Remove(stagedPath)
		return Result{}, err
	}

	newSize, err := fileutil.FileSize(stagedPath)
	if err != nil {
		return Result{}, fmt.Errorf("stat staged output: %w", err)
	}

	// No gain: keep the original untouched and report the skip.
	if newSize >= originalSize {
		_ = os.Remove(stagedPath)
		return Result{
			OriginalSize: originalSize,
			NewSize:      originalSize,
			OutputPath:   sourcePath,
			Skipped:      true,
			Duration:     time.Since(start),
		}, nil
	}

	outputPath := stagedPath
	if params.Overwrite {
		if err := fileutil.ReplaceFile(stagedPath, sourcePath); err != nil {
			return Result{}, err
		}
		outputPath = sourcePath
	}

	return Result{
		OriginalSize: originalSize,
		NewSize:      newSize,
		SavedBytes:   originalSize - newSize,
		OutputPath:   outputPath,
		Duration:     time.Since(start),
	}, nil
}

func (c *CLI) runOxipng(ctx context.Context, source, staged string, level int) error {
	if level < 0 || level > 6 {
		level = 2
	}
	args := []string{"-o", strconv.Itoa(level), "--out", staged, source}
	cmd := commandContext(ctx, c.oxipng, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("oxipng failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (c *CLI) runJpegoptim(ctx context.Context, source, staged string, quality int) error {
	if quality < 1 || quality > 100 {
		quality = 80
	}
	out, err := os.Create(staged)
	if err != nil {
		return fmt.Errorf("create staged output: %w", err)
	}
	defer out.Close()

	var stderr bytes.Buffer
	args := []string{"-m" + strconv.Itoa(quality), "--stdout", source}
	cmd := commandContext(ctx, c.jpegoptim, args...) //nolint:gosec
	cmd.Stdout = out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("jpegoptim failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out.Close()
}

func stagePath(sourcePath, workDir string) string {
	if workDir == "" {
		workDir = os.TempDir()
	}
	base := filepath.Base(sourcePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(workDir, fmt.Sprintf("%s_%s%s", stem, uuid.NewString(), ext))
}

// formatOf normalizes a path's extension to its format family.
func formatOf(path string) string {
	return formatName(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

func formatName(ext string) string {
	switch strings.ToLower(ext) {
	case "jpg", "jpeg":
		return "jpg"
	default:
		return strings.ToLower(ext)
	}
}

var _ Client = (*CLI)(nil)
