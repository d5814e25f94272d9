// Package runner drives one batch end to end: expand the drop roots, check
// the environment, dispatch the optimizations, aggregate the survivors, and
// deliver the result. It owns the run lock so two invocations can never
// interleave in-place writes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"pixpress/internal/aggregate"
	"pixpress/internal/archive"
	"pixpress/internal/batch"
	"pixpress/internal/config"
	"pixpress/internal/dispatch"
	"pixpress/internal/expand"
	"pixpress/internal/fileutil"
	"pixpress/internal/history"
	"pixpress/internal/logging"
	"pixpress/internal/preflight"
	"pixpress/internal/services/optimizer"
)

// ErrAlreadyRunning indicates another invocation holds the run lock.
var ErrAlreadyRunning = errors.New("another pixpress run is already in progress")

// Summary reports what one run did.
type Summary struct {
	BatchID     string
	Label       string
	Disposition string
	OutputPath  string
	TotalItems  int
	Succeeded   int
	Skipped     int
	Failed      int
	SavedBytes  int64
	Duration    time.Duration
	Items       []*batch.Item
}

// Runner executes batches against a fixed config.
type Runner struct {
	cfg       *config.Config
	logger    *slog.Logger
	optimizer optimizer.Client
	expander  *expand.Expander
	store     *history.Store
	chooser   DestinationChooser
}

// Option configures a Runner.
type Option func(*Runner)

// WithOptimizer swaps the optimizer client, used by tests to avoid the real
// binaries.
func WithOptimizer(client optimizer.Client) Option {
	return func(r *Runner) {
		if client != nil {
			r.optimizer = client
		}
	}
}

// WithHistory attaches a history store; runs are recorded and old entries
// pruned after each batch.
func WithHistory(store *history.Store) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithChooser overrides where deliverables land.
func WithChooser(chooser DestinationChooser) Option {
	return func(r *Runner) {
		if chooser != nil {
			r.chooser = chooser
		}
	}
}

// New constructs a Runner for the given config.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		logger: logging.WithComponent(logger, "runner"),
		optimizer: optimizer.NewCLI(
			optimizer.WithOxipngBinary(cfg.Optimize.OxipngBinary),
			optimizer.WithJpegoptimBinary(cfg.Optimize.JpegoptimBinary),
		),
		expander: expand.New(cfg, logger),
		chooser:  &DirChooser{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs one batch over the dropped roots. The returned Summary is
// valid even when err is non-nil for failures that happen after dispatch, so
// callers can still show per-item results.
func (r *Runner) Execute(ctx context.Context, roots []string) (*Summary, error) {
	if len(roots) == 0 {
		return nil, errors.New("no paths given")
	}
	start := time.Now()

	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(filepath.Join(r.cfg.Paths.WorkDir, "pixpress.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}
	defer func() {
		_ = lock.Unlock()
	}()

	files := r.expander.Expand(roots)
	if len(files) == 0 {
		return nil, errors.New("no supported files found under the given paths")
	}

	b := batch.New(roots, files)
	logger := r.logger
	if logger != nil {
		logger = logger.With(slog.String(logging.FieldBatchID, b.ID))
		logger.Info("batch started",
			slog.String("label", b.Label),
			slog.Int("items", len(files)),
			slog.Int("concurrency", r.cfg.Optimize.Concurrency))
	}

	if err := r.preflight(b, files); err != nil {
		return nil, err
	}

	params := optimizer.Params{
		Overwrite:    r.cfg.Optimize.Overwrite,
		TargetFormat: r.cfg.Optimize.TargetFormat,
		JPEGQuality:  r.cfg.Optimize.JPEGQuality,
		PNGLevel:     r.cfg.Optimize.PNGLevel,
		WorkDir:      r.cfg.Paths.WorkDir,
	}
	transform := func(ctx context.Context, sourcePath string) (batch.Outcome, error) {
		result, err := r.optimizer.Optimize(ctx, sourcePath, params)
		if err != nil {
			return batch.Outcome{}, err
		}
		return batch.Outcome{
			OriginalSize: result.OriginalSize,
			NewSize:      result.NewSize,
			SavedBytes:   result.SavedBytes,
			OutputPath:   result.OutputPath,
			Skipped:      result.Skipped,
			Duration:     result.Duration,
		}, nil
	}

	successes := dispatch.New(b.Tracker(), r.logger).
		Run(ctx, b.Items(), r.cfg.Optimize.Concurrency, transform)

	summary := r.summarize(b, start)

	var deliverErr error
	if r.cfg.Optimize.Overwrite {
		summary.Disposition = "in-place"
	} else {
		summary.Disposition, summary.OutputPath, deliverErr = r.deliver(b, successes)
	}
	summary.Duration = time.Since(start)

	r.record(ctx, b, summary)

	if logger != nil {
		logger.Info("batch finished",
			slog.String("disposition", summary.Disposition),
			slog.Int("succeeded", summary.Succeeded),
			slog.Int("skipped", summary.Skipped),
			slog.Int("failed", summary.Failed),
			slog.Int64("saved_bytes", summary.SavedBytes))
	}
	return summary, deliverErr
}

// preflight verifies directories, binaries, and work-dir headroom before any
// item starts.
func (r *Runner) preflight(b *batch.Batch, files []string) error {
	results := preflight.RunAll(r.cfg)

	var totalSize uint64
	for _, file := range files {
		if size, err := fileutil.FileSize(file); err == nil && size > 0 {
			totalSize += uint64(size)
		}
	}
	results = append(results, preflight.CheckFreeSpace("Work directory space", r.cfg.Paths.WorkDir, totalSize))

	if !r.cfg.Optimize.Overwrite {
		results = append(results, preflight.CheckDirectoryAccess("Destination", r.chooser.DestDir(b)))
	}

	failed := preflight.Failures(results)
	if len(failed) == 0 {
		return nil
	}
	details := make([]string, 0, len(failed))
	for _, f := range failed {
		details = append(details, fmt.Sprintf("%s: %s", f.Name, f.Detail))
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(details, "; "))
}

// deliver packages the successful outputs. Per-item states are already final
// here; a packaging failure is reported once at batch level and never touches
// them. A declined destination leaves the staged outputs where they are.
func (r *Runner) deliver(b *batch.Batch, successes map[string]batch.Outcome) (string, string, error) {
	d := aggregate.Aggregate(b, successes)
	switch d.Kind {
	case aggregate.KindEmpty:
		return string(d.Kind), "", nil

	case aggregate.KindSingle:
		dest, ok, err := r.chooser.Choose(b, d)
		if err != nil {
			return string(d.Kind), "", err
		}
		if !ok {
			return "cancelled", "", nil
		}
		if err := fileutil.ReplaceFile(d.OutputPath, dest); err != nil {
			return string(d.Kind), "", fmt.Errorf("save output: %w", err)
		}
		return string(d.Kind), dest, nil

	case aggregate.KindArchive:
		dest, ok, err := r.chooser.Choose(b, d)
		if err != nil {
			return string(d.Kind), "", err
		}
		if !ok {
			return "cancelled", "", nil
		}
		if err := archive.WriteZip(dest, d.Pairs); err != nil {
			return string(d.Kind), "", fmt.Errorf("write archive: %w", err)
		}
		for _, pair := range d.Pairs {
			_ = os.Remove(pair.SourcePath)
		}
		return string(d.Kind), dest, nil
	}
	return string(d.Kind), "", fmt.Errorf("unknown disposition %q", d.Kind)
}

func (r *Runner) summarize(b *batch.Batch, start time.Time) *Summary {
	summary := &Summary{
		BatchID: b.ID,
		Label:   b.Label,
		Items:   b.Items(),
	}
	for _, item := range summary.Items {
		summary.TotalItems++
		switch {
		case item.State == batch.StateError:
			summary.Failed++
		case item.State == batch.StateDone && item.Outcome != nil && item.Outcome.Skipped:
			summary.Skipped++
		case item.State == batch.StateDone:
			summary.Succeeded++
			if item.Outcome != nil {
				summary.SavedBytes += item.Outcome.SavedBytes
			}
		}
	}
	summary.Duration = time.Since(start)
	return summary
}

// record persists the finished batch to history. Failures here are logged and
// swallowed; a bookkeeping problem must not fail an otherwise good run.
func (r *Runner) record(ctx context.Context, b *batch.Batch, summary *Summary) {
	if r.store == nil || !r.cfg.History.Enabled {
		return
	}

	rec := history.BatchRecord{
		ID:          b.ID,
		Label:       b.Label,
		Roots:       b.Roots,
		Disposition: summary.Disposition,
		OutputPath:  summary.OutputPath,
		TotalItems:  summary.TotalItems,
		Succeeded:   summary.Succeeded,
		Skipped:     summary.Skipped,
		Failed:      summary.Failed,
		SavedBytes:  summary.SavedBytes,
		CreatedAt:   b.CreatedAt,
		FinishedAt:  time.Now().UTC(),
	}
	items := make([]history.ItemRecord, 0, len(summary.Items))
	for _, item := range summary.Items {
		ir := history.ItemRecord{
			BatchID:    b.ID,
			SourcePath: item.SourcePath,
			State:      string(item.State),
			Failure:    item.Failure,
		}
		if item.Outcome != nil {
			ir.OriginalSize = item.Outcome.OriginalSize
			ir.NewSize = item.Outcome.NewSize
			ir.SavedBytes = item.Outcome.SavedBytes
			ir.OutputPath = item.Outcome.OutputPath
			ir.Skipped = item.Outcome.Skipped
			ir.Duration = item.Outcome.Duration
		}
		items = append(items, ir)
	}

	if err := r.store.RecordBatch(ctx, rec, items); err != nil {
		if r.logger != nil {
			r.logger.Warn("record history failed",
				slog.String(logging.FieldBatchID, b.ID),
				slog.Any(logging.FieldError, err))
		}
		return
	}
	if removed, err := r.store.Prune(ctx, r.cfg.History.RetentionDays); err != nil {
		if r.logger != nil {
			r.logger.Warn("prune history failed", slog.Any(logging.FieldError, err))
		}
	} else if removed > 0 && r.logger != nil {
		r.logger.Debug("pruned history", slog.Int64("batches", removed))
	}
}
