package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"pixpress/internal/batch"
	"pixpress/internal/logging"
)

// TransformFunc runs the per-item transformation for one source path. It must
// be safe to call concurrently for different paths.
type TransformFunc func(ctx context.Context, sourcePath string) (batch.Outcome, error)

// Dispatcher drains a batch through a bounded worker pool. Workers claim items
// from a shared cursor, so fast items never leave a worker idle while slow
// items hold their slot.
type Dispatcher struct {
	tracker *batch.Tracker
	logger  *slog.Logger
}

// New constructs a dispatcher bound to the tracker that owns the items.
func New(tracker *batch.Tracker, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		tracker: tracker,
		logger:  logging.WithComponent(logger, "dispatch"),
	}
}

// Run processes every item to a terminal state and returns the outcomes of
// items that completed successfully without being skipped, keyed by item id.
//
// Failures are isolated per item: one item's error never cancels or blocks its
// siblings. Run returns only once every item is Done or Error. A non-positive
// limit or an empty item list returns an empty map without spawning workers.
//
// Cancelling ctx is cooperative: items already claimed finish normally, items
// not yet claimed are driven through Active to Error with a cancellation
// failure so the batch still ends with every item terminal.
func (d *Dispatcher) Run(ctx context.Context, items []*batch.Item, limit int, transform TransformFunc) map[string]batch.Outcome {
	successes := make(map[string]batch.Outcome)
	if limit <= 0 || len(items) == 0 {
		return successes
	}

	workers := limit
	if workers > len(items) {
		workers = len(items)
	}

	var (
		cursor atomic.Int64
		mu     sync.Mutex
		wg     sync.WaitGroup
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx := int(cursor.Add(1)) - 1
				if idx >= len(items) {
					return
				}
				item := items[idx]
				d.tracker.MarkActive(item.ID)

				if err := ctx.Err(); err != nil {
					d.tracker.MarkError(item.ID, "cancelled: "+err.Error())
					continue
				}

				outcome, err := transform(ctx, item.SourcePath)
				if err != nil {
					d.tracker.MarkError(item.ID, err.Error())
					if d.logger != nil {
						d.logger.Warn("item failed",
							slog.String(logging.FieldItemID, item.ID),
							slog.String(logging.FieldSource, item.SourcePath),
							slog.Any(logging.FieldError, err))
					}
					continue
				}

				d.tracker.MarkDone(item.ID, outcome)
				if d.logger != nil {
					d.logger.Debug("item done",
						slog.String(logging.FieldItemID, item.ID),
						slog.String(logging.FieldSource, item.SourcePath),
						slog.Bool("skipped", outcome.Skipped),
						slog.Int64("saved_bytes", outcome.SavedBytes))
				}
				if outcome.Skipped {
					continue
				}
				mu.Lock()
				successes[item.ID] = outcome
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return successes
}
