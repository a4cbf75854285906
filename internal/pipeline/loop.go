package pipeline

import (
	"context"
	"log/slog"
)

// Options control one invocation of a stage.
type Options struct {
	// SkipExisting drops items that already have this stage's output. This
	// is the idempotency mode: re-running is strictly additive, and failed
	// items are naturally retried because they never produced the row the
	// check looks for.
	SkipExisting bool
	// Limit caps how many eligible items are processed, applied after the
	// skip filter. Zero means no limit.
	Limit int
}

// Tally is the per-invocation summary reported at the end of every run.
type Tally struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
}

// Item is one unit of stage work. Key identifies the source document in logs
// and failure reports; Done reports whether the stage already has output for
// it; Work carries the stage-specific payload.
type Item[T any] struct {
	Key  string
	Done bool
	Work T
}

// Stage is one pass of the pipeline, driven by Run.
type Stage[T any] interface {
	Name() string
	// Select resolves the stage's base-precondition item set in stable
	// order. Done items are filtered by the loop, not by the query, so the
	// tally can report them as skipped.
	Select(ctx context.Context) ([]Item[T], error)
	// Process runs the extraction for one item and commits its rows. A
	// returned error is a per-item fault; prior commits stay put.
	Process(ctx context.Context, item Item[T]) error
}

// Run drives a stage over its item set, strictly one item at a time. Each
// item commits (or fails) independently: an interrupted run leaves only
// fully-committed items processed, and a later run with SkipExisting picks up
// exactly the remainder. Select errors are setup faults and abort the run;
// Process errors are logged, counted, and skipped over.
func Run[T any](ctx context.Context, stage Stage[T], opts Options, logger *slog.Logger) (Tally, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var tally Tally

	items, err := stage.Select(ctx)
	if err != nil {
		return tally, err
	}

	eligible := make([]Item[T], 0, len(items))
	for _, it := range items {
		if opts.SkipExisting && it.Done {
			tally.Skipped++
			logger.Debug("pipeline.item.skipped", "stage", stage.Name(), "key", it.Key)
			continue
		}
		eligible = append(eligible, it)
	}
	if opts.Limit > 0 && len(eligible) > opts.Limit {
		logger.Info("pipeline.limit.applied", "stage", stage.Name(), "limit", opts.Limit, "eligible", len(eligible))
		eligible = eligible[:opts.Limit]
	}

	logger.Info("pipeline.run.start",
		"stage", stage.Name(),
		"eligible", len(eligible),
		"skipped", tally.Skipped,
		"skip_existing", opts.SkipExisting,
	)

	for _, it := range eligible {
		if err := ctx.Err(); err != nil {
			// external interrupt; committed items stay committed
			logger.Warn("pipeline.run.interrupted", "stage", stage.Name(), "error", err)
			return tally, err
		}
		tally.Attempted++
		if err := stage.Process(ctx, it); err != nil {
			tally.Failed++
			logger.Error("pipeline.item.failed", "stage", stage.Name(), "key", it.Key, "error", err)
			continue
		}
		tally.Succeeded++
	}

	logger.Info("pipeline.run.done",
		"stage", stage.Name(),
		"attempted", tally.Attempted,
		"succeeded", tally.Succeeded,
		"failed", tally.Failed,
		"skipped", tally.Skipped,
	)
	return tally, nil
}
