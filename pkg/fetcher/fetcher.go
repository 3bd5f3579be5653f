package fetcher

import (
	"context"
	"errors"
	"maps"
	"time"

	"hirafetch/pkg/checkpoint"
	errs "hirafetch/pkg/errors"
	"hirafetch/pkg/hira"
	"hirafetch/pkg/logger"
	"hirafetch/pkg/metrics"
	"hirafetch/pkg/models"
	"hirafetch/pkg/retry"
)

// Options configures a fetch run
type Options struct {
	// Retry wraps every API call; nil uses retry.DefaultConfig
	Retry *retry.Config
	// Store persists progress; nil disables checkpointing
	Store checkpoint.Store
	// Interval is the number of pages or rows between checkpoint saves.
	// Zero saves only on failure.
	Interval int
	// MaxResults caps the number of list items or detail rows; zero means all
	MaxResults int
	Logger     logger.Logger
	Metrics    *metrics.Collector
	// OnProgress is called after every completed page or row
	OnProgress func(logger.Progress)
}

// Result is the outcome of a fetch run
type Result struct {
	Items      []models.Record
	TotalCount int
	// Resumed is true when the run continued from a checkpoint
	Resumed bool
	// Units counts the pages or rows completed by this run
	Units int
	// Sentinels counts detail rows recorded without detail data
	Sentinels int
}

// driver holds what list and detail runs share: the checkpoint lifecycle,
// the retry wrapper and progress reporting
type driver struct {
	exec    hira.Executor
	opts    Options
	store   checkpoint.Store
	logger  logger.Logger
	variant string
	started time.Time
}

func newDriver(exec hira.Executor, opts Options, variant string) *driver {
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	if opts.Retry == nil {
		opts.Retry = retry.DefaultConfig()
	}
	store := opts.Store
	if store == nil {
		store = checkpoint.NopStore{}
	}
	return &driver{
		exec:    exec,
		opts:    opts,
		store:   store,
		logger:  opts.Logger.WithField("variant", variant),
		variant: variant,
	}
}

// start loads a checkpoint saved by the same kind of run over the same query,
// or returns a fresh state
func (d *driver) start(ctx context.Context, query map[string]string) (*checkpoint.State, bool) {
	d.started = time.Now()

	state, err := d.store.Load(ctx)
	if err != nil {
		d.logger.WarnWithFields("Failed to load checkpoint, starting fresh", map[string]interface{}{
			"location": d.store.Location(),
			"error":    err.Error(),
		})
		return checkpoint.NewState(d.variant, query), false
	}
	if state == nil {
		return checkpoint.NewState(d.variant, query), false
	}
	if state.Kind != d.variant {
		d.logger.WarnWithFields("Ignoring checkpoint of another kind", map[string]interface{}{
			"location": d.store.Location(),
			"kind":     state.Kind,
		})
		return checkpoint.NewState(d.variant, query), false
	}
	// Cursors only line up with the query that produced them
	if !maps.Equal(state.Query, query) {
		d.logger.WarnWithFields("Ignoring checkpoint saved for a different query", map[string]interface{}{
			"location": d.store.Location(),
			"saved":    state.Query,
			"current":  query,
		})
		return checkpoint.NewState(d.variant, query), false
	}

	state.Error = ""
	d.logger.InfoWithFields("Resuming from checkpoint", map[string]interface{}{
		"location":    d.store.Location(),
		"next_cursor": state.NextCursor(),
		"items":       len(state.Items),
		"total_count": state.TotalCount,
	})
	return state, true
}

// call runs one request through the retry policy
func (d *driver) call(ctx context.Context, req hira.FetchRequest) (*hira.Page, error) {
	cfg := d.opts.Retry.WithContext(ctx)
	onRetry := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		kind := "unknown"
		var apiErr *errs.Error
		if errors.As(err, &apiErr) {
			kind = string(apiErr.Kind)
		}
		d.opts.Metrics.IncRetry(kind)
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}
	}
	return retry.DoWithResult(func() (*hira.Page, error) {
		return d.exec.Execute(ctx, req)
	}, cfg)
}

// save writes the checkpoint. Failures are logged and never abort the run.
func (d *driver) save(ctx context.Context, state *checkpoint.State) {
	err := d.store.Save(context.WithoutCancel(ctx), state)
	d.opts.Metrics.IncCheckpointWrite(err)
	if err != nil {
		d.logger.WarnWithFields("Failed to save checkpoint", map[string]interface{}{
			"location": d.store.Location(),
			"error":    err.Error(),
		})
	}
}

// progress snapshots the run for the OnProgress hook and progress logs.
// done is measured in the same unit as state.TotalCount.
func (d *driver) progress(state *checkpoint.State, done int) logger.Progress {
	p := logger.Progress{
		Variant: d.variant,
		Done:    done,
		Total:   state.TotalCount,
		Elapsed: time.Since(d.started),
	}
	if d.opts.OnProgress != nil {
		d.opts.OnProgress(p)
	}
	return p
}

// periodic saves when this run has completed a multiple of Interval units
func (d *driver) periodic(ctx context.Context, state *checkpoint.State, units int, p logger.Progress) {
	if d.opts.Interval <= 0 || units%d.opts.Interval != 0 {
		return
	}
	d.save(ctx, state)
	logger.LogFetchProgress(d.logger, p)
}

// fail records the error in the checkpoint before handing it back
func (d *driver) fail(ctx context.Context, state *checkpoint.State, err error) {
	state.Error = err.Error()
	d.save(ctx, state)
	d.opts.Metrics.MarkRunFinished(d.variant, "failed")
	d.logger.ErrorWithFields("Fetch stopped, checkpoint kept for resume", map[string]interface{}{
		"location":    d.store.Location(),
		"last_cursor": state.LastCursor,
		"items":       len(state.Items),
		"error":       err.Error(),
	})
}

// complete removes the checkpoint after a clean run
func (d *driver) complete(ctx context.Context, state *checkpoint.State) {
	if err := d.store.Delete(context.WithoutCancel(ctx)); err != nil {
		d.logger.WarnWithFields("Failed to delete checkpoint", map[string]interface{}{
			"location": d.store.Location(),
			"error":    err.Error(),
		})
	}
	d.opts.Metrics.MarkRunFinished(d.variant, "completed")
	d.logger.InfoWithFields("Fetch completed", map[string]interface{}{
		"items":    len(state.Items),
		"total":    state.TotalCount,
		"duration": time.Since(d.started).Round(time.Millisecond).String(),
	})
}

// finish copies the accumulated state into result
func (d *driver) finish(result *Result, state *checkpoint.State) *Result {
	result.Items = state.Items
	if result.Items == nil {
		result.Items = []models.Record{}
	}
	result.TotalCount = state.TotalCount
	return result
}
