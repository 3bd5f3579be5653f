package fetcher

import (
	"context"
	"fmt"
	"strconv"

	"hirafetch/pkg/checkpoint"
	"hirafetch/pkg/hira"
	"hirafetch/pkg/models"
	"hirafetch/pkg/ratelimit"
)

// DetailInput is the table a detail run walks, one API call per row
type DetailInput struct {
	Rows []models.Record
	// KeyColumn holds the institution code sent as ykiho
	KeyColumn string
	// NameColumn and AddrColumn are copied onto every output record; either may be empty
	NameColumn string
	AddrColumn string
	// Source names where Rows came from, usually the input file path. A
	// checkpoint is only resumed by a run over the same source.
	Source string
}

// DetailFetcher requests detail information for each input row
type DetailFetcher struct {
	*driver
	baseURL string
	mode    hira.AuthMode
	limiter ratelimit.Limiter
}

// NewDetailFetcher creates a detail fetcher. limiter paces consecutive calls;
// nil means no pause.
func NewDetailFetcher(exec hira.Executor, baseURL string, mode hira.AuthMode, limiter ratelimit.Limiter, opts Options) *DetailFetcher {
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	return &DetailFetcher{
		driver:  newDriver(exec, opts, checkpoint.KindDetail),
		baseURL: baseURL,
		mode:    mode,
		limiter: limiter,
	}
}

// FetchAll walks the rows after the last checkpointed index. A row whose call
// fails, returns nothing or has no code is kept as a no_detail record and the
// run moves on. Only cancellation stops the run early, in which case the
// partial Result is returned with the error and the checkpoint is kept.
func (f *DetailFetcher) FetchAll(ctx context.Context, in DetailInput) (*Result, error) {
	total := len(in.Rows)
	if f.opts.MaxResults > 0 && f.opts.MaxResults < total {
		total = f.opts.MaxResults
	}

	state, resumed := f.start(ctx, detailQuery(in))
	state.TotalCount = total
	result := &Result{Resumed: resumed}

	for idx := state.NextCursor(); idx < total; idx++ {
		row := in.Rows[idx]
		key := row.String(in.KeyColumn)
		name := row.String(in.NameColumn)
		addr := row.String(in.AddrColumn)

		var records []models.Record
		if key == "" {
			f.logger.WarnWithFields("Row has no institution code", map[string]interface{}{
				"row":  idx,
				"name": name,
			})
			records = []models.Record{sentinel(key, name, addr, "missing institution code")}
		} else {
			if err := f.limiter.Wait(ctx); err != nil {
				err = fmt.Errorf("detail fetch interrupted at row %d: %w", idx, err)
				f.fail(ctx, state, err)
				return f.finish(result, state), err
			}

			page, err := f.call(ctx, hira.NewDetailRequest(f.baseURL, f.mode, key))
			switch {
			case err != nil && ctx.Err() != nil:
				err = fmt.Errorf("detail fetch interrupted at row %d: %w", idx, err)
				f.fail(ctx, state, err)
				return f.finish(result, state), err
			case err != nil:
				f.logger.WarnWithFields("Detail request failed, recording no_detail", map[string]interface{}{
					"row":   idx,
					"ykiho": key,
					"error": err.Error(),
				})
				records = []models.Record{sentinel(key, name, addr, err.Error())}
			case len(page.Items) == 0:
				f.logger.DebugWithFields("No detail for institution", map[string]interface{}{
					"row":   idx,
					"ykiho": key,
				})
				records = []models.Record{sentinel(key, name, addr, "")}
			default:
				records = annotate(page.Items, key, name, addr)
			}
		}

		if records[0][models.FieldDetailStatus] == models.DetailStatusNoDetail {
			result.Sentinels++
			f.opts.Metrics.IncSentinel()
		}
		state.Items = append(state.Items, records...)
		state.LastCursor = idx
		result.Units++
		f.opts.Metrics.IncUnit(f.variant)
		f.opts.Metrics.AddRecords(f.variant, len(records))

		f.periodic(ctx, state, result.Units, f.progress(state, state.NextCursor()))
	}

	f.complete(ctx, state)
	return f.finish(result, state), nil
}

// annotate marks detail items as found and attaches the source row identity
func annotate(items []models.Record, key, name, addr string) []models.Record {
	out := make([]models.Record, 0, len(items))
	for _, item := range items {
		rec := item.Clone()
		if rec.String(models.FieldYkiho) == "" {
			rec[models.FieldYkiho] = key
		}
		rec[models.FieldSourceName] = name
		rec[models.FieldSourceAddr] = addr
		rec[models.FieldDetailStatus] = models.DetailStatusOK
		out = append(out, rec)
	}
	return out
}

// sentinel is the placeholder kept for a row without detail data
func sentinel(key, name, addr, reason string) models.Record {
	rec := models.Record{
		models.FieldYkiho:        key,
		models.FieldSourceName:   name,
		models.FieldSourceAddr:   addr,
		models.FieldDetailStatus: models.DetailStatusNoDetail,
	}
	if reason != "" {
		rec[models.FieldDetailError] = reason
	}
	return rec
}

// detailQuery identifies a detail run by its input. MaxResults is left out so a
// rerun with a higher limit continues where the last one stopped.
func detailQuery(in DetailInput) map[string]string {
	query := map[string]string{
		"key_column": in.KeyColumn,
		"rows":       strconv.Itoa(len(in.Rows)),
	}
	if in.Source != "" {
		query["source"] = in.Source
	}
	return query
}
