package fetcher

import (
	"context"
	"fmt"
	"strconv"

	"hirafetch/pkg/checkpoint"
	"hirafetch/pkg/hira"
)

// ListFetcher pages through the hospital list endpoint
type ListFetcher struct {
	*driver
}

// NewListFetcher creates a list fetcher over exec
func NewListFetcher(exec hira.Executor, opts Options) *ListFetcher {
	return &ListFetcher{driver: newDriver(exec, opts, checkpoint.KindList)}
}

// FetchAll requests pages starting after the last checkpointed page until the
// reported total is collected, MaxResults is reached or a page comes back
// empty. base supplies the endpoint, filters and page size.
//
// On failure the partial Result is returned together with the error and the
// checkpoint is left in place with its error set.
func (f *ListFetcher) FetchAll(ctx context.Context, base hira.FetchRequest) (*Result, error) {
	state, resumed := f.start(ctx, listQuery(base))
	result := &Result{Resumed: resumed}

	if f.limitReached(state) || state.Complete() {
		f.truncate(state)
		f.complete(ctx, state)
		return f.finish(result, state), nil
	}

	for {
		page := state.NextCursor()
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("list fetch interrupted before page %d: %w", page, err)
			f.fail(ctx, state, err)
			return f.finish(result, state), err
		}

		resp, err := f.call(ctx, base.WithPage(page))
		if err != nil {
			err = fmt.Errorf("list fetch failed at page %d: %w", page, err)
			f.fail(ctx, state, err)
			return f.finish(result, state), err
		}

		state.TotalCount = resp.TotalCount
		if len(resp.Items) == 0 {
			if state.TotalCount > len(state.Items) {
				f.logger.WarnWithFields("Empty page before reported total", map[string]interface{}{
					"page":        page,
					"items":       len(state.Items),
					"total_count": state.TotalCount,
				})
			}
			break
		}

		state.Items = append(state.Items, resp.Items...)
		f.truncate(state)
		state.LastCursor = page
		result.Units++
		f.opts.Metrics.IncUnit(f.variant)
		f.opts.Metrics.AddRecords(f.variant, len(resp.Items))

		f.logger.DebugWithFields("Page accumulated", map[string]interface{}{
			"page":        page,
			"page_items":  len(resp.Items),
			"items":       len(state.Items),
			"total_count": state.TotalCount,
		})
		progress := f.progress(state, len(state.Items))

		if f.limitReached(state) || state.Complete() {
			break
		}
		// Without a total, a short page is the last one
		if state.TotalCount <= 0 && base.NumOfRows > 0 && len(resp.Items) < base.NumOfRows {
			break
		}

		f.periodic(ctx, state, result.Units, progress)
	}

	f.complete(ctx, state)
	return f.finish(result, state), nil
}

// truncate enforces both the reported total and MaxResults
func (f *ListFetcher) truncate(state *checkpoint.State) {
	limit := len(state.Items)
	if state.TotalCount > 0 && state.TotalCount < limit {
		limit = state.TotalCount
	}
	if f.opts.MaxResults > 0 && f.opts.MaxResults < limit {
		limit = f.opts.MaxResults
	}
	state.Items = state.Items[:limit]
}

func (f *ListFetcher) limitReached(state *checkpoint.State) bool {
	return f.opts.MaxResults > 0 && len(state.Items) >= f.opts.MaxResults
}

// listQuery identifies a list run: the filters sent and the page size, since
// the saved page cursor means nothing under another page size
func listQuery(base hira.FetchRequest) map[string]string {
	query := map[string]string{hira.ParamNumOfRows: strconv.Itoa(base.NumOfRows)}
	for k, v := range base.Filters {
		if v != "" {
			query[k] = v
		}
	}
	return query
}
