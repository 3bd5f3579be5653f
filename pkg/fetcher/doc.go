// Package fetcher drives paginated downloads from the HIRA hospital APIs with
// checkpoint and resume.
//
// A run moves through the same states for both variants: it loads any
// checkpoint left by an earlier run, fetches the next page or row through the
// retry policy, accumulates the records and saves a checkpoint every Interval
// units. A clean finish deletes the checkpoint. A failure saves it with the
// error recorded and returns the partial result alongside the error.
//
// ListFetcher walks pages of the list endpoint until the reported totalCount
// (or MaxResults) is collected. Any page that still fails after retries ends
// the run.
//
// DetailFetcher calls the detail endpoint once per input row. A row that
// fails is kept as a no_detail record and the run continues; only
// cancellation ends it early.
//
//	lf := fetcher.NewListFetcher(client, fetcher.Options{
//		Retry:    retry.FromSettings(ctx, cfg.Retry, log),
//		Store:    store,
//		Interval: cfg.Checkpoint.Interval,
//	})
//	result, err := lf.FetchAll(ctx, hira.NewListRequest(cfg.API.ListURL, hira.KeyInURL, filters, 100))
package fetcher
