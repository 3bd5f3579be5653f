// Package retry runs an operation up to a bounded number of attempts, waiting
// with exponential backoff between them.
//
// Only errors whose kind is retryable (timeouts, connection failures and
// transient server responses) are retried. Everything else, including context
// cancellation, ends the loop at once.
//
//	page, err := retry.DoWithResult(func() (*hira.Page, error) {
//		return client.Execute(ctx, req)
//	}, retry.FromSettings(ctx, cfg.Retry, log))
//
// The wait before attempt n is BaseDelay * 2^(n-2) with no jitter, and the
// Sleep hook can be replaced so tests observe the exact sequence.
package retry
