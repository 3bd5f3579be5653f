package fetcher

import (
	"context"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mock "hirafetch/internal/testutil"
	"hirafetch/pkg/checkpoint"
	"hirafetch/pkg/hira"
	"hirafetch/pkg/logger"
	"hirafetch/pkg/metrics"
	"hirafetch/pkg/models"
)

// countingLimiter counts waits and can cancel the run on a given call
type countingLimiter struct {
	calls    int
	cancelAt int
	cancel   context.CancelFunc
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.calls++
	if l.cancelAt > 0 && l.calls == l.cancelAt {
		l.cancel()
	}
	return ctx.Err()
}

func detailInput(rows []models.Record) DetailInput {
	return DetailInput{Rows: rows, KeyColumn: "ykiho", NameColumn: "yadmNm", AddrColumn: "addr"}
}

func newDetailFetcher(h *harness, limiter *countingLimiter, opts Options) *DetailFetcher {
	return NewDetailFetcher(h.client, h.api.DetailURL(), hira.KeyInURL, limiter, opts)
}

func statuses(items []models.Record) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.String(models.FieldDetailStatus)
	}
	return out
}

func TestDetailFetchIsolatesRowFailures(t *testing.T) {
	h := newHarness(t, 5)
	h.api.FailDetail(mock.Ykiho(2), mock.Fault{Status: 400, Times: -1})
	limiter := &countingLimiter{}

	result, err := newDetailFetcher(h, limiter, h.options(3)).FetchAll(context.Background(), detailInput(hospitalRows(5)))
	require.NoError(t, err, "a failing row does not abort the run")

	require.Len(t, result.Items, 5)
	assert.Equal(t, []string{"ok", "ok", "no_detail", "ok", "ok"}, statuses(result.Items))
	assert.Equal(t, 1, result.Sentinels)
	assert.Equal(t, 5, result.Units)

	failed := result.Items[2]
	assert.Equal(t, mock.Ykiho(2), failed.String(models.FieldYkiho))
	assert.Equal(t, "테스트병원3", failed.String(models.FieldSourceName))
	assert.Contains(t, failed.String(models.FieldDetailError), "400")

	ok := result.Items[0]
	assert.Equal(t, "테스트병원1", ok.String(models.FieldSourceName))
	assert.Equal(t, "서울특별시 강남구 테헤란로 1", ok.String(models.FieldSourceAddr))
	assert.Equal(t, "3", ok.String("parkQty"))

	assert.Equal(t, 5, h.api.DetailCalls())
	assert.Equal(t, 5, limiter.calls)
	assert.False(t, h.checkpointExists())
}

func TestDetailFetchRetriesTransientFailures(t *testing.T) {
	h := newHarness(t, 3)
	h.api.FailDetail(mock.Ykiho(1), mock.Fault{Status: 503, Times: 2})

	result, err := newDetailFetcher(h, &countingLimiter{}, h.options(3)).FetchAll(context.Background(), detailInput(hospitalRows(3)))
	require.NoError(t, err)

	assert.Equal(t, []string{"ok", "ok", "ok"}, statuses(result.Items))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, h.sleeper.waits)
	assert.Equal(t, 5, h.api.DetailCalls())
}

func TestDetailFetchExhaustedRetriesBecomeSentinel(t *testing.T) {
	h := newHarness(t, 2)
	h.api.FailDetail(mock.Ykiho(0), mock.Fault{Status: 503, Times: -1})

	result, err := newDetailFetcher(h, &countingLimiter{}, h.options(2)).FetchAll(context.Background(), detailInput(hospitalRows(2)))
	require.NoError(t, err)

	assert.Equal(t, []string{"no_detail", "ok"}, statuses(result.Items))
	assert.Contains(t, result.Items[0].String(models.FieldDetailError), "max retry attempts (2) exceeded")
}

func TestDetailFetchEmptyDetailAndMissingKey(t *testing.T) {
	h := newHarness(t, 3)
	h.api.EmptyDetail(mock.Ykiho(0))
	rows := hospitalRows(3)
	delete(rows[1], "ykiho")
	limiter := &countingLimiter{}

	result, err := newDetailFetcher(h, limiter, h.options(3)).FetchAll(context.Background(), detailInput(rows))
	require.NoError(t, err)

	assert.Equal(t, []string{"no_detail", "no_detail", "ok"}, statuses(result.Items))
	assert.Equal(t, 2, result.Sentinels)
	_, hasError := result.Items[0][models.FieldDetailError]
	assert.False(t, hasError, "an empty answer is not an error")
	assert.Equal(t, "missing institution code", result.Items[1].String(models.FieldDetailError))
	assert.Equal(t, "테스트병원2", result.Items[1].String(models.FieldSourceName))
	assert.Equal(t, 2, h.api.DetailCalls(), "rows without a code make no request")
	assert.Equal(t, 2, limiter.calls)
}

func TestDetailFetchMaxResults(t *testing.T) {
	h := newHarness(t, 5)
	opts := h.options(3)
	opts.MaxResults = 3

	result, err := newDetailFetcher(h, &countingLimiter{}, opts).FetchAll(context.Background(), detailInput(hospitalRows(5)))
	require.NoError(t, err)
	assert.Len(t, result.Items, 3)
	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, 3, h.api.DetailCalls())
}

func TestDetailFetchResumesAfterLastIndex(t *testing.T) {
	h := newHarness(t, 5)

	saved := checkpoint.NewState(checkpoint.KindDetail, detailQuery(detailInput(hospitalRows(5))))
	saved.LastCursor = 1
	saved.TotalCount = 5
	saved.Items = []models.Record{
		{"ykiho": mock.Ykiho(0), "restored": "yes", models.FieldDetailStatus: "ok"},
		{"ykiho": mock.Ykiho(1), "restored": "yes", models.FieldDetailStatus: "ok"},
	}
	require.NoError(t, h.store.Save(context.Background(), saved))

	result, err := newDetailFetcher(h, &countingLimiter{}, h.options(3)).FetchAll(context.Background(), detailInput(hospitalRows(5)))
	require.NoError(t, err)

	assert.True(t, result.Resumed)
	require.Len(t, result.Items, 5)
	assert.Equal(t, "yes", result.Items[1].String("restored"))
	assert.Equal(t, mock.Ykiho(2), result.Items[2].String(models.FieldYkiho))
	assert.Equal(t, 3, h.api.DetailCalls())
	assert.Equal(t, 3, result.Units)
}

func TestDetailFetchRestartsForDifferentSource(t *testing.T) {
	h := newHarness(t, 5)

	other := detailInput(hospitalRows(5))
	other.Source = "/data/busan.csv"
	saved := checkpoint.NewState(checkpoint.KindDetail, detailQuery(other))
	saved.LastCursor = 2
	saved.TotalCount = 5
	saved.Items = []models.Record{{"ykiho": "BUSAN"}, {"ykiho": "BUSAN"}, {"ykiho": "BUSAN"}}
	require.NoError(t, h.store.Save(context.Background(), saved))

	in := detailInput(hospitalRows(5))
	in.Source = "/data/seoul.csv"
	result, err := newDetailFetcher(h, &countingLimiter{}, h.options(3)).FetchAll(context.Background(), in)
	require.NoError(t, err)

	assert.False(t, result.Resumed)
	require.Len(t, result.Items, 5)
	assert.Equal(t, mock.Ykiho(0), result.Items[0].String(models.FieldYkiho))
	assert.Equal(t, 5, h.api.DetailCalls())
}

func TestDetailQueryIdentifiesInput(t *testing.T) {
	in := detailInput(hospitalRows(4))
	in.Source = "/data/seoul.csv"

	assert.Equal(t, map[string]string{
		"key_column": "ykiho",
		"rows":       "4",
		"source":     "/data/seoul.csv",
	}, detailQuery(in))
}

func TestDetailFetchCompletedCheckpointMakesNoCalls(t *testing.T) {
	h := newHarness(t, 2)

	saved := checkpoint.NewState(checkpoint.KindDetail, detailQuery(detailInput(hospitalRows(2))))
	saved.LastCursor = 1
	saved.TotalCount = 2
	saved.Items = []models.Record{{"a": "1"}, {"b": "2"}, {"c": "3"}}
	require.NoError(t, h.store.Save(context.Background(), saved))

	result, err := newDetailFetcher(h, &countingLimiter{}, h.options(3)).FetchAll(context.Background(), detailInput(hospitalRows(2)))
	require.NoError(t, err)
	assert.Len(t, result.Items, 3, "one row may expand to several items")
	assert.Zero(t, h.api.DetailCalls())
	assert.False(t, h.checkpointExists())
}

func TestDetailFetchCancellationKeepsCheckpoint(t *testing.T) {
	h := newHarness(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter := &countingLimiter{cancelAt: 3, cancel: cancel}

	result, err := newDetailFetcher(h, limiter, h.options(3)).FetchAll(ctx, detailInput(hospitalRows(5)))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "row 2")
	assert.Len(t, result.Items, 2)

	state := h.loadCheckpoint(t)
	assert.Equal(t, checkpoint.KindDetail, state.Kind)
	assert.Equal(t, 1, state.LastCursor)
	assert.Equal(t, 5, state.TotalCount)
	assert.Len(t, state.Items, 2)
	assert.NotEmpty(t, state.Error)
	assert.Equal(t, "ykiho", state.Query["key_column"])
}

func TestDetailFetchCheckpointInterval(t *testing.T) {
	h := newHarness(t, 5)
	store := &countingStore{Store: h.store}
	opts := h.options(3)
	opts.Store = store
	opts.Interval = 2

	_, err := newDetailFetcher(h, &countingLimiter{}, opts).FetchAll(context.Background(), detailInput(hospitalRows(5)))
	require.NoError(t, err)
	assert.Equal(t, 2, store.saves)
	assert.False(t, h.checkpointExists())
}

func TestDetailFetchRecordsSentinelMetric(t *testing.T) {
	h := newHarness(t, 3)
	h.api.EmptyDetail(mock.Ykiho(1))
	m := metrics.New()
	opts := h.options(3)
	opts.Metrics = m

	_, err := newDetailFetcher(h, &countingLimiter{}, opts).FetchAll(context.Background(), detailInput(hospitalRows(3)))
	require.NoError(t, err)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Sentinels))
	assert.Equal(t, 3.0, promtest.ToFloat64(m.Units.WithLabelValues(checkpoint.KindDetail)))
}

func TestDetailFetchWithoutStoreOrLimiter(t *testing.T) {
	h := newHarness(t, 2)
	opts := h.options(3)
	opts.Store = nil

	f := NewDetailFetcher(h.client, h.api.DetailURL(), hira.KeyInQuery, nil, opts)
	result, err := f.FetchAll(context.Background(), detailInput(hospitalRows(2)))
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, mock.Ykiho(1), h.api.LastQuery().Get("ykiho"))
}

func TestDetailFetchReportsProgress(t *testing.T) {
	h := newHarness(t, 3)
	var done []int
	opts := h.options(3)
	opts.OnProgress = func(p logger.Progress) {
		assert.Equal(t, 3, p.Total)
		done = append(done, p.Done)
	}

	_, err := newDetailFetcher(h, &countingLimiter{}, opts).FetchAll(context.Background(), detailInput(hospitalRows(3)))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, done)
}
