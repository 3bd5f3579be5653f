package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	mock "hirafetch/internal/testutil"
	"hirafetch/pkg/checkpoint"
	"hirafetch/pkg/hira"
	"hirafetch/pkg/logger"
	"hirafetch/pkg/models"
	"hirafetch/pkg/retry"
)

// recordingSleeper captures retry waits without sleeping
type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

// countingStore wraps a store and counts saves
type countingStore struct {
	checkpoint.Store
	saves int
}

func (c *countingStore) Save(ctx context.Context, state *checkpoint.State) error {
	c.saves++
	return c.Store.Save(ctx, state)
}

type harness struct {
	api     *mock.MockAPI
	client  *hira.Client
	sleeper *recordingSleeper
	store   *checkpoint.FileStore
	path    string
	log     *logger.TestLogger
}

func newHarness(t *testing.T, hospitals int) *harness {
	t.Helper()
	log := logger.NewTestLogger()
	api := mock.NewMockAPI(hospitals)
	t.Cleanup(api.Close)

	path := filepath.Join(t.TempDir(), checkpoint.FileName("test"))
	return &harness{
		api:     api,
		client:  hira.NewClient("test-key", time.Second, 5*time.Second, log),
		sleeper: &recordingSleeper{},
		store:   checkpoint.NewFileStore(path, log),
		path:    path,
		log:     log,
	}
}

func (h *harness) options(maxAttempts int) Options {
	return Options{
		Retry: &retry.Config{
			MaxAttempts: maxAttempts,
			Backoff:     &retry.ExponentialBackoff{BaseDelay: time.Second, Multiplier: 2},
			RetryIf:     retry.DefaultRetryIf,
			Sleep:       h.sleeper.sleep,
			Logger:      h.log,
		},
		Store:    h.store,
		Interval: 1,
		Logger:   h.log,
	}
}

func (h *harness) checkpointExists() bool {
	_, err := os.Stat(h.path)
	return err == nil
}

func (h *harness) loadCheckpoint(t *testing.T) *checkpoint.State {
	t.Helper()
	state, err := h.store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, state, "expected a checkpoint at %s", h.path)
	return state
}

// hospitalRows converts generated hospitals into input rows
func hospitalRows(n int) []models.Record {
	rows := make([]models.Record, n)
	for i, h := range mock.GenerateHospitals(n) {
		rows[i] = models.Record(h)
	}
	return rows
}
