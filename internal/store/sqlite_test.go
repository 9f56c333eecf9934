package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/capstruct/internal/model"
	"github.com/sells-group/capstruct/pkg/marketcap"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// --- Jobs ---

func TestSQLite_CreateAndGetJob(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateJob(ctx, "AAP")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, model.JobStatusQueued, created.Status)

	got, err := st.GetJob(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "AAP", got.Ticker)
	assert.Equal(t, model.JobStatusQueued, got.Status)
	assert.Nil(t, got.Result)
	assert.Empty(t, got.Error)
}

func TestSQLite_GetJob_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetJob(context.Background(), "no-such-job")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_UpdateJobStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateJob(ctx, "AAP")
	require.NoError(t, err)

	require.NoError(t, st.UpdateJobStatus(ctx, created.ID, model.JobStatusRunning))

	got, err := st.GetJob(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, got.Status)
}

func TestSQLite_UpdateJobStatus_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateJobStatus(context.Background(), "missing-id", model.JobStatusRunning)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job not found")
}

func TestSQLite_UpdateJobResult(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateJob(ctx, "AAP")
	require.NoError(t, err)

	mc := 2592.0
	result := &model.JobResult{
		BuiltJSONPath:   "/data/jobs/x/output/built.json",
		HTMLPath:        "/data/jobs/x/output/capital_structure.html",
		MarketCapMM:     &mc,
		MarketCapSource: "fmp_stable_profile",
		Score:           100,
	}
	require.NoError(t, st.UpdateJobResult(ctx, created.ID, result))

	got, err := st.GetJob(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusSucceeded, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, result.BuiltJSONPath, got.Result.BuiltJSONPath)
	assert.Equal(t, result.HTMLPath, got.Result.HTMLPath)
	require.NotNil(t, got.Result.MarketCapMM)
	assert.InDelta(t, 2592.0, *got.Result.MarketCapMM, 1e-9)
	assert.Equal(t, 100, got.Result.Score)
}

func TestSQLite_FailJob(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateJob(ctx, "")
	require.NoError(t, err)

	require.NoError(t, st.FailJob(ctx, created.ID, "balance: metadata has no annual_period"))

	got, err := st.GetJob(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.Contains(t, got.Error, "annual_period")
}

func TestSQLite_ListJobs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateJob(ctx, "AAP")
	require.NoError(t, err)
	b, err := st.CreateJob(ctx, "ORLY")
	require.NoError(t, err)
	require.NoError(t, st.UpdateJobStatus(ctx, b.ID, model.JobStatusRunning))

	t.Run("all", func(t *testing.T) {
		jobs, err := st.ListJobs(ctx, JobFilter{})
		require.NoError(t, err)
		assert.Len(t, jobs, 2)
	})

	t.Run("by status", func(t *testing.T) {
		jobs, err := st.ListJobs(ctx, JobFilter{Status: model.JobStatusRunning})
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, b.ID, jobs[0].ID)
	})

	t.Run("by ticker", func(t *testing.T) {
		jobs, err := st.ListJobs(ctx, JobFilter{Ticker: "AAP"})
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, a.ID, jobs[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		jobs, err := st.ListJobs(ctx, JobFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, jobs, 1)
	})
}

// --- Market-cap cache ---

func TestSQLite_MarketCapCache_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	res := &marketcap.Result{
		MarketCapMM: 2592.0,
		Source:      "fmp_stable_profile",
		Currency:    "USD",
		AsOfUTC:     time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.SetCachedMarketCap(ctx, "AAP", res, 1*time.Hour))

	got, err := st.GetCachedMarketCap(ctx, "AAP")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 2592.0, got.MarketCapMM, 1e-9)
	assert.Equal(t, "fmp_stable_profile", got.Source)
	assert.Equal(t, "USD", got.Currency)
}

func TestSQLite_MarketCapCache_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetCachedMarketCap(context.Background(), "ZZZ")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_MarketCapCache_Expired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	res := &marketcap.Result{MarketCapMM: 100, Source: "test"}
	require.NoError(t, st.SetCachedMarketCap(ctx, "AAP", res, -1*time.Hour))

	got, err := st.GetCachedMarketCap(ctx, "AAP")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_MarketCapCache_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedMarketCap(ctx, "AAP", &marketcap.Result{MarketCapMM: 100, Source: "old"}, time.Hour))
	require.NoError(t, st.SetCachedMarketCap(ctx, "AAP", &marketcap.Result{MarketCapMM: 200, Source: "new"}, time.Hour))

	got, err := st.GetCachedMarketCap(ctx, "AAP")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 200.0, got.MarketCapMM, 1e-9)
	assert.Equal(t, "new", got.Source)
}

func TestSQLite_DeleteExpiredMarketCaps(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedMarketCap(ctx, "LIVE", &marketcap.Result{MarketCapMM: 1}, time.Hour))
	require.NoError(t, st.SetCachedMarketCap(ctx, "DEAD", &marketcap.Result{MarketCapMM: 2}, -time.Hour))

	n, err := st.DeleteExpiredMarketCaps(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := st.GetCachedMarketCap(ctx, "LIVE")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

// --- marketcap.Cache adapter ---

func TestMarketCapCache_Adapter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	cache := NewMarketCapCache(st)

	res, ok := cache.GetMarketCap(ctx, "AAP")
	assert.False(t, ok)
	assert.Nil(t, res)

	require.NoError(t, cache.SetMarketCap(ctx, "AAP", &marketcap.Result{MarketCapMM: 2592, Source: "fmp_stable_profile"}, time.Hour))

	res, ok = cache.GetMarketCap(ctx, "AAP")
	require.True(t, ok)
	assert.InDelta(t, 2592.0, res.MarketCapMM, 1e-9)
}
