// SPDX-License-Identifier: Apache-2.0

package store_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oapi-codegen/nullable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xataio/benchgate/pkg/benchmark"
	"github.com/xataio/benchgate/pkg/store"
	"github.com/xataio/benchgate/pkg/testutils"
)

func TestInitIsIdempotent(t *testing.T) {
	t.Parallel()

	testutils.WithStore(t, func(st *store.Store) {
		ctx := context.Background()

		_, err := st.Record(ctx, "BM_Sort", "abc", benchmark.Metrics{{Name: "real_time", Value: 100.0}})
		require.NoError(t, err)

		require.NoError(t, st.Init(ctx))
		require.NoError(t, st.Init(ctx))

		history, err := st.History(ctx, "BM_Sort", "real_time", 5)
		require.NoError(t, err)
		assert.Equal(t, []float64{100}, history)
	})
}

func TestReopenKeepsData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "baseline.db")

	st, err := store.New(ctx, path)
	require.NoError(t, err)
	_, err = st.Record(ctx, "BM_Sort", "abc", benchmark.Metrics{{Name: "real_time", Value: 100.0}})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	reopened := testutils.OpenStore(t, path)
	history, err := reopened.History(ctx, "BM_Sort", "real_time", 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{100}, history)
}

func TestRecordRollsBackWhenASampleFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "baseline.db")
	st := testutils.OpenStore(t, path)

	_, err := st.Record(ctx, "BM_Sort", "abc", benchmark.Metrics{{Name: "real_time", Value: 100.0}})
	require.NoError(t, err)

	conn, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `CREATE TRIGGER reject_samples BEFORE INSERT ON metrics
		WHEN NEW.metric_name = 'cpu_time'
		BEGIN SELECT RAISE(ABORT, 'sample rejected'); END`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	_, err = st.Record(ctx, "BM_Sort", "abc", benchmark.Metrics{
		{Name: "real_time", Value: 150.0},
		{Name: "cpu_time", Value: 140.0},
	})
	require.ErrorContains(t, err, "sample rejected")

	// neither the upserted record nor its first sample survive
	benchmarks, err := st.Benchmarks(ctx, "BM_Sort")
	require.NoError(t, err)
	require.Len(t, benchmarks, 1)
	assert.Equal(t, benchmark.Metrics{{Name: "real_time", Value: 100.0}}, benchmarks[0].Metrics)

	history, err := st.History(ctx, "BM_Sort", "real_time", 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{100}, history)
}

func TestRecordUpsertsSameTestAndCommit(t *testing.T) {
	t.Parallel()

	testutils.WithStore(t, func(st *store.Store) {
		ctx := context.Background()

		_, err := st.Record(ctx, "BM_Sort", "abc", benchmark.Metrics{
			{Name: "real_time", Value: 100.0},
			{Name: "cpu_time", Value: 90.0},
		})
		require.NoError(t, err)

		_, err = st.Record(ctx, "BM_Sort", "abc", benchmark.Metrics{
			{Name: "real_time", Value: 150.0},
		})
		require.NoError(t, err)

		benchmarks, err := st.Benchmarks(ctx, "BM_Sort")
		require.NoError(t, err)
		require.Len(t, benchmarks, 1)
		assert.Equal(t, "abc", benchmarks[0].Commit)
		assert.Equal(t, benchmark.Metrics{{Name: "real_time", Value: 150.0}}, benchmarks[0].Metrics)

		history, err := st.History(ctx, "BM_Sort", "real_time", 5)
		require.NoError(t, err)
		assert.Equal(t, []float64{150}, history)

		// samples of the replaced snapshot are gone
		history, err = st.History(ctx, "BM_Sort", "cpu_time", 5)
		require.NoError(t, err)
		assert.Empty(t, history)
	})
}

func TestRecordDropsNonNumericEntries(t *testing.T) {
	t.Parallel()

	testutils.WithStore(t, func(st *store.Store) {
		ctx := context.Background()

		written, err := st.Record(ctx, "custom", "abc", benchmark.Metrics{
			{Name: "latency_ms", Value: 12.5},
			{Name: "label", Value: "cold"},
			{Name: "warm", Value: true},
			{Name: "nested", Value: map[string]any{"p99": 3.0}},
			{Name: "ops", Value: 1000},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, written)

		for metric, want := range map[string][]float64{
			"latency_ms": {12.5},
			"ops":        {1000},
			"label":      {},
			"warm":       {},
			"nested":     {},
		} {
			history, err := st.History(ctx, "custom", metric, 5)
			require.NoError(t, err)
			assert.Equal(t, want, history, metric)
		}

		// the payload keeps everything, in order
		benchmarks, err := st.Benchmarks(ctx, "custom")
		require.NoError(t, err)
		require.Len(t, benchmarks, 1)
		names := []string{}
		for _, e := range benchmarks[0].Metrics {
			names = append(names, e.Name)
		}
		assert.Equal(t, []string{"latency_ms", "label", "warm", "nested", "ops"}, names)
	})
}

func TestHistoryIsEmptyWithoutSamples(t *testing.T) {
	t.Parallel()

	testutils.WithStore(t, func(st *store.Store) {
		history, err := st.History(context.Background(), "BM_Unknown", "real_time", 5)
		require.NoError(t, err)
		assert.NotNil(t, history)
		assert.Empty(t, history)
	})
}

func TestHistoryWindowAndOrder(t *testing.T) {
	t.Parallel()

	testutils.WithStore(t, func(st *store.Store) {
		ctx := context.Background()

		for i, v := range []float64{1, 2, 3, 4, 5, 6, 7} {
			_, err := st.Record(ctx, "BM_Sort", string(rune('a'+i)), benchmark.Metrics{{Name: "real_time", Value: v}})
			require.NoError(t, err)
		}

		history, err := st.History(ctx, "BM_Sort", "real_time", 5)
		require.NoError(t, err)
		assert.Equal(t, []float64{7, 6, 5, 4, 3}, history)

		history, err = st.History(ctx, "BM_Sort", "real_time", 2)
		require.NoError(t, err)
		assert.Equal(t, []float64{7, 6}, history)
	})
}

func TestHistoryIsScopedToTestAndMetric(t *testing.T) {
	t.Parallel()

	testutils.WithStore(t, func(st *store.Store) {
		ctx := context.Background()

		_, err := st.Record(ctx, "BM_Sort", "a", benchmark.Metrics{{Name: "real_time", Value: 1.0}, {Name: "cpu_time", Value: 2.0}})
		require.NoError(t, err)
		_, err = st.Record(ctx, "BM_Find", "a", benchmark.Metrics{{Name: "real_time", Value: 3.0}})
		require.NoError(t, err)

		history, err := st.History(ctx, "BM_Sort", "real_time", 5)
		require.NoError(t, err)
		assert.Equal(t, []float64{1}, history)

		history, err = st.History(ctx, "BM_Find", "real_time", 5)
		require.NoError(t, err)
		assert.Equal(t, []float64{3}, history)
	})
}

func TestTimestampsStayMonotonicWithAFrozenClock(t *testing.T) {
	t.Parallel()

	frozen := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	opts := []store.StoreOpt{store.WithClock(func() time.Time { return frozen })}

	testutils.WithStoreAndOptions(t, opts, func(st *store.Store) {
		ctx := context.Background()

		for i, v := range []float64{10, 20, 30} {
			_, err := st.Record(ctx, "BM_Sort", string(rune('a'+i)), benchmark.Metrics{{Name: "real_time", Value: v}})
			require.NoError(t, err)
		}

		history, err := st.History(ctx, "BM_Sort", "real_time", 5)
		require.NoError(t, err)
		assert.Equal(t, []float64{30, 20, 10}, history)
	})
}

func TestTimestampsStayMonotonicAcrossReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := testutils.StorePath(t)

	late := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
	st, err := store.New(ctx, path, store.WithClock(func() time.Time { return late }))
	require.NoError(t, err)
	_, err = st.Record(ctx, "BM_Sort", "a", benchmark.Metrics{{Name: "real_time", Value: 1.0}})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// a machine with a clock behind the previous writer still appends
	early := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	reopened := testutils.OpenStore(t, path, store.WithClock(func() time.Time { return early }))
	_, err = reopened.Record(ctx, "BM_Sort", "b", benchmark.Metrics{{Name: "real_time", Value: 2.0}})
	require.NoError(t, err)

	history, err := reopened.History(ctx, "BM_Sort", "real_time", 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1}, history)
}

func TestSamplesCarryCommitAndUnit(t *testing.T) {
	t.Parallel()

	testutils.WithStoreAndOptions(t, []store.StoreOpt{store.WithRunID("run-1")}, func(st *store.Store) {
		ctx := context.Background()

		_, err := st.Record(ctx, "BM_Sort", "abc", benchmark.Metrics{
			{Name: "real_time", Value: 100.0, Unit: nullable.NewNullableWithValue("ns")},
			{Name: "iterations", Value: 1000.0},
		})
		require.NoError(t, err)

		samples, err := st.Samples(ctx, "BM_Sort", "real_time", 5)
		require.NoError(t, err)
		require.Len(t, samples, 1)
		assert.Equal(t, "abc", samples[0].Commit)
		assert.Equal(t, 100.0, samples[0].Value)
		assert.Equal(t, "ns", samples[0].Unit.MustGet())

		samples, err = st.Samples(ctx, "BM_Sort", "iterations", 5)
		require.NoError(t, err)
		require.Len(t, samples, 1)
		assert.False(t, samples[0].Unit.IsSpecified())

		benchmarks, err := st.Benchmarks(ctx, "BM_Sort")
		require.NoError(t, err)
		require.Len(t, benchmarks, 1)
		assert.Equal(t, "run-1", benchmarks[0].RunID)
	})
}

func TestNewFailsOnUnwritableLocation(t *testing.T) {
	t.Parallel()

	// a regular file where a directory is expected
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o644))

	_, err := store.New(context.Background(), filepath.Join(blocker, "baseline.db"))
	assert.Error(t, err)
}

func TestNewFailsOnCorruptStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "corrupt.db")
	require.NoError(t, os.WriteFile(path, []byte("this is definitely not a sqlite database file, just text padding it out"), 0o644))

	_, err := store.New(context.Background(), path)
	assert.Error(t, err)
}
