// SPDX-License-Identifier: Apache-2.0

package ingest_test

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/oapi-codegen/nullable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xataio/benchgate/pkg/benchmark"
	"github.com/xataio/benchgate/pkg/ingest"
)

func TestParseFileGoogleBenchmark(t *testing.T) {
	t.Parallel()

	records, err := ingest.ParseFile(filepath.Join("testdata", "google_benchmark.json"), "abc123")
	require.NoError(t, err)

	ns := nullable.NewNullableWithValue("ns")
	want := []benchmark.Record{
		{
			Test:   "BM_Sort/1024",
			Commit: "abc123",
			Metrics: benchmark.Metrics{
				{Name: "real_time", Value: 9971.4, Unit: ns},
				{Name: "cpu_time", Value: 9965.2, Unit: ns},
				{Name: "iterations", Value: 70312.0},
			},
		},
		{
			Test:   "BM_Find/1024",
			Commit: "abc123",
			Metrics: benchmark.Metrics{
				{Name: "real_time", Value: 612.5, Unit: ns},
				{Name: "cpu_time", Value: 611.9, Unit: ns},
				{Name: "iterations", Value: 1000000.0},
			},
		},
	}

	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("unexpected records (-want +got):\n%s", diff)
	}
}

func TestParseFileSingleBenchmarkKeepsOrder(t *testing.T) {
	t.Parallel()

	records, err := ingest.ParseFile(filepath.Join("testdata", "load_test.yaml"), "HEAD")
	require.NoError(t, err)
	require.Len(t, records, 1)

	want := benchmark.Record{
		Test:   "api_load",
		Commit: "HEAD",
		Metrics: benchmark.Metrics{
			{Name: "p99_latency_ms", Value: 41.7},
			{Name: "throughput_rps", Value: 1520.0},
			{Name: "region", Value: "eu-west-1"},
			{Name: "warm", Value: true},
			{Name: "p50_latency_ms", Value: 12.0},
		},
	}

	if diff := cmp.Diff(want, records[0]); diff != "" {
		t.Errorf("unexpected record (-want +got):\n%s", diff)
	}

	numeric := []string{}
	for _, e := range records[0].Metrics.Numeric() {
		numeric = append(numeric, e.Name)
	}
	assert.Equal(t, []string{"p99_latency_ms", "throughput_rps", "p50_latency_ms"}, numeric)
}

func TestParseFileFallsBackToFileStem(t *testing.T) {
	t.Parallel()

	records, err := ingest.ParseFile(filepath.Join("testdata", "startup.json"), "HEAD")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "startup", records[0].Test)
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		want    []benchmark.Record
		wantErr bool
	}{
		{
			name: "absent google benchmark fields default to zero",
			data: `{"benchmarks": [{"name": "BM_Empty"}]}`,
			want: []benchmark.Record{{
				Test:   "BM_Empty",
				Commit: "c1",
				Metrics: benchmark.Metrics{
					{Name: "real_time", Value: 0.0},
					{Name: "cpu_time", Value: 0.0},
					{Name: "iterations", Value: 0.0},
				},
			}},
		},
		{
			name: "bare list of benchmarks",
			data: `[{"name": "BM_A", "real_time": 5, "cpu_time": 4, "iterations": 10}]`,
			want: []benchmark.Record{{
				Test:   "BM_A",
				Commit: "c1",
				Metrics: benchmark.Metrics{
					{Name: "real_time", Value: 5.0},
					{Name: "cpu_time", Value: 4.0},
					{Name: "iterations", Value: 10.0},
				},
			}},
		},
		{
			name: "empty benchmark list",
			data: `{"benchmarks": []}`,
			want: []benchmark.Record{},
		},
		{
			name: "missing metrics is an empty payload",
			data: `{"test_name": "bare"}`,
			want: []benchmark.Record{{Test: "bare", Commit: "c1", Metrics: benchmark.Metrics{}}},
		},
		{
			name: "null metrics is an empty payload",
			data: `{"test_name": "bare", "metrics": null}`,
			want: []benchmark.Record{{Test: "bare", Commit: "c1", Metrics: benchmark.Metrics{}}},
		},
		{
			name: "test name defaults to the given name",
			data: `{"metrics": {"ms": 1}}`,
			want: []benchmark.Record{{Test: "fallback", Commit: "c1", Metrics: benchmark.Metrics{{Name: "ms", Value: 1.0}}}},
		},
		{
			name: "nested and null values are carried through",
			data: `{"test_name": "t", "metrics": {"detail": {"p99": 3}, "tags": ["a"], "none": null}}`,
			want: []benchmark.Record{{
				Test:   "t",
				Commit: "c1",
				Metrics: benchmark.Metrics{
					{Name: "detail", Value: map[string]any{"p99": 3}},
					{Name: "tags", Value: []any{"a"}},
					{Name: "none", Value: nil},
				},
			}},
		},
		{
			name: "escaped solidus in a benchmark name",
			data: `[{"name": "BM_Sort\/1024", "real_time": 120}]`,
			want: []benchmark.Record{{
				Test:   "BM_Sort/1024",
				Commit: "c1",
				Metrics: benchmark.Metrics{
					{Name: "real_time", Value: 120.0},
					{Name: "cpu_time", Value: 0.0},
					{Name: "iterations", Value: 0.0},
				},
			}},
		},
		{
			name: "surrogate pair escapes",
			data: `{"test_name": "emoji \ud83d\ude00", "metrics": {"label": "\ud83d\ude00", "ms": 2.5}}`,
			want: []benchmark.Record{{
				Test:   "emoji 😀",
				Commit: "c1",
				Metrics: benchmark.Metrics{
					{Name: "label", Value: "😀"},
					{Name: "ms", Value: 2.5},
				},
			}},
		},
		{
			name: "json strings that look like other scalars stay strings",
			data: `{"test_name": "t", "metrics": {"count": "12", "flag": "yes", "ok": true, "n": 1e3}}`,
			want: []benchmark.Record{{
				Test:   "t",
				Commit: "c1",
				Metrics: benchmark.Metrics{
					{Name: "count", Value: "12"},
					{Name: "flag", Value: "yes"},
					{Name: "ok", Value: true},
					{Name: "n", Value: 1000.0},
				},
			}},
		},
		{
			name:    "scalar document",
			data:    `42`,
			wantErr: true,
		},
		{
			name:    "empty document",
			data:    ``,
			wantErr: true,
		},
		{
			name:    "metrics is not an object",
			data:    `{"test_name": "t", "metrics": [1, 2]}`,
			wantErr: true,
		},
		{
			name:    "benchmark without a name",
			data:    `{"benchmarks": [{"real_time": 1}]}`,
			wantErr: true,
		},
		{
			name:    "benchmarks is not a list",
			data:    `{"benchmarks": {"name": "BM_A"}}`,
			wantErr: true,
		},
		{
			name:    "test name is not a string",
			data:    `{"test_name": 7, "metrics": {}}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			data:    `{"benchmarks": [`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ingest.Parse([]byte(tt.data), "fallback", "c1")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, records); diff != "" {
				t.Errorf("unexpected records (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateAcceptsJSONOnlyEscapes(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ingest.Validate([]byte(`{"benchmarks": [{"name": "BM_\ud83d\ude00\/x"}]}`)))
}

func TestParseReportsShapeErrors(t *testing.T) {
	t.Parallel()

	_, err := ingest.Parse([]byte(`"just a string"`), "x", "c1")

	var shapeErr ingest.ShapeError
	assert.ErrorAs(t, err, &shapeErr)
}
