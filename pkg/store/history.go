// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/oapi-codegen/nullable"
	"sigs.k8s.io/yaml"

	"github.com/xataio/benchgate/pkg/benchmark"
)

// Sample is a single stored metric value together with the record it was
// taken from
type Sample struct {
	Commit    string                    `json:"commit"`
	Timestamp time.Time                 `json:"timestamp"`
	Value     float64                   `json:"value"`
	Unit      nullable.Nullable[string] `json:"unit,omitempty"`
}

// Benchmark is a stored benchmark record
type Benchmark struct {
	Test      string            `json:"test"`
	Commit    string            `json:"commit"`
	Timestamp time.Time         `json:"timestamp"`
	RunID     string            `json:"run_id,omitempty"`
	Metrics   benchmark.Metrics `json:"metrics"`
}

// History returns the `window` most recent values of `metric` for `test`,
// most recent first. It returns an empty slice when there are none.
func (s *Store) History(ctx context.Context, test, metric string, window int) ([]float64, error) {
	samples, err := s.Samples(ctx, test, metric, window)
	if err != nil {
		return nil, err
	}

	values := make([]float64, 0, len(samples))
	for _, sample := range samples {
		values = append(values, sample.Value)
	}
	return values, nil
}

// Samples returns the `window` most recent samples of `metric` for `test` in
// descending timestamp order.
func (s *Store) Samples(ctx context.Context, test, metric string, window int) ([]Sample, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT b.commit_hash, b.timestamp, m.value, m.unit
		FROM metrics m
		JOIN benchmarks b ON m.benchmark_id = b.id
		WHERE b.test_name = ? AND m.metric_name = ?
		ORDER BY b.timestamp DESC, b.id DESC
		LIMIT ?`,
		test, metric, window)
	if err != nil {
		return nil, fmt.Errorf("unable to query history: %w", err)
	}
	defer rows.Close()

	samples := []Sample{}
	for rows.Next() {
		var sample Sample
		var timestamp int64
		var unit sql.NullString

		if err := rows.Scan(&sample.Commit, &timestamp, &sample.Value, &unit); err != nil {
			return nil, fmt.Errorf("row scan: %w", err)
		}

		sample.Timestamp = time.Unix(0, timestamp).UTC()
		if unit.Valid {
			sample.Unit = nullable.NewNullableWithValue(unit.String)
		}
		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return samples, nil
}

// Benchmarks returns every record stored for `test`, most recent first
func (s *Store) Benchmarks(ctx context.Context, test string) ([]Benchmark, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT commit_hash, timestamp, run_id, metrics_json
		FROM benchmarks
		WHERE test_name = ?
		ORDER BY timestamp DESC, id DESC`,
		test)
	if err != nil {
		return nil, fmt.Errorf("unable to query benchmarks: %w", err)
	}
	defer rows.Close()

	entries := []Benchmark{}
	for rows.Next() {
		var commit, runID, rawMetrics string
		var timestamp int64

		if err := rows.Scan(&commit, &timestamp, &runID, &rawMetrics); err != nil {
			return nil, fmt.Errorf("row scan: %w", err)
		}

		var metrics benchmark.Metrics
		if err := json.Unmarshal([]byte(rawMetrics), &metrics); err != nil {
			return nil, fmt.Errorf("unable to unmarshal metrics of %s@%s: %w", test, commit, err)
		}

		entries = append(entries, Benchmark{
			Test:      test,
			Commit:    commit,
			Timestamp: time.Unix(0, timestamp).UTC(),
			RunID:     runID,
			Metrics:   metrics,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return entries, nil
}

// WriteJSON writes the benchmarks to `w` as indented JSON
func WriteJSON(w io.Writer, benchmarks []Benchmark) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(benchmarks)
}

// WriteYAML writes the benchmarks to `w` as YAML
func WriteYAML(w io.Writer, benchmarks []Benchmark) error {
	yml, err := yaml.Marshal(benchmarks)
	if err != nil {
		return err
	}

	_, err = w.Write(yml)
	return err
}
