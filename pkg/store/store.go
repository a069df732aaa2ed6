// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/xataio/benchgate/pkg/benchmark"
	"github.com/xataio/benchgate/pkg/db"
)

const sqlInit = `
CREATE TABLE IF NOT EXISTS benchmarks (
	id				INTEGER PRIMARY KEY,
	test_name		TEXT NOT NULL,
	commit_hash		TEXT NOT NULL,
	timestamp		INTEGER NOT NULL,
	run_id			TEXT NOT NULL DEFAULT '',
	metrics_json	TEXT NOT NULL,

	UNIQUE (test_name, commit_hash)
);

CREATE TABLE IF NOT EXISTS metrics (
	benchmark_id	INTEGER NOT NULL,
	metric_name		TEXT NOT NULL,
	value			REAL NOT NULL,
	unit			TEXT,

	FOREIGN KEY (benchmark_id) REFERENCES benchmarks(id) ON DELETE CASCADE
);

-- History lookups walk a test's records newest first
CREATE INDEX IF NOT EXISTS benchmarks_test_timestamp ON benchmarks (test_name, timestamp DESC);

CREATE INDEX IF NOT EXISTS metrics_benchmark_metric ON metrics (benchmark_id, metric_name);

-- Every binary version that initialized this store
CREATE TABLE IF NOT EXISTS benchgate_version (
	version			TEXT NOT NULL,
	initialized_at	INTEGER NOT NULL
);
`

// Store is the durable metric store. It owns all persisted benchmark records
// and their metric samples.
type Store struct {
	conn db.DB

	version string
	runID   string
	now     func() time.Time

	// last timestamp handed out, in unix nanoseconds
	lastTimestamp int64
}

// New opens (or creates) the SQLite store at `location` and ensures its
// schema exists.
func New(ctx context.Context, location string, opts ...StoreOpt) (*Store, error) {
	if dir := filepath.Dir(location); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("unable to create store directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", location)
	if err != nil {
		return nil, fmt.Errorf("unable to open store %q: %w", location, err)
	}

	// pragmas are per connection and the tool is single threaded
	conn.SetMaxOpenConns(1)

	s := &Store{
		conn:    &db.RDB{DB: conn},
		version: "development",
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Init(ctx); err != nil {
		return nil, errors.Join(err, conn.Close())
	}

	return s, nil
}

// Init creates the store relations if they are absent. It is safe to call
// repeatedly.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("unable to enable foreign keys: %w", err)
	}

	err := s.conn.WithRetryableTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, sqlInit)
		return err
	})
	if err != nil {
		return fmt.Errorf("unable to create store schema: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx, "SELECT COALESCE(MAX(timestamp), 0) FROM benchmarks")
	if err != nil {
		return fmt.Errorf("unable to read latest timestamp: %w", err)
	}
	defer rows.Close()

	var last int64
	if err := db.ScanFirstValue(rows, &last); err != nil {
		return fmt.Errorf("unable to read latest timestamp: %w", err)
	}
	if last > s.lastTimestamp {
		s.lastTimestamp = last
	}

	return nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Record upserts the benchmark record for (test, commit) with the current
// timestamp and the full metrics payload, replacing any samples written for
// a previous snapshot of the same pair. One sample is written per numeric
// entry; other entries are kept in the payload only. The record and its
// samples are committed together. Record returns the number of samples
// written.
func (s *Store) Record(ctx context.Context, test, commit string, metrics benchmark.Metrics) (int, error) {
	rawMetrics, err := json.Marshal(metrics)
	if err != nil {
		return 0, fmt.Errorf("unable to marshal metrics: %w", err)
	}

	timestamp := s.nextTimestamp()
	numeric := metrics.Numeric()

	err = s.conn.WithRetryableTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO benchmarks (test_name, commit_hash, timestamp, run_id, metrics_json)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (test_name, commit_hash) DO UPDATE SET
				timestamp = excluded.timestamp,
				run_id = excluded.run_id,
				metrics_json = excluded.metrics_json
			RETURNING id`,
			test, commit, timestamp, s.runID, string(rawMetrics)).Scan(&id)
		if err != nil {
			return fmt.Errorf("unable to upsert benchmark: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM metrics WHERE benchmark_id = ?", id); err != nil {
			return fmt.Errorf("unable to clear previous samples: %w", err)
		}

		for _, e := range numeric {
			value, _ := e.Float()

			var unit sql.NullString
			if u := e.UnitString(); u != "" {
				unit = sql.NullString{String: u, Valid: true}
			}

			_, err := tx.ExecContext(ctx,
				"INSERT INTO metrics (benchmark_id, metric_name, value, unit) VALUES (?, ?, ?, ?)",
				id, e.Name, value, unit)
			if err != nil {
				return fmt.Errorf("unable to insert sample %q: %w", e.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(numeric), nil
}

// nextTimestamp returns the wall clock in unix nanoseconds, bumped so that it
// is strictly greater than every timestamp already in the store.
func (s *Store) nextTimestamp() int64 {
	ts := s.now().UnixNano()
	if ts <= s.lastTimestamp {
		ts = s.lastTimestamp + 1
	}
	s.lastTimestamp = ts
	return ts
}
