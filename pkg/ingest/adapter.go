// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"fmt"

	"github.com/xataio/benchgate/pkg/benchmark"
	"github.com/xataio/benchgate/pkg/regression"
)

// DefaultCommit is the commit identifier used when none is given
const DefaultCommit = "HEAD"

// Recorder persists one test's metrics for a commit and returns the number
// of numeric samples written.
type Recorder interface {
	Record(ctx context.Context, test, commit string, metrics benchmark.Metrics) (int, error)
}

// Checker classifies one test's metrics against their stored history.
type Checker interface {
	Check(ctx context.Context, test string, metrics benchmark.Metrics) ([]regression.Finding, error)
}

// Result summarizes an ingestion run.
type Result struct {
	// Artifacts that were parsed and recorded, in processing order
	Artifacts []string
	// Artifacts that could not be parsed
	Skipped []string
	// Number of records written
	Records int
	// Findings across all artifacts, in processing order
	Findings []regression.Finding
}

// Adapter feeds artifacts matching a pattern through the store and the
// regression detector.
type Adapter struct {
	recorder Recorder
	checker  Checker
	commit   string
	logger   Logger
}

type AdapterOpt func(*Adapter)

// WithCommit sets the commit identifier the artifacts are recorded under
func WithCommit(commit string) AdapterOpt {
	return func(a *Adapter) {
		if commit != "" {
			a.commit = commit
		}
	}
}

// WithLogger sets the logger used to report progress
func WithLogger(logger Logger) AdapterOpt {
	return func(a *Adapter) {
		a.logger = logger
	}
}

func New(recorder Recorder, checker Checker, opts ...AdapterOpt) *Adapter {
	a := &Adapter{
		recorder: recorder,
		checker:  checker,
		commit:   DefaultCommit,
		logger:   NewNoopLogger(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Run processes every artifact matching `pattern` in sorted path order. Each
// record is stored before it is checked, so its own value is part of the
// history it is compared against.
//
// Artifacts that cannot be read or parsed are logged and skipped. Errors
// from the recorder or checker abort the run.
func (a *Adapter) Run(ctx context.Context, pattern string) (*Result, error) {
	files, err := Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		a.logger.LogNoArtifacts(pattern)
	}

	result := &Result{
		Artifacts: []string{},
		Skipped:   []string{},
		Findings:  []regression.Finding{},
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		a.logger.LogArtifactStart(path)

		records, err := ParseFile(path, a.commit)
		if err != nil {
			a.logger.LogArtifactSkipped(path, ArtifactError{Path: path, Err: err})
			result.Skipped = append(result.Skipped, path)
			continue
		}

		for _, rec := range records {
			findings, err := a.process(ctx, rec)
			if err != nil {
				return nil, err
			}
			result.Records++
			result.Findings = append(result.Findings, findings...)
		}

		result.Artifacts = append(result.Artifacts, path)
	}

	return result, nil
}

func (a *Adapter) process(ctx context.Context, rec benchmark.Record) ([]regression.Finding, error) {
	samples, err := a.recorder.Record(ctx, rec.Test, rec.Commit, rec.Metrics)
	if err != nil {
		return nil, fmt.Errorf("unable to record %s@%s: %w", rec.Test, rec.Commit, err)
	}
	a.logger.LogRecordStored(rec.Test, rec.Commit, samples)

	findings, err := a.checker.Check(ctx, rec.Test, rec.Metrics)
	if err != nil {
		return nil, fmt.Errorf("unable to check %s: %w", rec.Test, err)
	}

	for _, f := range findings {
		a.logger.LogRegression(f.Test, f.Metric, f.Baseline, f.New, f.Pct)
	}

	return findings, nil
}
