// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"io"

	"github.com/pterm/pterm"
)

// Logger reports the progress of an ingestion run.
type Logger interface {
	LogNoArtifacts(pattern string)
	LogArtifactStart(path string)
	LogArtifactSkipped(path string, err error)
	LogRecordStored(test, commit string, samples int)
	LogRegression(test, metric string, baseline, newValue, pct float64)

	Info(msg string, args ...any)
}

type ingestLogger struct {
	logger *pterm.Logger
}

type noopLogger struct{}

// NewLogger returns a Logger writing structured lines to `w`. Per-artifact
// progress is only shown when `verbose` is set.
func NewLogger(w io.Writer, verbose bool) Logger {
	level := pterm.LogLevelInfo
	if verbose {
		level = pterm.LogLevelDebug
	}

	return &ingestLogger{
		logger: pterm.DefaultLogger.WithWriter(w).WithLevel(level),
	}
}

func NewNoopLogger() Logger {
	return &noopLogger{}
}

func (l *ingestLogger) LogNoArtifacts(pattern string) {
	l.logger.Warn("no benchmark artifacts found", l.logger.Args("pattern", pattern))
}

func (l *ingestLogger) LogArtifactStart(path string) {
	l.logger.Debug("reading artifact", l.logger.Args("path", path))
}

func (l *ingestLogger) LogArtifactSkipped(path string, err error) {
	l.logger.Warn("skipping artifact", l.logger.Args("path", path, "error", err.Error()))
}

func (l *ingestLogger) LogRecordStored(test, commit string, samples int) {
	l.logger.Debug("recorded benchmark", l.logger.Args("test", test, "commit", commit, "samples", samples))
}

func (l *ingestLogger) LogRegression(test, metric string, baseline, newValue, pct float64) {
	l.logger.Warn("regression detected", l.logger.Args(
		"test", test,
		"metric", metric,
		"baseline", baseline,
		"new", newValue,
		"regression_pct", pct,
	))
}

func (l *ingestLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, l.logger.Args(args...))
}

func (l *noopLogger) LogNoArtifacts(pattern string) {}

func (l *noopLogger) LogArtifactStart(path string) {}

func (l *noopLogger) LogArtifactSkipped(path string, err error) {}

func (l *noopLogger) LogRecordStored(test, commit string, samples int) {}

func (l *noopLogger) LogRegression(test, metric string, baseline, newValue, pct float64) {}

func (l *noopLogger) Info(msg string, args ...any) {}
