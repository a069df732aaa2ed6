// SPDX-License-Identifier: Apache-2.0

package regression

import (
	"context"
	"fmt"

	"github.com/xataio/benchgate/pkg/baseline"
	"github.com/xataio/benchgate/pkg/benchmark"
)

// HistoryReader returns the `window` most recent values of a test's metric,
// most recent first.
type HistoryReader interface {
	History(ctx context.Context, test, metric string, window int) ([]float64, error)
}

// Detector checks freshly recorded metrics against their stored history.
type Detector struct {
	history   HistoryReader
	window    int
	threshold float64
}

type Option func(*Detector)

// WithWindow sets how many recent samples the baseline is computed over
func WithWindow(window int) Option {
	return func(d *Detector) {
		d.window = window
	}
}

// WithThreshold sets the fractional increase over the baseline that counts
// as a regression
func WithThreshold(threshold float64) Option {
	return func(d *Detector) {
		d.threshold = threshold
	}
}

func NewDetector(history HistoryReader, opts ...Option) *Detector {
	d := &Detector{
		history:   history,
		window:    baseline.DefaultWindow,
		threshold: DefaultThreshold,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Check classifies every numeric entry of `metrics` against its baseline and
// returns the findings in the order the metrics appear. Errors reading the
// history are returned as is.
func (d *Detector) Check(ctx context.Context, test string, metrics benchmark.Metrics) ([]Finding, error) {
	var findings []Finding

	for _, e := range metrics.Numeric() {
		value, _ := e.Float()

		history, err := d.history.History(ctx, test, e.Name, d.window)
		if err != nil {
			return nil, fmt.Errorf("failed to read history of %s/%s: %w", test, e.Name, err)
		}

		if f := Classify(test, e.Name, baseline.Compute(history), value, d.threshold); f != nil {
			findings = append(findings, *f)
		}
	}

	return findings, nil
}
