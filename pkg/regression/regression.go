// SPDX-License-Identifier: Apache-2.0

package regression

import (
	"math"

	"github.com/xataio/benchgate/pkg/baseline"
)

// DefaultThreshold is the minimum fractional increase over the baseline that
// counts as a regression.
const DefaultThreshold = 0.05

// Finding is a degradation of one metric of one test beyond the threshold.
type Finding struct {
	Test     string  `json:"test"`
	Metric   string  `json:"metric"`
	Baseline float64 `json:"baseline"`
	New      float64 `json:"new"`
	// Percentage increase over the baseline, +Inf when the baseline is 0
	Pct float64 `json:"regression_pct"`
}

// Classify compares `newValue` against `base`. Every metric is treated as
// lower-is-better: a finding is returned only if newValue is strictly greater
// than base * (1 + threshold). No finding is returned without a baseline.
//
// A zero baseline cannot be scaled, so any positive new value against it is
// reported with an infinite percentage.
func Classify(test, metric string, base *baseline.Baseline, newValue, threshold float64) *Finding {
	if base == nil {
		return nil
	}

	if base.Value == 0 {
		if newValue <= 0 {
			return nil
		}
		return &Finding{
			Test:     test,
			Metric:   metric,
			Baseline: base.Value,
			New:      newValue,
			Pct:      math.Inf(1),
		}
	}

	if !(newValue > base.Value*(1+threshold)) {
		return nil
	}

	return &Finding{
		Test:     test,
		Metric:   metric,
		Baseline: base.Value,
		New:      newValue,
		Pct:      (newValue - base.Value) / base.Value * 100,
	}
}
