// SPDX-License-Identifier: Apache-2.0

package baseline

import "slices"

// DefaultWindow is the number of most recent samples a baseline is computed
// over.
const DefaultWindow = 5

// Baseline is the central tendency of a metric's recent history.
type Baseline struct {
	Value   float64
	Samples int
}

// Compute returns the baseline of `samples`, or nil when there are none.
func Compute(samples []float64) *Baseline {
	median, ok := Median(samples)
	if !ok {
		return nil
	}
	return &Baseline{Value: median, Samples: len(samples)}
}

// Median returns the median of `samples`. For an even number of samples it
// is the mean of the two middle values. It returns false for an empty input.
// The input is not modified.
func Median(samples []float64) (float64, bool) {
	n := len(samples)
	if n == 0 {
		return 0, false
	}

	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	if n%2 == 1 {
		return sorted[n/2], true
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2, true
}
