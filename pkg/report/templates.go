// SPDX-License-Identifier: Apache-2.0

package report

const (
	// SuccessMarker is the whole report when there are no findings
	SuccessMarker = "# ✅ No Performance Regressions Detected\n"

	// FailureMarker ends every report that has findings. CI can grep for it.
	FailureMarker = "**REGRESSION**"
)

const successTemplate = SuccessMarker

const regressionsTemplate = `# ❌ Performance Regressions Detected

| Test | Metric | Baseline | New | Regression |
|------|--------|----------|-----|------------|
{{ range . }}| {{ cell .Test }} | {{ cell .Metric }} | {{ fixed .Baseline }} | {{ fixed .New }} | {{ pct .Pct }} |
{{ end }}
` + FailureMarker
