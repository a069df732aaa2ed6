// SPDX-License-Identifier: Apache-2.0

package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/xataio/benchgate/pkg/regression"
)

var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

// Render writes the markdown report for `findings` to `w`. Rows are written
// in the order the findings are given.
func Render(w io.Writer, findings []regression.Finding) error {
	if len(findings) == 0 {
		return executeTemplate(w, "success", successTemplate, nil)
	}
	return executeTemplate(w, "regressions", regressionsTemplate, findings)
}

// WriteFile renders the report to the file at `path`, replacing it if it
// exists. Missing parent directories are created.
func WriteFile(path string, findings []regression.Finding) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("unable to create report directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create report: %w", err)
	}

	if err := Render(file, findings); err != nil {
		file.Close()
		return fmt.Errorf("unable to write report: %w", err)
	}

	return file.Close()
}

// FormatPct renders a percentage change the way it appears in the report.
// Findings against a negative baseline have a negative change.
func FormatPct(pct float64) string {
	if math.IsInf(pct, 1) {
		return "+inf%"
	}
	return fmt.Sprintf("%+.1f%%", pct)
}

func executeTemplate(w io.Writer, name, content string, data any) error {
	tmpl := template.Must(template.New(name).
		Funcs(template.FuncMap{
			"cell": func(s string) string {
				return cellReplacer.Replace(s)
			},
			"fixed": func(f float64) string {
				return fmt.Sprintf("%.3f", f)
			},
			"pct": FormatPct,
		}).
		Parse(content))

	return tmpl.Execute(w, data)
}
