// SPDX-License-Identifier: Apache-2.0

package benchmarks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xataio/benchgate/pkg/benchmark"
)

// ReportRecorder collects the results of benchgate's own benchmarks so they
// can be fed back to benchgate as single-benchmark artifacts.
type ReportRecorder struct {
	mu        sync.Mutex
	GitSHA    string
	Timestamp int64
	Reports   []Report
}

func (r *ReportRecorder) AddReport(report Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reports = append(r.Reports, report)
}

// WriteArtifacts writes one artifact per report into `dir` and returns their
// paths.
func (r *ReportRecorder) WriteArtifacts(dir string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(r.Reports))
	for _, report := range r.Reports {
		data, err := json.MarshalIndent(report.artifact(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal report %q: %w", report.Name, err)
		}

		path := filepath.Join(dir, artifactFileName(report.Name))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func newReportRecorder() *ReportRecorder {
	return &ReportRecorder{
		GitSHA:    os.Getenv("GITHUB_SHA"),
		Timestamp: time.Now().Unix(),
		Reports:   []Report{},
	}
}

type Report struct {
	Name          string
	RecordCount   int
	NanosPerOp    float64
	NanosPerEntry float64
}

type artifact struct {
	TestName string            `json:"test_name"`
	Metrics  benchmark.Metrics `json:"metrics"`
}

func (r Report) artifact() artifact {
	return artifact{
		TestName: r.Name,
		Metrics: benchmark.Metrics{
			{Name: "ns_per_op", Value: r.NanosPerOp},
			{Name: "ns_per_record", Value: r.NanosPerEntry},
			{Name: "records", Value: r.RecordCount},
		},
	}
}

func artifactFileName(name string) string {
	return strings.NewReplacer("/", "_", " ", "_").Replace(name) + ".json"
}
