// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/xataio/benchgate/cmd/flags"
	"github.com/xataio/benchgate/pkg/ingest"
	"github.com/xataio/benchgate/pkg/regression"
	"github.com/xataio/benchgate/pkg/report"
	"github.com/xataio/benchgate/pkg/store"
)

type checkConfig struct {
	baseline  string
	pattern   string
	threshold float64
	output    string
	commit    string
	window    int
	verbose   bool
}

func checkConfigFromFlags() (checkConfig, error) {
	threshold, err := flags.Threshold()
	if err != nil {
		return checkConfig{}, InvalidFlagError{
			Flag:   "threshold",
			Reason: fmt.Sprintf("must be a finite fraction >= 0, got %q", flags.Raw("THRESHOLD")),
		}
	}

	window, err := flags.Window()
	if err != nil {
		return checkConfig{}, InvalidFlagError{
			Flag:   "window",
			Reason: fmt.Sprintf("must be at least 1, got %q", flags.Raw("WINDOW")),
		}
	}

	cfg := checkConfig{
		baseline:  flags.Baseline(),
		pattern:   flags.Artifacts(),
		threshold: threshold,
		output:    flags.Output(),
		commit:    flags.Commit(),
		window:    window,
		verbose:   flags.Verbose(),
	}

	return cfg, cfg.validate()
}

func (c checkConfig) validate() error {
	switch {
	case c.baseline == "":
		return errStoreNotConfigured
	case c.pattern == "":
		return MissingFlagError{Flag: "new"}
	case c.output == "":
		return MissingFlagError{Flag: "output"}
	case math.IsNaN(c.threshold) || math.IsInf(c.threshold, 0) || c.threshold < 0:
		return InvalidFlagError{Flag: "threshold", Reason: fmt.Sprintf("must be a finite fraction >= 0, got %v", c.threshold)}
	case c.window < 1:
		return InvalidFlagError{Flag: "window", Reason: fmt.Sprintf("must be at least 1, got %d", c.window)}
	}
	return nil
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := checkConfigFromFlags()
	if err != nil {
		return err
	}

	result, err := check(cmd.Context(), cfg, ingest.NewLogger(os.Stderr, cfg.verbose))
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), cfg, result)

	if len(result.Findings) > 0 {
		return ErrRegressionsFound
	}
	return nil
}

// check ingests the artifacts matching the configured pattern and writes the
// report. The report is not written if ingestion fails.
func check(ctx context.Context, cfg checkConfig, logger ingest.Logger) (*ingest.Result, error) {
	runID := uuid.NewString()

	st, err := openStore(ctx, cfg.baseline, store.WithRunID(runID))
	if err != nil {
		return nil, err
	}
	defer st.Close()

	logger.Info("starting run", "run_id", runID, "commit", cfg.commit, "pattern", cfg.pattern)

	detector := regression.NewDetector(st,
		regression.WithWindow(cfg.window),
		regression.WithThreshold(cfg.threshold),
	)
	adapter := ingest.New(st, detector,
		ingest.WithCommit(cfg.commit),
		ingest.WithLogger(logger),
	)

	result, err := adapter.Run(ctx, cfg.pattern)
	if err != nil {
		return nil, err
	}

	if err := report.WriteFile(cfg.output, result.Findings); err != nil {
		return nil, err
	}

	return result, nil
}

// openStore opens the metric store, refuses stores written by a newer
// benchgate and records the running version.
func openStore(ctx context.Context, location string, opts ...store.StoreOpt) (*store.Store, error) {
	opts = append([]store.StoreOpt{store.WithVersion(Version)}, opts...)

	st, err := store.New(ctx, location, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to open metric store %q: %w", location, err)
	}

	if err := st.CheckVersion(ctx); err != nil {
		st.Close()
		return nil, err
	}

	if err := st.Stamp(ctx); err != nil {
		st.Close()
		return nil, err
	}

	return st, nil
}

func printSummary(w io.Writer, cfg checkConfig, result *ingest.Result) {
	if len(result.Skipped) > 0 {
		pterm.Warning.WithWriter(w).Printfln("Skipped %d unreadable artifacts", len(result.Skipped))
	}

	if len(result.Findings) == 0 {
		pterm.Success.WithWriter(w).Printfln("No performance regressions detected (%d records from %d artifacts)",
			result.Records, len(result.Artifacts))
		return
	}

	data := pterm.TableData{{"Test", "Metric", "Baseline", "New", "Regression"}}
	for _, f := range result.Findings {
		data = append(data, []string{
			f.Test,
			f.Metric,
			fmt.Sprintf("%.3f", f.Baseline),
			fmt.Sprintf("%.3f", f.New),
			report.FormatPct(f.Pct),
		})
	}

	pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(w).Render()
	pterm.Error.WithWriter(w).Printfln("Found %d performance regressions, report written to %s", len(result.Findings), cfg.output)
}
