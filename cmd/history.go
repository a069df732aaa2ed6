// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/xataio/benchgate/cmd/flags"
	"github.com/xataio/benchgate/pkg/baseline"
	"github.com/xataio/benchgate/pkg/store"
)

func historyCmd() *cobra.Command {
	var window int
	var useJSON bool

	historyCmd := &cobra.Command{
		Use:   "history <test> [metric]",
		Short: "Show the stored history of a test",
		Long: `Without a metric, print every stored record of the test, most recent first.
With a metric, print its most recent samples together with their baseline.`,
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"test", "metric"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			test := args[0]

			location := flags.Baseline()
			if location == "" {
				return errStoreNotConfigured
			}
			if window < 1 {
				return InvalidFlagError{Flag: "window", Reason: fmt.Sprintf("must be at least 1, got %d", window)}
			}

			// reading history must not create a store at a mistyped path
			if _, err := os.Stat(location); err != nil {
				return fmt.Errorf("unable to open metric store %q: %w", location, err)
			}

			st, err := store.New(ctx, location, store.WithVersion(Version))
			if err != nil {
				return fmt.Errorf("unable to open metric store %q: %w", location, err)
			}
			defer st.Close()

			out := cmd.OutOrStdout()

			if len(args) == 1 {
				benchmarks, err := st.Benchmarks(ctx, test)
				if err != nil {
					return fmt.Errorf("failed to read history of %s: %w", test, err)
				}
				if useJSON {
					return store.WriteJSON(out, benchmarks)
				}
				return store.WriteYAML(out, benchmarks)
			}

			metric := args[1]
			samples, err := st.Samples(ctx, test, metric, window)
			if err != nil {
				return fmt.Errorf("failed to read history of %s/%s: %w", test, metric, err)
			}

			if useJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(samples)
			}

			return printSamples(out, samples)
		},
	}

	historyCmd.Flags().IntVarP(&window, "window", "w", baseline.DefaultWindow, "Number of recent samples to show")
	historyCmd.Flags().BoolVarP(&useJSON, "json", "j", false, "Output in JSON format instead of YAML or a table")

	return historyCmd
}

func printSamples(w io.Writer, samples []store.Sample) error {
	if len(samples) == 0 {
		pterm.Info.WithWriter(w).Println("No samples stored")
		return nil
	}

	data := pterm.TableData{{"Commit", "Recorded", "Value", "Unit"}}
	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		unit := ""
		if s.Unit.IsSpecified() && !s.Unit.IsNull() {
			unit = s.Unit.MustGet()
		}
		data = append(data, []string{
			s.Commit,
			s.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.FormatFloat(s.Value, 'f', -1, 64),
			unit,
		})
		values = append(values, s.Value)
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(w).Render(); err != nil {
		return err
	}

	if b := baseline.Compute(values); b != nil {
		pterm.Info.WithWriter(w).Printfln("Baseline: %.3f (median of %d samples)", b.Value, b.Samples)
	}
	return nil
}
