// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/xataio/benchgate/pkg/baseline"
	"github.com/xataio/benchgate/pkg/ingest"
	"github.com/xataio/benchgate/pkg/regression"
)

// Version is the benchgate version, set at build time
var Version = "development"

const envPrefix = "BENCHGATE"

func init() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// Prepare builds the benchgate command tree and binds its flags to viper.
func Prepare() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "benchgate",
		Short: "Detect performance regressions in benchmark artifacts",
		Long: `benchgate records benchmark artifacts from a CI run in a local SQLite store,
compares every metric against the median of its recent history and writes a
markdown report. It exits with status 1 if any metric regressed beyond the
threshold and 2 if it could not run.`,
		Example:       "benchgate --baseline .benchgate/baseline.db --new 'build/**/*.json' --output report.md --commit $GIT_SHA",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runCheck,
	}

	rootCmd.PersistentFlags().String("baseline", "", "Path of the SQLite metric store, created if absent")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log every artifact and record")

	rootCmd.Flags().String("new", "", "Glob pattern of the benchmark artifacts to ingest ('**' matches directories)")
	rootCmd.Flags().Float64("threshold", regression.DefaultThreshold, "Fractional increase over the baseline that counts as a regression")
	rootCmd.Flags().String("output", "", "Path of the markdown report")
	rootCmd.Flags().String("commit", ingest.DefaultCommit, "Commit the artifacts are recorded under")
	rootCmd.Flags().Int("window", baseline.DefaultWindow, "Number of recent samples the baseline median is computed over")

	bindFlags(rootCmd.PersistentFlags(), "baseline", "verbose")
	bindFlags(rootCmd.Flags(), "new", "threshold", "output", "commit", "window")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(historyCmd())

	return rootCmd
}

// bindFlags binds each named flag to the viper key of the same name in upper
// case, which is also the suffix of its environment variable.
func bindFlags(fs *pflag.FlagSet, names ...string) {
	for _, name := range names {
		viper.BindPFlag(strings.ToUpper(name), fs.Lookup(name))
	}
}

// Execute executes the root command. Errors other than found regressions are
// printed to stderr.
func Execute() error {
	err := Prepare().Execute()
	if err != nil && !errors.Is(err, ErrRegressionsFound) {
		pterm.Error.WithWriter(os.Stderr).Println(err)
	}
	return err
}
