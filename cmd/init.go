// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/xataio/benchgate/cmd/flags"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or upgrade the metric store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			location := flags.Baseline()
			if location == "" {
				return errStoreNotConfigured
			}

			st, err := openStore(ctx, location)
			if err != nil {
				return err
			}
			defer st.Close()

			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Initialization done! Metric store ready at %s", location)
			return nil
		},
	}
}
