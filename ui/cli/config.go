// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/toeirei/clusterkey/internal/config"
	"github.com/toeirei/clusterkey/internal/i18n"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	write := &cobra.Command{
		Use:   "write",
		Short: "Write the effective configuration to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("path")
			system, _ := cmd.Flags().GetBool("system")
			written, err := config.WriteConfigFile(&a.cfg, path, system)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("config.written", written))
			return nil
		},
	}
	write.Flags().String("path", "", "Destination file (default: user config location)")
	write.Flags().Bool("system", false, "Write the system-wide configuration")
	cmd.AddCommand(write)
	return cmd
}
