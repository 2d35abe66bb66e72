// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"github.com/spf13/cobra"
	"github.com/toeirei/clusterkey/internal/i18n"
	"github.com/toeirei/clusterkey/internal/registry"
)

type maintainer interface {
	RunMaintenance(ctx context.Context) error
}

func (a *app) registryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Back up, restore and maintain the registry database",
	}
	cmd.AddCommand(a.registryExportCmd(), a.registryImportCmd(), a.registryMaintainCmd())
	return cmd
}

func (a *app) registryExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write a compressed registry backup",
		Long: `Writes every node record and known host to a zstd-compressed JSON
backup. Published authkeys are part of the backup: pass --recipient to
encrypt it with age. "-" writes to standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipientStrs, _ := cmd.Flags().GetStringSlice("recipient")
			var recipients []age.Recipient
			for _, r := range recipientStrs {
				rec, err := age.ParseX25519Recipient(r)
				if err != nil {
					return fmt.Errorf("invalid recipient %q: %w", r, err)
				}
				recipients = append(recipients, rec)
			}
			return a.withStore(func(s registry.Store) error {
				data, err := registry.Export(cmd.Context(), s)
				if err != nil {
					return err
				}
				var w io.Writer = cmd.OutOrStdout()
				if args[0] != "-" {
					f, err := os.OpenFile(args[0], os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				if err := registry.WriteBackup(w, data, recipients...); err != nil {
					return err
				}
				if args[0] != "-" {
					fmt.Fprintln(cmd.OutOrStdout(), i18n.T("registry.exported", len(data.Nodes), args[0]))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSlice("recipient", nil, "age recipient (age1...) to encrypt the backup for")
	return cmd
}

func (a *app) registryImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Restore a registry backup",
		Long: `Restores node records and known hosts from a backup written by
'registry export'. Records are upserted by node name; --full also removes
records that are not in the backup.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			full, _ := cmd.Flags().GetBool("full")
			identityFile, _ := cmd.Flags().GetString("identity")

			var identities []age.Identity
			if identityFile != "" {
				f, err := os.Open(identityFile)
				if err != nil {
					return err
				}
				identities, err = age.ParseIdentities(f)
				f.Close()
				if err != nil {
					return fmt.Errorf("parse identity file: %w", err)
				}
			}

			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()
			data, err := registry.ReadBackup(in, identities...)
			if err != nil {
				return err
			}
			return a.withStore(func(s registry.Store) error {
				if err := registry.Import(cmd.Context(), s, data, full); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("registry.imported", len(data.Nodes)))
				return nil
			})
		},
	}
	cmd.Flags().Bool("full", false, "Delete records missing from the backup")
	cmd.Flags().String("identity", "", "age identity file for encrypted backups")
	return cmd
}

func (a *app) registryMaintainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Run database maintenance (VACUUM/OPTIMIZE)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return a.withStore(func(s registry.Store) error {
				m, ok := s.(maintainer)
				if !ok {
					return fmt.Errorf("registry backend %T does not support maintenance", s)
				}
				if err := m.RunMaintenance(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("registry.maintained"))
				return nil
			})
		},
	}
	cmd.Flags().Duration("timeout", 0, "Abort maintenance after this long (0 means the built-in limit)")
	return cmd
}
