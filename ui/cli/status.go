// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/toeirei/clusterkey/internal/bootstrap"
	"github.com/toeirei/clusterkey/internal/i18n"
	"github.com/toeirei/clusterkey/internal/model"
	"github.com/toeirei/clusterkey/internal/registry"
	"github.com/toeirei/clusterkey/internal/security"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List the registry records of this cluster",
		Long: `Lists every node of the configured cluster and environment with the
fingerprint of the authkey it publishes. Without a cluster name all
nodes are listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := model.Filter{}
			if a.cfg.Cluster.Name != "" {
				f.Environment = a.cfg.Cluster.Environment
				f.ClusterName = model.ClusterIdentity(a.cfg.Cluster.Name)
			}
			return a.withStore(func(s registry.Store) error {
				nodes, err := s.SearchNodes(cmd.Context(), f)
				if err != nil {
					return err
				}
				renderNodes(cmd.OutOrStdout(), nodes, i18n.T("status.no_nodes"))
				return nil
			})
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the registry",
		Long: `Searches node records. A query is a list of terms joined by AND:
  environment:<env>   cluster:<name>   authkey
for example "environment:prod AND cluster:web01 AND authkey". The
chef-style field names chef_environment, corosync_cluster_name and
corosync:authkey are accepted as well. "*" lists every node.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := registry.ParseQuery(strings.Join(args, " "))
			if err != nil {
				return err
			}
			return a.withStore(func(s registry.Store) error {
				nodes, err := s.SearchNodes(cmd.Context(), f)
				if err != nil {
					return err
				}
				renderNodes(cmd.OutOrStdout(), nodes, i18n.T("search.no_results"))
				return nil
			})
		},
	}
}

// renderNodes prints nodes as a table, or empty when there are none.
func renderNodes(w io.Writer, nodes []model.NodeRecord, empty string) {
	if len(nodes) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(
			i18n.T("status.node"),
			i18n.T("status.cluster"),
			i18n.T("status.environment"),
			i18n.T("status.hostname"),
			i18n.T("status.authkey"),
			i18n.T("status.updated"),
		)
	for i := range nodes {
		n := &nodes[i]
		updated := ""
		if !n.UpdatedAt.IsZero() {
			updated = n.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		t.Row(n.Name, string(n.ClusterName), n.Environment, n.Hostname, authkeyColumn(n), updated)
	}
	fmt.Fprintln(w, t.Render())
}

func authkeyColumn(n *model.NodeRecord) string {
	encoded, ok := n.Authkey()
	if !ok {
		return i18n.T("answer.none")
	}
	secret, err := security.Decode(encoded)
	if err != nil {
		return "invalid"
	}
	defer secret.Zero()
	return security.Fingerprint(secret)
}

var errNotConverged = errors.New("cluster has not converged on one authkey")

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that the cluster shares a single authkey",
		Long: `Compares the local authkey file with every key published by nodes of
the cluster. Exits non-zero when more than one key is published or the
local file differs. Nothing is repaired.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.bootstrapConfig()
			return a.withStore(func(s registry.Store) error {
				rep, err := bootstrap.Verify(cmd.Context(), s, a.fs, cfg)
				if err != nil {
					return err
				}
				printReport(cmd.OutOrStdout(), rep)
				if !rep.Converged() {
					return fmt.Errorf("%w: %s", errNotConverged, rep.Cluster)
				}
				return nil
			})
		},
	}
}

func printReport(w io.Writer, rep bootstrap.Report) {
	fps := rep.Fingerprints()
	switch {
	case len(fps) == 0:
		fmt.Fprintln(w, i18n.T("verify.no_key", rep.Cluster))
	case rep.Converged():
		fmt.Fprintln(w, i18n.T("verify.converged", rep.Cluster, fps[0]))
	case len(fps) > 1:
		fmt.Fprintln(w, i18n.T("verify.split", rep.Cluster, len(fps)))
		for _, fp := range fps {
			fmt.Fprintf(w, "  %s  %s\n", fp, strings.Join(rep.Published[fp], ", "))
		}
	}
	if rep.Local == "" {
		fmt.Fprintln(w, i18n.T("verify.local_missing"))
	} else {
		fmt.Fprintln(w, i18n.T("verify.local", rep.Local))
		if _, ok := rep.Published[rep.Local]; !ok && len(fps) > 0 {
			fmt.Fprintln(w, i18n.T("verify.local_mismatch"))
		}
	}
	if len(rep.Pending) > 0 {
		fmt.Fprintln(w, i18n.T("verify.pending", strings.Join(rep.Pending, ", ")))
	}
	if len(rep.Invalid) > 0 {
		fmt.Fprintln(w, i18n.T("verify.invalid", strings.Join(rep.Invalid, ", ")))
	}
}
