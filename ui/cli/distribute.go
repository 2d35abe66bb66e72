// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toeirei/clusterkey/internal/deploy"
	"github.com/toeirei/clusterkey/internal/i18n"
	"github.com/toeirei/clusterkey/internal/model"
	"github.com/toeirei/clusterkey/internal/registry"
	"github.com/toeirei/clusterkey/internal/security"
	"github.com/toeirei/clusterkey/internal/sshkey"
	"github.com/toeirei/clusterkey/util/slicest"
	"golang.org/x/crypto/ssh"
)

func (a *app) connectionConfig() deploy.ConnectionConfig {
	c := deploy.DefaultConnectionConfig()
	if a.cfg.Deploy.User != "" {
		c.User = a.cfg.Deploy.User
	}
	if a.cfg.Deploy.Port != 0 {
		c.Port = a.cfg.Deploy.Port
	}
	return c
}

func (a *app) distributeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distribute [host...]",
		Short: "Push the local authkey to hosts over SFTP",
		Long: `Copies this node's authkey file to other hosts. Without arguments the
targets are the registered hostnames of the other nodes of the cluster.
Hosts that already have a key file are left alone. Host keys must have
been trusted with 'clusterkey trust-host' first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := a.fs.ReadFile(a.cfg.Cluster.AuthkeyFile)
			if err != nil {
				return fmt.Errorf("read local authkey: %w", err)
			}
			secret := security.Secret(raw)
			defer secret.Zero()

			var signer ssh.Signer
			if a.cfg.Deploy.PrivateKey != "" {
				signer, err = deploy.LoadSigner(a.cfg.Deploy.PrivateKey, a.passphrase)
				if err != nil {
					return err
				}
			}
			parallel, _ := cmd.Flags().GetInt("parallel")

			return a.withStore(func(s registry.Store) error {
				hosts := args
				if len(hosts) == 0 {
					hosts, err = a.clusterHosts(cmd, s)
					if err != nil {
						return err
					}
				}
				out := cmd.OutOrStdout()
				if len(hosts) == 0 {
					fmt.Fprintln(out, i18n.T("distribute.no_targets"))
					return nil
				}

				dialer := &deploy.Dialer{Config: a.connectionConfig(), Signer: signer, Hosts: s}
				d := &deploy.Distributor{
					Opener:   a.newOpener(a, dialer),
					KeyPath:  a.cfg.Cluster.AuthkeyFile,
					Secret:   secret,
					Parallel: parallel,
				}
				failed := 0
				for _, o := range d.Distribute(cmd.Context(), hosts) {
					switch {
					case o.Err != nil:
						failed++
						fmt.Fprintln(out, i18n.T("distribute.failed", o.Host, o.Err))
					case o.Installed:
						fmt.Fprintln(out, i18n.T("distribute.installed", o.Host))
					default:
						fmt.Fprintln(out, i18n.T("distribute.skipped", o.Host))
					}
				}
				if failed > 0 {
					return fmt.Errorf("distribution failed for %d of %d hosts", failed, len(hosts))
				}
				return nil
			})
		},
	}
	cmd.Flags().Int("parallel", 8, "Maximum number of concurrent connections")
	return cmd
}

// clusterHosts returns the hostnames of the other registered cluster members.
func (a *app) clusterHosts(cmd *cobra.Command, s registry.Searcher) ([]string, error) {
	cluster := model.ClusterIdentity(a.cfg.Cluster.Name)
	if !cluster.Valid() {
		return nil, fmt.Errorf("no hosts given and cluster.name is empty")
	}
	nodes, err := s.SearchNodes(cmd.Context(), model.Filter{Environment: a.cfg.Cluster.Environment, ClusterName: cluster})
	if err != nil {
		return nil, err
	}
	others := slicest.Filter(nodes, func(n model.NodeRecord) bool {
		return n.Name != a.cfg.Node.Name && n.Hostname != ""
	})
	return slicest.Map(others, func(n model.NodeRecord) string { return n.Hostname }), nil
}

func (a *app) trustHostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trust-host <host>",
		Short: "Add a host's SSH key to the registry's known hosts",
		Long: `Connects to a host, shows the fingerprint of its SSH host key and, after
confirmation, records the key. 'distribute' only talks to trusted hosts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host := args[0]
			if i := strings.LastIndex(host, "@"); i >= 0 {
				host = host[i+1:]
			}
			port := a.connectionConfig().Port
			yes, _ := cmd.Flags().GetBool("yes")

			key, err := deploy.GetRemoteHostKey(cmd.Context(), host, port)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, i18n.T("trust.fingerprint", host, ssh.FingerprintSHA256(key)))
			if warn := sshkey.CheckHostKeyAlgorithm(key); warn != "" {
				fmt.Fprintln(out, warn)
			}
			if !yes && !confirm(cmd.InOrStdin(), out, i18n.T("trust.confirm")) {
				fmt.Fprintln(out, i18n.T("trust.cancelled"))
				return nil
			}
			line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key)))
			return a.withStore(func(s registry.Store) error {
				if err := s.AddKnownHostKey(cmd.Context(), host, line); err != nil {
					return err
				}
				fmt.Fprintln(out, i18n.T("trust.added", host, line))
				return nil
			})
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Trust the key without asking")
	return cmd
}

// confirm asks prompt on w and reads a yes/no answer from r.
func confirm(r io.Reader, w io.Writer, prompt string) bool {
	fmt.Fprint(w, prompt+" ")
	answer, _ := bufio.NewReader(r).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes" || answer == strings.ToLower(i18n.T("answer.yes"))
}
