// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"github.com/toeirei/clusterkey/internal/bootstrap"
	"github.com/toeirei/clusterkey/internal/i18n"
	"github.com/toeirei/clusterkey/internal/model"
	"github.com/toeirei/clusterkey/internal/registry"
	"github.com/toeirei/clusterkey/internal/system"
)

func (a *app) bootstrapConfig() bootstrap.Config {
	c := a.cfg
	return bootstrap.Config{
		ClusterName:    model.ClusterIdentity(c.Cluster.Name),
		AuthkeyFile:    c.Cluster.AuthkeyFile,
		Environment:    c.Cluster.Environment,
		NodeName:       c.Node.Name,
		Hostname:       c.Node.Hostname,
		Owner:          c.Node.Owner,
		Offline:        c.Registry.Offline,
		EntropyPackage: c.Entropy.Package,
		EntropyService: c.Entropy.Service,
	}
}

func (a *app) keyGenerator() system.KeyGenerator {
	c := a.cfg
	if c.Keygen.Builtin {
		return &system.RandomKeyGenerator{FS: a.fs, Size: c.Keygen.Size, Owner: c.Node.Owner}
	}
	args := c.Keygen.Command
	if len(args) == 0 {
		args = system.DefaultKeygenCommand
	}
	return &system.CommandKeyGenerator{Runner: a.runner, FS: a.fs, Args: args}
}

func (a *app) bootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Make sure this node holds the cluster authkey",
		Long: `Installs the cluster authkey on this node. If the key file already
exists nothing happens. Otherwise the registry is searched for a node of
the same cluster that publishes the key; its key is installed. When no
such node exists, a new key is generated and published.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.bootstrapConfig()
			reg := &lazyRegistry{open: func() (registry.Store, error) {
				return a.openStore(a.cfg.Database.Type, a.cfg.Database.Dsn)
			}}
			defer reg.Close()

			deps := bootstrap.Deps{
				FS:       a.fs,
				Packages: detectedPackages{runner: a.runner},
				Services: &system.Systemd{Runner: a.runner},
				Keygen:   a.keyGenerator(),
			}
			if !cfg.Offline {
				deps.Registry = reg
				deps.Nodes = reg
			}

			res, err := bootstrap.New(cfg, deps).Run(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch res.Action {
			case bootstrap.ActionAlreadyPresent:
				fmt.Fprintln(out, i18n.T("bootstrap.already_present", cfg.AuthkeyFile))
			case bootstrap.ActionGenerated:
				fmt.Fprintln(out, i18n.T("bootstrap.generated", cfg.ClusterName, res.Fingerprint))
			case bootstrap.ActionFetched:
				fmt.Fprintln(out, i18n.T("bootstrap.fetched", res.Source, res.Fingerprint))
			}
			return nil
		},
	}
}

// lazyRegistry opens the store on first use, so a run that finds the key
// file in place never connects to the database.
type lazyRegistry struct {
	open func() (registry.Store, error)

	once  sync.Once
	store registry.Store
	err   error
}

func (l *lazyRegistry) get() (registry.Store, error) {
	l.once.Do(func() { l.store, l.err = l.open() })
	return l.store, l.err
}

func (l *lazyRegistry) SearchNodes(ctx context.Context, f model.Filter) ([]model.NodeRecord, error) {
	s, err := l.get()
	if err != nil {
		return nil, err
	}
	return s.SearchNodes(ctx, f)
}

func (l *lazyRegistry) LoadNode(ctx context.Context, name string) (*model.NodeRecord, error) {
	s, err := l.get()
	if err != nil {
		return nil, err
	}
	return s.LoadNode(ctx, name)
}

func (l *lazyRegistry) SaveNode(ctx context.Context, rec *model.NodeRecord) error {
	s, err := l.get()
	if err != nil {
		return err
	}
	return s.SaveNode(ctx, rec)
}

func (l *lazyRegistry) Close() error {
	if l.store != nil {
		return l.store.Close()
	}
	return nil
}

// detectedPackages picks the distribution's package tool on first install.
type detectedPackages struct{ runner system.Runner }

func (d detectedPackages) Install(ctx context.Context, name string) error {
	pm, err := system.DetectPackageManager(d.runner)
	if err != nil {
		return err
	}
	return pm.Install(ctx, name)
}
