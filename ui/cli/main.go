// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/toeirei/clusterkey/buildvars"
	"github.com/toeirei/clusterkey/internal/config"
	"github.com/toeirei/clusterkey/internal/deploy"
	"github.com/toeirei/clusterkey/internal/i18n"
	"github.com/toeirei/clusterkey/internal/logging"
	"github.com/toeirei/clusterkey/internal/registry"
	"github.com/toeirei/clusterkey/internal/state"
	"github.com/toeirei/clusterkey/internal/system"
)

const modulePath = "github.com/toeirei/clusterkey"

var version = "dev"   // set by the linker
var gitCommit = "dev" // short commit SHA, set at build time
var buildDate = ""    // RFC3339, set at build time

// app holds the state shared by the commands of one root command.
type app struct {
	cfgFile string
	verbose bool
	cfg     config.Config

	openStore  func(dbType, dsn string) (registry.Store, error)
	fs         system.FS
	runner     system.Runner
	passphrase deploy.PassphraseFunc
	newOpener  func(a *app, d *deploy.Dialer) deploy.SessionOpener
}

func newApp() *app {
	return &app{
		openStore: func(dbType, dsn string) (registry.Store, error) {
			s, err := registry.NewStoreFromDSN(dbType, dsn)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		fs:         system.OSFS{},
		runner:     system.ExecRunner{},
		passphrase: state.Passphrases.Remember(deploy.TerminalPassphrase),
		newOpener:  func(_ *app, d *deploy.Dialer) deploy.SessionOpener { return d },
	}
}

// Execute runs the CLI. The main package handles the returned error.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds a fresh command tree; tests create one per case.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clusterkey",
		Short: "Bootstrap and share a cluster's authkey",
		Long: `clusterkey makes sure every node of a cluster holds the same shared
authkey. The first node of a cluster generates the key and publishes it
in the registry; every later node installs the published key.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	cmd.Version = compositeVersion()

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging, including registry queries")
	pf.String("language", "", `Output language ("en", "de")`)
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("cluster-name", "", "Cluster identity")
	pf.String("cluster-authkey-file", "", "Path of the authkey file")
	pf.String("cluster-environment", "", "Environment the cluster lives in")
	pf.String("node-name", "", "Name of this node in the registry (default: hostname)")
	pf.String("node-owner", "", "Owner of an installed authkey file")
	pf.Bool("registry-offline", false, "Standalone mode without registry search")
	pf.String("database-type", "", "Registry database type (sqlite, postgres, mysql)")
	pf.String("database-dsn", "", "Registry database connection string")

	cmd.AddCommand(
		a.bootstrapCmd(),
		a.statusCmd(),
		a.searchCmd(),
		a.verifyCmd(),
		a.distributeCmd(),
		a.trustHostCmd(),
		a.registryCmd(),
		a.configCmd(),
		versionCmd(),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cmd, config.Defaults(), a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	a.cfg = c
	level := c.Log.Level
	if a.verbose {
		level = "debug"
		registry.SetDebug(true)
	}
	if err := logging.SetLevel(level); err != nil {
		return err
	}
	i18n.Init(c.Language)
	return nil
}

// withStore opens the registry, runs fn and closes it again.
func (a *app) withStore(fn func(registry.Store) error) error {
	s, err := a.openStore(a.cfg.Database.Type, a.cfg.Database.Dsn)
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer s.Close()
	return fn(s)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", v)
			fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}
}

func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	if c != "" && c != "dev" {
		v += " (" + c + ")"
	}
	if d != "" {
		v += " built: " + d
	}
	return v
}

// resolveBuildVersion picks the best available version, commit and build
// date. A nil info reads the running binary's build info.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := buildvars.VersionOrDefault(version)
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}
	if info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		if resolvedVersion == "dev" || resolvedVersion == "(devel)" {
			for _, dep := range info.Deps {
				if dep.Path == modulePath && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}
	return resolvedVersion, resolvedCommit, resolvedDate
}
