// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

// package bootstrap makes sure a node holds its cluster's shared authkey.
// The first node of a cluster generates the key and publishes it to the
// registry; every later node copies the first published value it finds.
//
// There is no lock between the registry query and the publication: two
// nodes bootstrapping the same new cluster at once can both generate a key.
// `clusterkey verify` reports such a split.
package bootstrap // import "github.com/toeirei/clusterkey/internal/bootstrap"

import (
	"context"
	"strings"

	"github.com/toeirei/clusterkey/internal/logging"
	"github.com/toeirei/clusterkey/internal/model"
	"github.com/toeirei/clusterkey/internal/registry"
	"github.com/toeirei/clusterkey/internal/security"
	"github.com/toeirei/clusterkey/internal/system"
	"github.com/toeirei/clusterkey/util/slicest"
)

// Config carries everything a run needs to know about this node.
type Config struct {
	ClusterName model.ClusterIdentity
	AuthkeyFile string
	Environment string
	NodeName    string
	// Hostname is recorded on the node's registry entry when set.
	Hostname string
	// Owner of the key file written on the follower path.
	Owner string
	// Offline marks standalone mode, in which registry search is unavailable.
	Offline bool
	// EntropyPackage and EntropyService are installed and started before a
	// key is generated. Empty values skip the step.
	EntropyPackage string
	EntropyService string
}

// Deps are the external collaborators of a run.
type Deps struct {
	Registry registry.Searcher
	Nodes    registry.NodeStore
	FS       system.FS
	Packages system.PackageManager
	Services system.ServiceManager
	Keygen   system.KeyGenerator
}

// Action describes what a run did.
type Action int

const (
	// ActionAlreadyPresent: the key file existed, nothing was done.
	ActionAlreadyPresent Action = iota
	// ActionGenerated: this node generated and published the key.
	ActionGenerated
	// ActionFetched: the key was copied from another node's record.
	ActionFetched
)

func (a Action) String() string {
	switch a {
	case ActionAlreadyPresent:
		return "already-present"
	case ActionGenerated:
		return "generated"
	case ActionFetched:
		return "fetched"
	default:
		return "unknown"
	}
}

// Result is returned by a successful run.
type Result struct {
	Action Action
	// Source is the node the key was copied from (ActionFetched only).
	Source string
	// Fingerprint identifies the key now on disk; empty for ActionAlreadyPresent.
	Fingerprint string
}

// Bootstrapper runs the key bootstrap for one node.
type Bootstrapper struct {
	cfg  Config
	deps Deps
}

// New returns a Bootstrapper for cfg.
func New(cfg Config, deps Deps) *Bootstrapper {
	return &Bootstrapper{cfg: cfg, deps: deps}
}

// Run executes one bootstrap pass. Every error is terminal: nothing is
// retried and nothing already done is rolled back.
func (b *Bootstrapper) Run(ctx context.Context) (Result, error) {
	cfg := b.cfg
	if strings.TrimSpace(cfg.AuthkeyFile) == "" {
		return Result{}, &ConfigurationError{Field: "authkey_file", Reason: "is empty"}
	}
	if !cfg.ClusterName.Valid() {
		return Result{}, &ConfigurationError{Field: "cluster_name", Reason: "is empty; couldn't figure out the cluster name"}
	}
	if strings.TrimSpace(cfg.NodeName) == "" {
		return Result{}, &ConfigurationError{Field: "node_name", Reason: "is empty"}
	}

	exists, err := b.deps.FS.Exists(cfg.AuthkeyFile)
	if err != nil {
		return Result{}, actionErr("check authkey file", err)
	}
	if exists {
		logging.Infof("%s already exists", cfg.AuthkeyFile)
		return Result{Action: ActionAlreadyPresent}, nil
	}

	if cfg.Offline || b.deps.Registry == nil || b.deps.Nodes == nil {
		return Result{}, &CapabilityUnavailableError{
			Capability: "registry search",
			Reason:     "bootstrap needs to search the registry, which standalone mode does not support",
		}
	}

	filter := model.Filter{Environment: cfg.Environment, ClusterName: cfg.ClusterName, HasAuthkey: true}
	matches, err := b.deps.Registry.SearchNodes(ctx, filter)
	if err != nil {
		return Result{}, actionErr("search registry", err)
	}
	logging.Info("nodes with authkey", "query", filter.String(), "nodes", nodeNames(matches))

	if len(matches) == 0 {
		return b.generate(ctx)
	}
	return b.fetch(ctx, matches[0])
}

// generate makes this node the cluster's key generator.
func (b *Bootstrapper) generate(ctx context.Context) (Result, error) {
	cfg := b.cfg
	if cfg.EntropyPackage != "" {
		if err := b.deps.Packages.Install(ctx, cfg.EntropyPackage); err != nil {
			return Result{}, actionErr("install entropy source", err)
		}
	}
	if cfg.EntropyService != "" {
		if err := b.deps.Services.Enable(ctx, cfg.EntropyService); err != nil {
			return Result{}, actionErr("enable entropy service", err)
		}
		if err := b.deps.Services.Start(ctx, cfg.EntropyService); err != nil {
			return Result{}, actionErr("start entropy service", err)
		}
	}

	created, err := b.deps.Keygen.Generate(ctx, cfg.AuthkeyFile)
	if err != nil {
		return Result{}, actionErr("generate authkey", err)
	}
	if !created {
		// Something else wrote the file between our checks. It is not ours
		// to publish.
		logging.Infof("%s appeared during generation; not publishing", cfg.AuthkeyFile)
		return Result{Action: ActionAlreadyPresent}, nil
	}

	raw, err := b.deps.FS.ReadFile(cfg.AuthkeyFile)
	if err != nil {
		return Result{}, actionErr("read generated authkey", err)
	}
	secret := security.Secret(raw)
	defer secret.Zero()
	encoded := security.Encode(secret)

	rec, err := b.loadOwnRecord(ctx)
	if err != nil {
		return Result{}, err
	}
	if _, ok := rec.Authkey(); ok {
		logging.Warnf("node %s already publishes an authkey; keeping it", rec.Name)
	} else {
		rec.SetAuthkey(encoded)
	}
	if err := b.deps.Nodes.SaveNode(ctx, rec); err != nil {
		return Result{}, actionErr("save node record", err)
	}

	fp := security.Fingerprint(secret)
	logging.Info("generated cluster authkey", "cluster", cfg.ClusterName, "fingerprint", fp)
	return Result{Action: ActionGenerated, Fingerprint: fp}, nil
}

// fetch copies the key published by src.
func (b *Bootstrapper) fetch(ctx context.Context, src model.NodeRecord) (Result, error) {
	cfg := b.cfg
	encoded, ok := src.Authkey()
	if !ok {
		return Result{}, actionErr("read published authkey", &ConfigurationError{Field: "node " + src.Name, Reason: "matched the query without an authkey"})
	}
	logging.Infof("Using authkey from node: %s", src.Name)

	secret, err := security.Decode(encoded)
	if err != nil {
		return Result{}, actionErr("decode authkey from "+src.Name, err)
	}
	defer secret.Zero()

	exists, err := b.deps.FS.Exists(cfg.AuthkeyFile)
	if err != nil {
		return Result{}, actionErr("check authkey file", err)
	}
	if !exists {
		if err := b.deps.FS.WriteFile(cfg.AuthkeyFile, secret, system.KeyFileMode, cfg.Owner); err != nil {
			return Result{}, actionErr("write authkey file", err)
		}
	}

	// Publish the value on our own record as well so later nodes can find
	// it on more than one node.
	rec, err := b.loadOwnRecord(ctx)
	if err != nil {
		return Result{}, err
	}
	rec.SetAuthkey(encoded)
	if err := b.deps.Nodes.SaveNode(ctx, rec); err != nil {
		return Result{}, actionErr("save node record", err)
	}

	return Result{Action: ActionFetched, Source: src.Name, Fingerprint: security.Fingerprint(secret)}, nil
}

func (b *Bootstrapper) loadOwnRecord(ctx context.Context) (*model.NodeRecord, error) {
	rec, err := b.deps.Nodes.LoadNode(ctx, b.cfg.NodeName)
	if err != nil {
		return nil, actionErr("load node record", err)
	}
	rec.Environment = b.cfg.Environment
	rec.ClusterName = b.cfg.ClusterName
	if b.cfg.Hostname != "" {
		rec.Hostname = b.cfg.Hostname
	}
	return rec, nil
}

func nodeNames(recs []model.NodeRecord) []string {
	return slicest.Map(recs, func(r model.NodeRecord) string { return r.Name })
}
