// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package bootstrap

import (
	"context"
	"errors"
	"io/fs"
	"sort"

	"github.com/toeirei/clusterkey/internal/model"
	"github.com/toeirei/clusterkey/internal/registry"
	"github.com/toeirei/clusterkey/internal/security"
	"github.com/toeirei/clusterkey/internal/system"
)

// Report summarizes how far a cluster has converged on a single key.
type Report struct {
	Cluster model.ClusterIdentity
	// Local is the fingerprint of this node's key file ("" when absent).
	Local string
	// Published maps each distinct published fingerprint to the nodes
	// carrying it, in registry order.
	Published map[string][]string
	// Pending lists cluster members without a published key.
	Pending []string
	// Invalid lists members whose published value does not decode.
	Invalid []string
}

// Converged reports whether exactly one key is published and the local file
// (when present) matches it.
func (r Report) Converged() bool {
	if len(r.Published) != 1 || len(r.Invalid) > 0 {
		return false
	}
	if r.Local == "" {
		return true
	}
	_, ok := r.Published[r.Local]
	return ok
}

// Fingerprints returns the distinct published fingerprints, sorted.
func (r Report) Fingerprints() []string {
	out := make([]string, 0, len(r.Published))
	for fp := range r.Published {
		out = append(out, fp)
	}
	sort.Strings(out)
	return out
}

// Verify inspects the registry and the local key file. It never mutates
// anything; a split secret is reported, not repaired.
func Verify(ctx context.Context, s registry.Searcher, fsys system.FS, cfg Config) (Report, error) {
	if !cfg.ClusterName.Valid() {
		return Report{}, &ConfigurationError{Field: "cluster_name", Reason: "is empty"}
	}
	rep := Report{Cluster: cfg.ClusterName, Published: map[string][]string{}}

	if cfg.AuthkeyFile != "" {
		raw, err := fsys.ReadFile(cfg.AuthkeyFile)
		switch {
		case err == nil:
			rep.Local = security.Fingerprint(security.Secret(raw))
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Report{}, actionErr("read authkey file", err)
		}
	}

	members, err := s.SearchNodes(ctx, model.Filter{Environment: cfg.Environment, ClusterName: cfg.ClusterName})
	if err != nil {
		return Report{}, actionErr("search registry", err)
	}
	for _, m := range members {
		encoded, ok := m.Authkey()
		if !ok {
			rep.Pending = append(rep.Pending, m.Name)
			continue
		}
		secret, err := security.Decode(encoded)
		if err != nil {
			rep.Invalid = append(rep.Invalid, m.Name)
			continue
		}
		fp := security.Fingerprint(secret)
		rep.Published[fp] = append(rep.Published[fp], m.Name)
	}
	return rep, nil
}
