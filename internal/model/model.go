// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the core data structures shared by the registry,
// the bootstrapper and the command line interface.
package model // import "github.com/toeirei/clusterkey/internal/model"

import (
	"fmt"
	"strings"
	"time"
)

// ClusterIdentity names the group of nodes that must share one secret.
type ClusterIdentity string

// Valid reports whether the identity is usable (non-empty after trimming).
func (c ClusterIdentity) Valid() bool {
	return strings.TrimSpace(string(c)) != ""
}

func (c ClusterIdentity) String() string { return string(c) }

// NodeRecord is one entry of the fleet registry. Each node owns exactly one
// record and is the only writer of it.
type NodeRecord struct {
	ID          int             // The primary key assigned by the registry (0 when unsaved).
	Name        string          // Unique node name, e.g. the FQDN.
	Environment string          // Deployment environment the node belongs to.
	ClusterName ClusterIdentity // Cluster membership tag.
	Hostname    string          // Optional address used for push distribution.
	UpdatedAt   time.Time       // Last time the record was saved.

	authkey string
}

// Authkey returns the published, base64-encoded secret and whether one is set.
func (n *NodeRecord) Authkey() (string, bool) {
	if n == nil || n.authkey == "" {
		return "", false
	}
	return n.authkey, true
}

// HasAuthkey reports whether the record carries a published secret.
func (n *NodeRecord) HasAuthkey() bool {
	_, ok := n.Authkey()
	return ok
}

// SetAuthkey replaces the published secret. Callers wanting set-if-absent
// semantics check Authkey first.
func (n *NodeRecord) SetAuthkey(encoded string) {
	n.authkey = encoded
}

// String returns the node name with its cluster, e.g. "node1 (web01/prod)".
func (n NodeRecord) String() string {
	if n.ClusterName == "" {
		return n.Name
	}
	return fmt.Sprintf("%s (%s/%s)", n.Name, n.ClusterName, n.Environment)
}

// Filter restricts a registry search. Empty string fields match anything.
type Filter struct {
	Environment string
	ClusterName ClusterIdentity
	HasAuthkey  bool
}

// Matches reports whether rec satisfies the filter.
func (f Filter) Matches(rec NodeRecord) bool {
	if f.Environment != "" && rec.Environment != f.Environment {
		return false
	}
	if f.ClusterName != "" && rec.ClusterName != f.ClusterName {
		return false
	}
	if f.HasAuthkey && !rec.HasAuthkey() {
		return false
	}
	return true
}

// String renders the filter in registry query syntax.
func (f Filter) String() string {
	var terms []string
	if f.Environment != "" {
		terms = append(terms, "environment:"+f.Environment)
	}
	if f.ClusterName != "" {
		terms = append(terms, "cluster:"+string(f.ClusterName))
	}
	if f.HasAuthkey {
		terms = append(terms, "authkey")
	}
	if len(terms) == 0 {
		return "*"
	}
	return strings.Join(terms, " AND ")
}

// KnownHost is a trusted SSH host key used when pushing key files to members.
type KnownHost struct {
	Hostname string
	Key      string
}

// BackupRecord is the serialized form of a NodeRecord inside a backup.
type BackupRecord struct {
	Name        string    `json:"name"`
	Environment string    `json:"environment"`
	ClusterName string    `json:"cluster_name"`
	Hostname    string    `json:"hostname,omitempty"`
	Authkey     string    `json:"authkey,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BackupData holds a full export of the registry.
type BackupData struct {
	SchemaVersion int            `json:"schema_version"`
	ExportedAt    time.Time      `json:"exported_at"`
	Nodes         []BackupRecord `json:"nodes"`
	KnownHosts    []KnownHost    `json:"known_hosts,omitempty"`
}

// ToBackup converts a record into its backup representation.
func (n NodeRecord) ToBackup() BackupRecord {
	key, _ := n.Authkey()
	return BackupRecord{
		Name:        n.Name,
		Environment: n.Environment,
		ClusterName: string(n.ClusterName),
		Hostname:    n.Hostname,
		Authkey:     key,
		UpdatedAt:   n.UpdatedAt,
	}
}

// FromBackup converts a backup entry back into a NodeRecord.
func FromBackup(b BackupRecord) NodeRecord {
	rec := NodeRecord{
		Name:        b.Name,
		Environment: b.Environment,
		ClusterName: ClusterIdentity(b.ClusterName),
		Hostname:    b.Hostname,
		UpdatedAt:   b.UpdatedAt,
	}
	rec.SetAuthkey(b.Authkey)
	return rec
}
