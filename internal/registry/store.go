// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package registry

import (
	"context"

	"github.com/toeirei/clusterkey/internal/model"
)

// Searcher answers registry queries. Results keep the registry's insertion
// order; callers that pick "the first match" rely on it.
type Searcher interface {
	SearchNodes(ctx context.Context, f model.Filter) ([]model.NodeRecord, error)
}

// NodeStore reads and persists a single node's own record.
type NodeStore interface {
	// LoadNode returns the stored record for name, or a fresh unsaved record
	// carrying only the name when none exists yet.
	LoadNode(ctx context.Context, name string) (*model.NodeRecord, error)
	// SaveNode inserts or updates the record identified by rec.Name.
	SaveNode(ctx context.Context, rec *model.NodeRecord) error
}

// Store is the full registry surface used by the command line.
type Store interface {
	Searcher
	NodeStore

	ListNodes(ctx context.Context) ([]model.NodeRecord, error)
	DeleteNode(ctx context.Context, name string) error

	GetKnownHostKey(ctx context.Context, hostname string) (string, error)
	AddKnownHostKey(ctx context.Context, hostname, key string) error
	ListKnownHosts(ctx context.Context) ([]model.KnownHost, error)

	Close() error
}
