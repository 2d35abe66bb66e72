// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package registry

import (
	"testing"

	"github.com/toeirei/clusterkey/internal/model"
)

// newTestStore opens an in-memory sqlite registry that is closed when the
// test finishes.
func newTestStore(t *testing.T) *BunStore {
	t.Helper()
	s, err := NewStoreFromDSN("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("NewStoreFromDSN failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(name, env, cluster, authkey string) model.NodeRecord {
	rec := model.NodeRecord{Name: name, Environment: env, ClusterName: model.ClusterIdentity(cluster)}
	rec.SetAuthkey(authkey)
	return rec
}
