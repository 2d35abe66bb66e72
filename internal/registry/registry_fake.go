// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/toeirei/clusterkey/internal/model"
)

// FakeRegistry is an ordered, in-memory Store used by tests. It implements
// the same query contract as BunStore.
type FakeRegistry struct {
	mu     sync.Mutex
	nodes  []model.NodeRecord
	hosts  map[string]string
	nextID int

	// Queries records every filter passed to SearchNodes.
	Queries []model.Filter
	// Saves counts successful SaveNode calls.
	Saves int

	// SearchErr, if non-nil, is returned by SearchNodes.
	SearchErr error
	// SaveErr, if non-nil, is returned by SaveNode.
	SaveErr error
}

// NewFakeRegistry returns a fake seeded with recs in the given order.
func NewFakeRegistry(recs ...model.NodeRecord) *FakeRegistry {
	f := &FakeRegistry{hosts: map[string]string{}}
	for _, r := range recs {
		f.Put(r)
	}
	return f
}

// Put inserts or replaces a record without counting it as a save.
func (f *FakeRegistry) Put(rec model.NodeRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(rec)
}

func (f *FakeRegistry) put(rec model.NodeRecord) model.NodeRecord {
	for i := range f.nodes {
		if f.nodes[i].Name == rec.Name {
			rec.ID = f.nodes[i].ID
			f.nodes[i] = rec
			return rec
		}
	}
	f.nextID++
	rec.ID = f.nextID
	f.nodes = append(f.nodes, rec)
	return rec
}

// Node returns a copy of the named record.
func (f *FakeRegistry) Node(name string) (model.NodeRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.nodes {
		if n.Name == name {
			return n, true
		}
	}
	return model.NodeRecord{}, false
}

// SearchNodes implements Searcher.
func (f *FakeRegistry) SearchNodes(ctx context.Context, filter model.Filter) ([]model.NodeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, filter)
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	out := []model.NodeRecord{}
	for _, n := range f.nodes {
		if filter.Matches(n) {
			out = append(out, n)
		}
	}
	return out, nil
}

// LoadNode implements NodeStore.
func (f *FakeRegistry) LoadNode(ctx context.Context, name string) (*model.NodeRecord, error) {
	if n, ok := f.Node(name); ok {
		return &n, nil
	}
	return &model.NodeRecord{Name: name}, nil
}

// SaveNode implements NodeStore.
func (f *FakeRegistry) SaveNode(ctx context.Context, rec *model.NodeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SaveErr != nil {
		return f.SaveErr
	}
	rec.UpdatedAt = time.Now().UTC()
	saved := f.put(*rec)
	rec.ID = saved.ID
	f.Saves++
	return nil
}

// ListNodes implements Store.
func (f *FakeRegistry) ListNodes(ctx context.Context) ([]model.NodeRecord, error) {
	return f.SearchNodes(ctx, model.Filter{})
}

// DeleteNode implements Store.
func (f *FakeRegistry) DeleteNode(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.nodes {
		if n.Name == name {
			f.nodes = append(f.nodes[:i], f.nodes[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// GetKnownHostKey implements Store.
func (f *FakeRegistry) GetKnownHostKey(ctx context.Context, hostname string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hosts[hostname], nil
}

// AddKnownHostKey implements Store.
func (f *FakeRegistry) AddKnownHostKey(ctx context.Context, hostname, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hosts == nil {
		f.hosts = map[string]string{}
	}
	f.hosts[hostname] = key
	return nil
}

// ListKnownHosts implements Store.
func (f *FakeRegistry) ListKnownHosts(ctx context.Context) ([]model.KnownHost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.KnownHost, 0, len(f.hosts))
	for h, k := range f.hosts {
		out = append(out, model.KnownHost{Hostname: h, Key: k})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hostname < out[j].Hostname })
	return out, nil
}

// Close implements Store.
func (f *FakeRegistry) Close() error { return nil }
