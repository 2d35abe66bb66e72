// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/toeirei/clusterkey/internal/model"
	"github.com/uptrace/bun"
)

// NodeModel maps the `nodes` table for Bun queries.
type NodeModel struct {
	bun.BaseModel `bun:"table:nodes"`
	ID            int            `bun:"id,pk,autoincrement"`
	Name          string         `bun:"name"`
	Environment   string         `bun:"environment"`
	ClusterName   string         `bun:"cluster_name"`
	Hostname      sql.NullString `bun:"hostname"`
	Authkey       sql.NullString `bun:"authkey"`
	UpdatedAt     time.Time      `bun:"updated_at"`
}

// KnownHostModel maps the `known_hosts` table.
type KnownHostModel struct {
	bun.BaseModel `bun:"table:known_hosts"`
	Hostname      string `bun:"hostname,pk"`
	HostKey       string `bun:"host_key"`
}

func nodeModelToModel(m NodeModel) model.NodeRecord {
	rec := model.NodeRecord{
		ID:          m.ID,
		Name:        m.Name,
		Environment: m.Environment,
		ClusterName: model.ClusterIdentity(m.ClusterName),
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Hostname.Valid {
		rec.Hostname = m.Hostname.String
	}
	if m.Authkey.Valid {
		rec.SetAuthkey(m.Authkey.String)
	}
	return rec
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func modelToNodeModel(rec *model.NodeRecord) NodeModel {
	key, _ := rec.Authkey()
	return NodeModel{
		ID:          rec.ID,
		Name:        rec.Name,
		Environment: rec.Environment,
		ClusterName: string(rec.ClusterName),
		Hostname:    nullString(rec.Hostname),
		Authkey:     nullString(key),
		UpdatedAt:   rec.UpdatedAt,
	}
}

// BunStore is the SQL-backed registry.
type BunStore struct {
	bun    *bun.DB
	dbType string
}

// BunDB exposes the underlying Bun handle for maintenance tooling.
func (s *BunStore) BunDB() *bun.DB { return s.bun }

// Type returns the configured database type.
func (s *BunStore) Type() string { return s.dbType }

// Close releases the database handle.
func (s *BunStore) Close() error { return s.bun.Close() }

// SearchNodes returns all records matching f ordered by id.
func (s *BunStore) SearchNodes(ctx context.Context, f model.Filter) ([]model.NodeRecord, error) {
	var rows []NodeModel
	q := s.bun.NewSelect().Model(&rows)
	if f.Environment != "" {
		q = q.Where("environment = ?", f.Environment)
	}
	if f.ClusterName != "" {
		q = q.Where("cluster_name = ?", string(f.ClusterName))
	}
	if f.HasAuthkey {
		q = q.Where("authkey IS NOT NULL").Where("authkey <> ''")
	}
	if err := q.OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("search nodes (%s): %w", f, err)
	}
	out := make([]model.NodeRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, nodeModelToModel(r))
	}
	dbLogf("registry: query %q matched %d node(s)", f.String(), len(out))
	return out, nil
}

// ListNodes returns every record ordered by id.
func (s *BunStore) ListNodes(ctx context.Context) ([]model.NodeRecord, error) {
	return s.SearchNodes(ctx, model.Filter{})
}

func (s *BunStore) getByName(ctx context.Context, db bun.IDB, name string) (*NodeModel, error) {
	var m NodeModel
	err := db.NewSelect().Model(&m).Where("name = ?", name).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// LoadNode returns the record for name or a fresh, unsaved one.
func (s *BunStore) LoadNode(ctx context.Context, name string) (*model.NodeRecord, error) {
	m, err := s.getByName(ctx, s.bun, name)
	if err != nil {
		return nil, fmt.Errorf("load node %s: %w", name, err)
	}
	if m == nil {
		return &model.NodeRecord{Name: name}, nil
	}
	rec := nodeModelToModel(*m)
	return &rec, nil
}

// SaveNode inserts the record or updates the existing row with the same name.
func (s *BunStore) SaveNode(ctx context.Context, rec *model.NodeRecord) error {
	if rec == nil || rec.Name == "" {
		return fmt.Errorf("save node: record has no name")
	}
	rec.UpdatedAt = time.Now().UTC()
	row := modelToNodeModel(rec)

	err := s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := s.getByName(ctx, tx, rec.Name)
		if err != nil {
			return err
		}
		if existing == nil {
			if _, err := tx.NewInsert().Model(&row).ExcludeColumn("id").Exec(ctx); err != nil {
				return MapDBError(err)
			}
			inserted, err := s.getByName(ctx, tx, rec.Name)
			if err != nil {
				return err
			}
			if inserted != nil {
				rec.ID = inserted.ID
			}
			return nil
		}
		row.ID = existing.ID
		_, err = tx.NewUpdate().Model(&row).
			Column("environment", "cluster_name", "hostname", "authkey", "updated_at").
			Where("id = ?", existing.ID).
			Exec(ctx)
		if err != nil {
			return err
		}
		rec.ID = existing.ID
		return nil
	})
	if err != nil {
		return fmt.Errorf("save node %s: %w", rec.Name, err)
	}
	dbLogf("registry: saved node %s (authkey published: %t)", rec.Name, rec.HasAuthkey())
	return nil
}

// DeleteNode removes the record named name.
func (s *BunStore) DeleteNode(ctx context.Context, name string) error {
	res, err := s.bun.NewDelete().Model((*NodeModel)(nil)).Where("name = ?", name).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete node %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete node %s: %w", name, ErrNotFound)
	}
	return nil
}

// GetKnownHostKey returns the trusted key for hostname, or "" when unknown.
func (s *BunStore) GetKnownHostKey(ctx context.Context, hostname string) (string, error) {
	var m KnownHostModel
	err := s.bun.NewSelect().Model(&m).Where("hostname = ?", hostname).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return m.HostKey, nil
}

// AddKnownHostKey stores or replaces the trusted key for hostname.
func (s *BunStore) AddKnownHostKey(ctx context.Context, hostname, key string) error {
	return s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*KnownHostModel)(nil)).Where("hostname = ?", hostname).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&KnownHostModel{Hostname: hostname, HostKey: key}).Exec(ctx)
		return MapDBError(err)
	})
}

// ListKnownHosts returns all trusted host keys ordered by hostname.
func (s *BunStore) ListKnownHosts(ctx context.Context) ([]model.KnownHost, error) {
	var rows []KnownHostModel
	if err := s.bun.NewSelect().Model(&rows).OrderExpr("hostname ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.KnownHost, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.KnownHost{Hostname: r.Hostname, Key: r.HostKey})
	}
	return out, nil
}
