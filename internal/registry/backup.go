// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"filippo.io/age"
	"github.com/klauspost/compress/zstd"
	"github.com/toeirei/clusterkey/internal/model"
	"github.com/toeirei/clusterkey/util/slicest"
)

// BackupSchemaVersion is written into every export.
const BackupSchemaVersion = 1

// Export collects every node record and known host from s.
func Export(ctx context.Context, s Store) (*model.BackupData, error) {
	nodes, err := s.ListNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	hosts, err := s.ListKnownHosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list known hosts: %w", err)
	}
	data := &model.BackupData{
		SchemaVersion: BackupSchemaVersion,
		ExportedAt:    time.Now().UTC(),
		KnownHosts:    hosts,
	}
	for _, n := range nodes {
		data.Nodes = append(data.Nodes, n.ToBackup())
	}
	return data, nil
}

// Import writes every record of data into s. With full set, records that are
// not part of the backup are deleted afterwards.
func Import(ctx context.Context, s Store, data *model.BackupData, full bool) error {
	if data == nil {
		return errors.New("import: no backup data")
	}
	if data.SchemaVersion > BackupSchemaVersion {
		return fmt.Errorf("import: backup schema %d is newer than supported %d", data.SchemaVersion, BackupSchemaVersion)
	}
	for _, b := range data.Nodes {
		rec := model.FromBackup(b)
		if err := s.SaveNode(ctx, &rec); err != nil {
			return fmt.Errorf("import node %s: %w", b.Name, err)
		}
	}
	for _, h := range data.KnownHosts {
		if err := s.AddKnownHostKey(ctx, h.Hostname, h.Key); err != nil {
			return fmt.Errorf("import known host %s: %w", h.Hostname, err)
		}
	}
	if !full {
		return nil
	}
	keep := slicest.ToMap(data.Nodes, func(b model.BackupRecord) (string, bool) { return b.Name, true })
	existing, err := s.ListNodes(ctx)
	if err != nil {
		return fmt.Errorf("list nodes: %w", err)
	}
	for _, n := range existing {
		if keep[n.Name] {
			continue
		}
		if err := s.DeleteNode(ctx, n.Name); err != nil {
			return fmt.Errorf("remove node %s: %w", n.Name, err)
		}
	}
	return nil
}

// WriteBackup writes zstd-compressed JSON backup data to w. When recipients
// are given the compressed stream is additionally age-encrypted, since the
// backup carries every published cluster secret.
func WriteBackup(w io.Writer, data *model.BackupData, recipients ...age.Recipient) error {
	out := w
	var aw io.WriteCloser
	if len(recipients) > 0 {
		var err error
		aw, err = age.Encrypt(w, recipients...)
		if err != nil {
			return fmt.Errorf("create age writer: %w", err)
		}
		out = aw
	}
	zw, err := zstd.NewWriter(out)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode backup: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zstd writer: %w", err)
	}
	if aw != nil {
		if err := aw.Close(); err != nil {
			return fmt.Errorf("close age writer: %w", err)
		}
	}
	return nil
}

// ReadBackup reverses WriteBackup. Identities must be supplied for
// encrypted backups.
func ReadBackup(r io.Reader, identities ...age.Identity) (*model.BackupData, error) {
	in := r
	if len(identities) > 0 {
		dr, err := age.Decrypt(r, identities...)
		if err != nil {
			return nil, fmt.Errorf("decrypt backup: %w", err)
		}
		in = dr
	}
	zr, err := zstd.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()
	var data model.BackupData
	if err := json.NewDecoder(zr).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	return &data, nil
}
