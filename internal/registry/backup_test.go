// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package registry

import (
	"bytes"
	"context"
	"testing"

	"filippo.io/age"
)

func TestBackupExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	for _, rec := range []struct{ name, key string }{{"n1", "WFla"}, {"n2", ""}} {
		r := record(rec.name, "prod", "web01", rec.key)
		if err := src.SaveNode(ctx, &r); err != nil {
			t.Fatalf("SaveNode failed: %v", err)
		}
	}
	if err := src.AddKnownHostKey(ctx, "n1", "ssh-ed25519 AAAA"); err != nil {
		t.Fatalf("AddKnownHostKey failed: %v", err)
	}

	data, err := Export(ctx, src)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteBackup(&buf, data); err != nil {
		t.Fatalf("WriteBackup failed: %v", err)
	}
	read, err := ReadBackup(&buf)
	if err != nil {
		t.Fatalf("ReadBackup failed: %v", err)
	}

	dst := NewFakeRegistry(record("stale", "prod", "web01", ""))
	if err := Import(ctx, dst, read, true); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if _, ok := dst.Node("stale"); ok {
		t.Fatalf("full import should remove records missing from the backup")
	}
	n1, ok := dst.Node("n1")
	if key, _ := n1.Authkey(); !ok || key != "WFla" {
		t.Fatalf("n1 not restored with its authkey: %+v", n1)
	}
	if key, _ := dst.GetKnownHostKey(ctx, "n1"); key != "ssh-ed25519 AAAA" {
		t.Fatalf("known host not restored: %q", key)
	}
}

func TestBackupEncrypted(t *testing.T) {
	ctx := context.Background()
	src := NewFakeRegistry(record("n1", "prod", "web01", "WFla"))
	data, err := Export(ctx, src)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	id, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("GenerateX25519Identity failed: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteBackup(&buf, data, id.Recipient()); err != nil {
		t.Fatalf("WriteBackup failed: %v", err)
	}
	if bytes.Contains(buf.Bytes(), []byte("WFla")) {
		t.Fatalf("encrypted backup leaks the authkey")
	}

	encrypted := buf.Bytes()
	if _, err := ReadBackup(bytes.NewReader(encrypted)); err == nil {
		t.Fatalf("reading an encrypted backup without identity should fail")
	}
	read, err := ReadBackup(bytes.NewReader(encrypted), id)
	if err != nil {
		t.Fatalf("ReadBackup failed: %v", err)
	}
	if len(read.Nodes) != 1 || read.Nodes[0].Authkey != "WFla" {
		t.Fatalf("unexpected backup content: %+v", read.Nodes)
	}
}

func TestImportRejectsNewerSchema(t *testing.T) {
	data, _ := Export(context.Background(), NewFakeRegistry())
	data.SchemaVersion = BackupSchemaVersion + 1
	if err := Import(context.Background(), NewFakeRegistry(), data, false); err == nil {
		t.Fatalf("expected schema version error")
	}
}
