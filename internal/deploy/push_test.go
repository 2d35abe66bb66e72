// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/pkg/sftp"
	"github.com/toeirei/clusterkey/internal/security"
)

func TestInstall_WritesKeyOverSFTP(t *testing.T) {
	c := newMemSFTP(t)
	installed, err := Install(NewRemoteFS(c), "/etc/corosync/authkey", security.FromString("XYZ"))
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if !installed {
		t.Fatalf("expected the key to be installed")
	}
	if got := readRemote(t, c, "/etc/corosync/authkey"); string(got) != "XYZ" {
		t.Fatalf("remote content = %q", got)
	}
	entries, err := c.ReadDir("/etc/corosync")
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary file left behind: %d entries", len(entries))
	}
}

func TestInstall_SkipsExistingKey(t *testing.T) {
	c := newMemSFTP(t)
	rfs := NewRemoteFS(c)
	if _, err := Install(rfs, "/authkey", security.FromString("first")); err != nil {
		t.Fatalf("Install: %v", err)
	}
	installed, err := Install(rfs, "/authkey", security.FromString("second"))
	if err != nil {
		t.Fatalf("second Install: %v", err)
	}
	if installed {
		t.Fatalf("existing key must not be replaced")
	}
	if got := readRemote(t, c, "/authkey"); string(got) != "first" {
		t.Fatalf("remote content = %q", got)
	}
}

type memOpener struct {
	clients map[string]*sftp.Client
	fail    map[string]error
}

func (m *memOpener) Open(ctx context.Context, host string) (RemoteFS, io.Closer, error) {
	if err := m.fail[host]; err != nil {
		return nil, nil, err
	}
	return NewRemoteFS(m.clients[host]), io.NopCloser(nil), nil
}

func TestDistributor(t *testing.T) {
	a, b := newMemSFTP(t), newMemSFTP(t)
	if _, err := Install(NewRemoteFS(b), "/etc/corosync/authkey", security.FromString("old")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	down := errors.New("connection refused")
	opener := &memOpener{
		clients: map[string]*sftp.Client{"a": a, "b": b},
		fail:    map[string]error{"c": down},
	}
	d := &Distributor{Opener: opener, KeyPath: "/etc/corosync/authkey", Secret: security.FromString("XYZ"), Parallel: 2}
	out := d.Distribute(context.Background(), []string{"a", "b", "c"})

	if len(out) != 3 || out[0].Host != "a" || out[1].Host != "b" || out[2].Host != "c" {
		t.Fatalf("outcomes out of order: %+v", out)
	}
	if !out[0].Installed || out[0].Err != nil {
		t.Errorf("a: %+v", out[0])
	}
	if out[1].Installed || out[1].Err != nil {
		t.Errorf("b should be skipped: %+v", out[1])
	}
	if !errors.Is(out[2].Err, down) {
		t.Errorf("c: %+v", out[2])
	}
	if got := readRemote(t, a, "/etc/corosync/authkey"); string(got) != "XYZ" {
		t.Errorf("a content = %q", got)
	}
	if got := readRemote(t, b, "/etc/corosync/authkey"); string(got) != "old" {
		t.Errorf("b content = %q", got)
	}
}

func TestDistributor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := &Distributor{Opener: &memOpener{}, KeyPath: "/k", Secret: security.FromString("x")}
	out := d.Distribute(ctx, []string{"a"})
	if !errors.Is(out[0].Err, context.Canceled) {
		t.Fatalf("expected cancellation, got %+v", out[0])
	}
}
