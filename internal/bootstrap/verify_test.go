// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/toeirei/clusterkey/internal/model"
	"github.com/toeirei/clusterkey/internal/registry"
	"github.com/toeirei/clusterkey/internal/system"
)

func TestVerify_Converged(t *testing.T) {
	reg := registry.NewFakeRegistry(
		published("a", "prod", "web01", []byte("XYZ")),
		published("b", "prod", "web01", []byte("XYZ")),
		model.NodeRecord{Name: "c", Environment: "prod", ClusterName: "web01"},
	)
	mem := system.NewMemFS()
	_ = mem.WriteFile(keyPath, []byte("XYZ"), 0o400, "")

	rep, err := Verify(context.Background(), reg, mem, baseConfig())
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !rep.Converged() {
		t.Fatalf("expected converged report: %+v", rep)
	}
	if len(rep.Pending) != 1 || rep.Pending[0] != "c" {
		t.Fatalf("pending = %v", rep.Pending)
	}
	if len(rep.Published[rep.Local]) != 2 {
		t.Fatalf("expected both nodes under the local fingerprint: %+v", rep.Published)
	}
}

func TestVerify_SplitSecret(t *testing.T) {
	reg := registry.NewFakeRegistry(
		published("a", "prod", "web01", []byte("one")),
		published("b", "prod", "web01", []byte("two")),
	)
	rep, err := Verify(context.Background(), reg, system.NewMemFS(), baseConfig())
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if rep.Converged() || len(rep.Fingerprints()) != 2 {
		t.Fatalf("split secret not detected: %+v", rep)
	}
	if reg.Saves != 0 {
		t.Fatalf("Verify must not write")
	}
}

func TestVerify_LocalMismatchAndInvalid(t *testing.T) {
	bad := model.NodeRecord{Name: "x", Environment: "prod", ClusterName: "web01"}
	bad.SetAuthkey("%%%")
	reg := registry.NewFakeRegistry(published("a", "prod", "web01", []byte("one")), bad)
	mem := system.NewMemFS()
	_ = mem.WriteFile(keyPath, []byte("local"), 0o400, "")

	rep, err := Verify(context.Background(), reg, mem, baseConfig())
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if rep.Converged() {
		t.Fatalf("mismatched local key reported as converged")
	}
	if len(rep.Invalid) != 1 || rep.Invalid[0] != "x" {
		t.Fatalf("invalid = %v", rep.Invalid)
	}
}

func TestVerify_Errors(t *testing.T) {
	cfg := baseConfig()
	cfg.ClusterName = ""
	if _, err := Verify(context.Background(), registry.NewFakeRegistry(), system.NewMemFS(), cfg); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	reg := registry.NewFakeRegistry()
	reg.SearchErr = errors.New("down")
	if _, err := Verify(context.Background(), reg, system.NewMemFS(), baseConfig()); err == nil {
		t.Fatalf("expected search error")
	}
}
