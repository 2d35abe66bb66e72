// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFlattenYAML(t *testing.T) {
	keys := map[string]struct{}{}
	flattenYAML("", map[string]interface{}{
		"top":         map[string]interface{}{"sub": "value"},
		"flat.dot.id": "v",
	}, keys)
	for _, want := range []string{"top.sub", "flat.dot.id"} {
		if _, ok := keys[want]; !ok {
			t.Errorf("missing %s in %v", want, keys)
		}
	}
}

func TestLint(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pkg", "a.go"), `package pkg

func f() {
	_ = i18n.T("used.present")
	_ = i18n.T("used.absent", 1)
	_ = other.T("not.counted")
}
`)
	writeFile(t, filepath.Join(root, "pkg", "a_test.go"), `package pkg

func g() { _ = i18n.T("only.in.tests") }
`)
	writeFile(t, filepath.Join(root, "loc", "en.yaml"), "used.present: \"x\"\norphan.id: \"y\"\n")
	writeFile(t, filepath.Join(root, "loc", "de.yaml"), "used.present: \"x\"\n")

	r, err := lint(root, "loc")
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if !reflect.DeepEqual(r.Unknown, []string{"used.absent"}) {
		t.Errorf("Unknown = %v", r.Unknown)
	}
	if !reflect.DeepEqual(r.Orphaned, []string{"orphan.id"}) {
		t.Errorf("Orphaned = %v", r.Orphaned)
	}
	if !reflect.DeepEqual(r.Missing["de.yaml"], []string{"orphan.id"}) {
		t.Errorf("Missing = %v", r.Missing)
	}
	if !r.failed() {
		t.Errorf("report should fail")
	}
}
