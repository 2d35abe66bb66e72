// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import "testing"

func TestClusterIdentityValid(t *testing.T) {
	cases := map[ClusterIdentity]bool{
		"":      false,
		"   ":   false,
		"web01": true,
	}
	for in, want := range cases {
		if got := in.Valid(); got != want {
			t.Errorf("ClusterIdentity(%q).Valid() = %v, want %v", in, got, want)
		}
	}
}

func TestNodeRecordAuthkey(t *testing.T) {
	var rec NodeRecord
	if rec.HasAuthkey() {
		t.Fatalf("fresh record should not have an authkey")
	}
	rec.SetAuthkey("WFla")
	got, ok := rec.Authkey()
	if !ok || got != "WFla" {
		t.Fatalf("Authkey() = %q, %v; want WFla, true", got, ok)
	}

	var nilRec *NodeRecord
	if nilRec.HasAuthkey() {
		t.Fatalf("nil record should report no authkey")
	}
}

func TestFilterMatches(t *testing.T) {
	withKey := NodeRecord{Name: "a", Environment: "prod", ClusterName: "web01"}
	withKey.SetAuthkey("WFla")
	withoutKey := NodeRecord{Name: "b", Environment: "prod", ClusterName: "web01"}
	otherEnv := NodeRecord{Name: "c", Environment: "dev", ClusterName: "web01"}
	otherEnv.SetAuthkey("WFla")

	f := Filter{Environment: "prod", ClusterName: "web01", HasAuthkey: true}
	if !f.Matches(withKey) {
		t.Errorf("expected %s to match", withKey)
	}
	if f.Matches(withoutKey) {
		t.Errorf("record without authkey must not match")
	}
	if f.Matches(otherEnv) {
		t.Errorf("record from another environment must not match")
	}
	if !(Filter{}).Matches(withoutKey) {
		t.Errorf("empty filter should match everything")
	}
}

func TestFilterString(t *testing.T) {
	f := Filter{Environment: "prod", ClusterName: "web01", HasAuthkey: true}
	if got, want := f.String(), "environment:prod AND cluster:web01 AND authkey"; got != want {
		t.Errorf("Filter.String() = %q, want %q", got, want)
	}
	if got := (Filter{}).String(); got != "*" {
		t.Errorf("empty Filter.String() = %q, want *", got)
	}
}

func TestBackupConversionKeepsAuthkey(t *testing.T) {
	rec := NodeRecord{Name: "n1", Environment: "prod", ClusterName: "web01", Hostname: "10.0.0.1"}
	rec.SetAuthkey("WFla")
	back := FromBackup(rec.ToBackup())
	if key, _ := back.Authkey(); key != "WFla" || back.Hostname != "10.0.0.1" || back.ClusterName != "web01" {
		t.Fatalf("unexpected record after conversion: %+v (authkey %q)", back, key)
	}
}
