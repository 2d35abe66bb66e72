// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package registry

import (
	"testing"

	"github.com/toeirei/clusterkey/internal/model"
)

func TestParseQuery(t *testing.T) {
	cases := []struct {
		in   string
		want model.Filter
	}{
		{"", model.Filter{}},
		{"*", model.Filter{}},
		{"environment:prod AND cluster:web01 AND authkey", model.Filter{Environment: "prod", ClusterName: "web01", HasAuthkey: true}},
		{"chef_environment:prod AND corosync:authkey AND corosync_cluster_name:web01", model.Filter{Environment: "prod", ClusterName: "web01", HasAuthkey: true}},
		{"cluster:web01 has_authkey:false", model.Filter{ClusterName: "web01"}},
		{"ENV:staging and authkey:yes", model.Filter{Environment: "staging", HasAuthkey: true}},
	}
	for _, tc := range cases {
		got, err := ParseQuery(tc.in)
		if err != nil {
			t.Fatalf("ParseQuery(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseQuery(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestParseQueryErrors(t *testing.T) {
	for _, in := range []string{
		"cluster:web01 OR cluster:web02",
		"NOT authkey",
		"role:db",
		"cluster:",
		"corosync:ring0",
		"authkey:maybe",
		"bogus",
	} {
		if _, err := ParseQuery(in); err == nil {
			t.Errorf("ParseQuery(%q) expected error", in)
		}
	}
}

func TestParseQueryRoundTripsFilterString(t *testing.T) {
	f := model.Filter{Environment: "prod", ClusterName: "web01", HasAuthkey: true}
	got, err := ParseQuery(f.String())
	if err != nil {
		t.Fatalf("ParseQuery failed: %v", err)
	}
	if got != f {
		t.Fatalf("got %+v, want %+v", got, f)
	}
}
