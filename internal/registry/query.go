// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package registry

import (
	"fmt"
	"strings"

	"github.com/toeirei/clusterkey/internal/model"
)

// TokenizeQuery splits a query into whitespace-separated terms, dropping the
// AND connective. Returns nil for empty input.
func TokenizeQuery(q string) []string {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	parts := strings.Fields(q)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.EqualFold(p, "AND") {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ParseQuery turns search text into a Filter. The accepted grammar is a
// conjunction of terms:
//
//	environment:prod AND cluster:web01 AND authkey
//
// Chef-style spellings are accepted too (chef_environment:,
// corosync_cluster_name:, corosync:authkey). "*" or empty text matches every
// node. OR and NOT are rejected because a Filter cannot express them.
func ParseQuery(q string) (model.Filter, error) {
	var f model.Filter
	for _, term := range TokenizeQuery(q) {
		if term == "*" || term == "*:*" {
			continue
		}
		if strings.EqualFold(term, "OR") || strings.EqualFold(term, "NOT") {
			return model.Filter{}, fmt.Errorf("unsupported operator %q: only AND is allowed", term)
		}
		key, value, hasValue := strings.Cut(term, ":")
		key = strings.ToLower(key)
		if !hasValue {
			if key == "authkey" || key == "has_authkey" {
				f.HasAuthkey = true
				continue
			}
			return model.Filter{}, fmt.Errorf("unknown query term %q", term)
		}
		if value == "" {
			return model.Filter{}, fmt.Errorf("query term %q has no value", term)
		}
		switch key {
		case "environment", "env", "chef_environment":
			f.Environment = value
		case "cluster", "cluster_name", "corosync_cluster_name":
			f.ClusterName = model.ClusterIdentity(value)
		case "corosync":
			if !strings.EqualFold(value, "authkey") {
				return model.Filter{}, fmt.Errorf("unknown query term %q", term)
			}
			f.HasAuthkey = true
		case "authkey", "has_authkey":
			switch strings.ToLower(value) {
			case "true", "yes", "1", "*":
				f.HasAuthkey = true
			case "false", "no", "0":
				f.HasAuthkey = false
			default:
				return model.Filter{}, fmt.Errorf("invalid authkey predicate %q", value)
			}
		default:
			return model.Filter{}, fmt.Errorf("unknown query field %q", key)
		}
	}
	return f, nil
}
