//go:build !unix

// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package system

func withUmask(_ int, fn func() error) error {
	return fn()
}
