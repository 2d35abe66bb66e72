//go:build unix

// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package system

import "golang.org/x/sys/unix"

// withUmask runs fn with the process umask set to mask. Child processes
// started by fn inherit it.
func withUmask(mask int, fn func() error) error {
	old := unix.Umask(mask)
	defer unix.Umask(old)
	return fn()
}
