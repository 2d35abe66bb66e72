// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

// Package system holds the host-level collaborators the bootstrapper drives:
// the filesystem, the package manager, the service manager and the key
// generation primitive. Each concern is a small interface with an OS-backed
// implementation; system_fake.go carries the in-memory doubles for tests.
package system
