// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cli implements the clusterkey command tree with cobra. Every
// command resolves its configuration in PersistentPreRunE and opens the
// registry only when it actually needs it.
package cli
