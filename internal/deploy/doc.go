// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

// package deploy pushes an existing cluster authkey to hosts that cannot run
// the bootstrap themselves. It connects over SSH, verifies host keys against
// the registry's known hosts, and installs the key through SFTP only, so it
// also works with accounts restricted to internal-sftp.
package deploy // import "github.com/toeirei/clusterkey/internal/deploy"
