// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

// Command clusterkey installs and shares a cluster's authkey.
//
// Usage:
//
//	clusterkey bootstrap --cluster-name web01
//	clusterkey verify
//
// See --help for every command.
package main

import (
	"os"

	"github.com/toeirei/clusterkey/internal/i18n"
	"github.com/toeirei/clusterkey/internal/logging"
	"github.com/toeirei/clusterkey/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.L.Error(i18n.T("cli.aborted"), "err", err)
		os.Exit(1)
	}
}
