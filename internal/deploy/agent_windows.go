//go:build windows

// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"os"

	"github.com/Microsoft/go-winio"
	"github.com/davidmz/go-pageant"
	"golang.org/x/crypto/ssh/agent"
)

const openSSHAgentPipe = `\\.\pipe\openssh-ssh-agent`

// getSSHAgent prefers Pageant and falls back to the OpenSSH agent pipe
// named by SSH_AUTH_SOCK or its default location.
func getSSHAgent() agent.Agent {
	if pageant.Available() {
		return pageant.New()
	}
	pipe := os.Getenv("SSH_AUTH_SOCK")
	if pipe == "" {
		pipe = openSSHAgentPipe
	}
	conn, err := winio.DialPipe(pipe, nil)
	if err != nil || conn == nil {
		return nil
	}
	return agent.NewClient(conn)
}
