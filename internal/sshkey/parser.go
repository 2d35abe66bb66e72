// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

// package sshkey inspects SSH host keys as stored in the registry's known
// hosts, i.e. in authorized_keys line format.
package sshkey // import "github.com/toeirei/clusterkey/internal/sshkey"

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Parse splits an authorized_keys style line into algorithm, base64 key
// data and comment. Leading options (from="...", etc.) are skipped.
func Parse(line string) (algorithm, keyData, comment string, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		err = fmt.Errorf("empty line")
		return
	}

	start := -1
	for i, f := range fields {
		if strings.HasPrefix(f, "ssh-") || strings.HasPrefix(f, "ecdsa-") || strings.HasPrefix(f, "sk-") {
			start = i
			break
		}
	}
	if start == -1 {
		err = fmt.Errorf("no valid SSH key type found in line")
		return
	}
	if len(fields) < start+2 {
		err = fmt.Errorf("invalid public key format: missing key data after algorithm")
		return
	}

	algorithm = fields[start]
	keyData = fields[start+1]
	if len(fields) > start+2 {
		comment = strings.Join(fields[start+2:], " ")
	}
	return
}

// SameKey reports whether two key lines carry the same key, ignoring
// options and comments. Unparseable lines never match.
func SameKey(a, b string) bool {
	algA, dataA, _, errA := Parse(a)
	algB, dataB, _, errB := Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	return algA == algB && dataA == dataB
}

// CheckHostKeyAlgorithm returns a warning for weak host key types, or "".
func CheckHostKeyAlgorithm(key ssh.PublicKey) string {
	switch key.Type() {
	case "ssh-dss":
		return "Warning: the host uses an ssh-dss key, which is deprecated and insecure."
	case ssh.KeyAlgoRSA:
		if ck, ok := key.(ssh.CryptoPublicKey); ok {
			if rk, ok := ck.CryptoPublicKey().(interface{ Size() int }); ok && rk.Size()*8 < 2048 {
				return fmt.Sprintf("Warning: the host uses a %d-bit RSA key; 2048 bits or more are recommended.", rk.Size()*8)
			}
		}
		return "Warning: the host uses an RSA key; consider switching it to ed25519."
	}
	return ""
}
