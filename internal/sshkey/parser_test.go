// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

func TestParse(t *testing.T) {
	alg, data, comment, err := Parse(`from="10.0.0.0/8" ssh-ed25519 AAAAC3Nza root@node1 main`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if alg != "ssh-ed25519" || data != "AAAAC3Nza" || comment != "root@node1 main" {
		t.Fatalf("unexpected parts %q %q %q", alg, data, comment)
	}
	for _, bad := range []string{"", "   ", "no key here", "ssh-rsa"} {
		if _, _, _, err := Parse(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestSameKey(t *testing.T) {
	if !SameKey("ssh-ed25519 AAAA comment-a", "ssh-ed25519 AAAA") {
		t.Errorf("comment should not matter")
	}
	if SameKey("ssh-ed25519 AAAA", "ssh-ed25519 BBBB") {
		t.Errorf("different key data matched")
	}
	if SameKey("ssh-rsa AAAA", "ssh-ed25519 AAAA") {
		t.Errorf("different algorithms matched")
	}
	if SameKey("", "") {
		t.Errorf("empty lines matched")
	}
}

func TestCheckHostKeyAlgorithm(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(rand.Reader)
	edKey, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("ed25519: %v", err)
	}
	if w := CheckHostKeyAlgorithm(edKey); w != "" {
		t.Errorf("unexpected warning for ed25519: %s", w)
	}

	rk, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("rsa: %v", err)
	}
	rsaKey, err := ssh.NewPublicKey(&rk.PublicKey)
	if err != nil {
		t.Fatalf("rsa public: %v", err)
	}
	if w := CheckHostKeyAlgorithm(rsaKey); !strings.Contains(w, "1024-bit") {
		t.Errorf("expected weak RSA warning, got %q", w)
	}
}
