// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

func TestSecretRedactionAndJSON(t *testing.T) {
	s := FromString("supersecret")
	if fmt.Sprintf("%v", s) != "[SECRET]" {
		t.Fatalf("unexpected fmt output: %q", fmt.Sprintf("%v", s))
	}
	if fmt.Sprintf("%#v", s) != "[SECRET]" {
		t.Fatalf("unexpected %%#v output: %q", fmt.Sprintf("%#v", s))
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	if string(b) != "\"[SECRET]\"" {
		t.Fatalf("unexpected json marshal: %s", string(b))
	}
}

func TestSecretZero(t *testing.T) {
	s := FromString("abc123")
	(&s).Zero()
	if err := s.Use(func(b []byte) error {
		for i := range b {
			if b[i] != 0 {
				t.Fatalf("expected zeroed byte at index %d, got %d", i, b[i])
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("s.Use failed: %v", err)
	}
}

func TestFromBytesCopies(t *testing.T) {
	in := []byte("key")
	s := FromBytes(in)
	in[0] = 'X'
	if !bytes.Equal(s.Bytes(), []byte("key")) {
		t.Fatalf("FromBytes did not copy input")
	}
}
