// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name     string
		fn       func(error) bool
		err      error
		expected bool
	}{
		{"timeout nil", IsConnectionTimeoutError, nil, false},
		{"timeout", IsConnectionTimeoutError, errors.New("i/o timeout"), true},
		{"deadline", IsConnectionTimeoutError, errors.New("context deadline exceeded"), true},
		{"timeout other", IsConnectionTimeoutError, errors.New("connection refused"), false},
		{"refused", IsConnectionRefusedError, errors.New("dial tcp: connection refused"), true},
		{"no route", IsConnectionRefusedError, errors.New("no route to host"), true},
		{"refused other", IsConnectionRefusedError, errors.New("timeout"), false},
		{"auth", IsAuthenticationError, errors.New("ssh: unable to authenticate, attempted methods [none publickey]"), true},
		{"permission", IsAuthenticationError, errors.New("permission denied"), true},
		{"auth other", IsAuthenticationError, errors.New("timeout"), false},
		{"unknown host", IsHostKeyError, fmt.Errorf("wrap: %w", ErrUnknownHost), true},
		{"mismatch", IsHostKeyError, fmt.Errorf("%w for x", ErrHostKeyMismatch), true},
		{"host key other", IsHostKeyError, errors.New("eof"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.err); got != tt.expected {
				t.Errorf("classifier(%v) = %v, expected %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClassifyWrapsOriginal(t *testing.T) {
	base := errors.New("i/o timeout")
	err := classify("db1", base)
	if !errors.Is(err, base) {
		t.Fatalf("classified error lost the original")
	}
	if !strings.Contains(err.Error(), "timed out") || !strings.Contains(err.Error(), "db1") {
		t.Fatalf("unexpected message: %v", err)
	}
}
