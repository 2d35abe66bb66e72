// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownHost     = errors.New("unknown host key")
	ErrHostKeyMismatch = errors.New("HOST KEY MISMATCH")
)

// IsConnectionTimeoutError reports whether err looks like a timeout.
func IsConnectionTimeoutError(err error) bool {
	return containsAny(err, "timeout", "deadline exceeded", "timed out")
}

// IsConnectionRefusedError reports whether the host could not be reached.
func IsConnectionRefusedError(err error) bool {
	return containsAny(err, "connection refused", "no route to host")
}

// IsAuthenticationError reports whether the server rejected our credentials.
func IsAuthenticationError(err error) bool {
	return containsAny(err, "unable to authenticate", "authentication failed", "permission denied", "public key")
}

// IsHostKeyError reports whether host key verification failed.
func IsHostKeyError(err error) bool {
	if errors.Is(err, ErrUnknownHost) || errors.Is(err, ErrHostKeyMismatch) {
		return true
	}
	return containsAny(err, "host key")
}

func classify(host string, err error) error {
	switch {
	case IsHostKeyError(err):
		return fmt.Errorf("host key verification failed for %s: %w", host, err)
	case IsConnectionTimeoutError(err):
		return fmt.Errorf("connection to %s timed out: %w", host, err)
	case IsConnectionRefusedError(err):
		return fmt.Errorf("connection to %s refused: %w", host, err)
	case IsAuthenticationError(err):
		return fmt.Errorf("authentication failed for %s: %w", host, err)
	default:
		return fmt.Errorf("connection to %s failed: %w", host, err)
	}
}

func containsAny(err error, needles ...string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, n := range needles {
		if strings.Contains(msg, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
