// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package bootstrap

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("configuration error")
	// ErrCapabilityUnavailable matches every *CapabilityUnavailableError.
	ErrCapabilityUnavailable = errors.New("capability unavailable")
)

// ConfigurationError reports a missing or invalid required setting. It is
// raised before any side effect.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) work.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// CapabilityUnavailableError reports that the execution mode lacks something
// bootstrap cannot work without, such as registry search in standalone mode.
type CapabilityUnavailableError struct {
	Capability string
	Reason     string
}

func (e *CapabilityUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %s", e.Capability, e.Reason)
}

// Is makes errors.Is(err, ErrCapabilityUnavailable) work.
func (e *CapabilityUnavailableError) Is(target error) bool { return target == ErrCapabilityUnavailable }

// ActionError wraps the failure of an external action (package install,
// service start, key generation, file write, registry call). The underlying
// error is kept intact.
type ActionError struct {
	Step string
	Err  error
}

func (e *ActionError) Error() string { return fmt.Sprintf("%s: %v", e.Step, e.Err) }

// Unwrap returns the failing collaborator's error.
func (e *ActionError) Unwrap() error { return e.Err }

func actionErr(step string, err error) error {
	return &ActionError{Step: step, Err: err}
}
