// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyEncoding is returned when decoding an empty published value.
var ErrEmptyEncoding = errors.New("empty encoded secret")

// Encode converts key material into the text-safe form stored in the
// registry: standard base64 (RFC 4648) with padding.
func Encode(s Secret) string {
	return base64.StdEncoding.EncodeToString(s)
}

// Decode reverses Encode. Line breaks and surrounding whitespace are
// ignored so values written by line-wrapping encoders decode as well.
func Decode(encoded string) (Secret, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, encoded)
	if cleaned == "" {
		return nil, ErrEmptyEncoding
	}
	raw, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}
	return Secret(raw), nil
}
