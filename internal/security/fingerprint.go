// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// fingerprintContext separates secret fingerprints from any other blake3
// use of the same bytes.
const fingerprintContext = "clusterkey 2026 authkey fingerprint"

// Fingerprint returns a short, non-reversible identifier for the secret,
// safe to print in logs and status output.
func Fingerprint(s Secret) string {
	h := blake3.NewDeriveKey(fingerprintContext)
	_, _ = h.Write(s)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:12])
}
