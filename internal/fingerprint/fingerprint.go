// Package fingerprint derives stable content hashes for desired-state
// configurations.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Of returns the canonical SHA-256 hash of a configuration, hex encoded.
// encoding/json writes map keys in sorted order at every depth, so two
// configurations with the same key/value pairs fingerprint identically no
// matter how they were assembled. Any value change, however deep, produces
// a different hash.
func Of(config map[string]any) (string, error) {
	data, err := json.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("marshaling config for fingerprint: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
