package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprints.
// The version suffix allows changing what is hashed later.
const (
	DomainReconciliation = "snrecon/reconciliation/v1"
	DomainDescription    = "snrecon/description/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data) as hex.
// The null byte keeps domain and data from running into each other.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes the canonical JSON of v under domain.
// Equal values yield equal fingerprints regardless of map order.
func Fingerprint(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(domain, canonical), nil
}

// DescriptionFingerprint hashes a serialized description.
func DescriptionFingerprint(text string) string {
	return hashWithDomain(DomainDescription, []byte(text))
}
