package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// TimestampLayout is the canonical serialization for issuance timestamps.
// Freshness validation compares the serialized strings byte-for-byte, so
// the same layout must be used when minting, storing, and comparing.
// Second precision survives a Postgres timestamptz round trip losslessly.
const TimestampLayout = "2006-01-02T15:04:05Z"

// DeviceAttributes are the client-declared fields used to form the
// configuration lookup key. Only presence is validated.
type DeviceAttributes struct {
	ModelIdentifier string `json:"modelIdentifier"`
	OSVersion       string `json:"osVersion"`
}

// ConfigKey returns the per-device-class cache key.
func (a DeviceAttributes) ConfigKey() string {
	return a.ModelIdentifier + "_" + a.OSVersion
}

// CredentialRecord is the single durable row per device identity. A new
// registration overwrites Fingerprint and IssuedAt in one upsert, which
// is what invalidates every previously issued token for that identity.
type CredentialRecord struct {
	DeviceID    string
	Fingerprint string
	IssuedAt    time.Time
}

// ConfigPayload is an opaque configuration document. No schema is enforced.
type ConfigPayload map[string]any

// FingerprintSeed derives the credential fingerprint from raw seed
// material. It is a one-way digest of client-visible input: a stable
// correlation value, not a secret.
func FingerprintSeed(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// CanonicalIssuedAt truncates to whole seconds in UTC so the stored and
// token-embedded timestamps serialize identically.
func CanonicalIssuedAt(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// FormatIssuedAt serializes an issuance timestamp in the canonical form.
func FormatIssuedAt(t time.Time) string {
	return CanonicalIssuedAt(t).Format(TimestampLayout)
}
