package ports

import (
	"time"

	"github.com/deviceautosetup/provisioning/internal/domain"
)

// DeviceClaims is the signed, self-contained token payload. IssuedAt is
// carried in its canonical string form so freshness validation can
// compare it byte-for-byte against the stored record.
type DeviceClaims struct {
	DeviceID    string
	Fingerprint string
	Attributes  domain.DeviceAttributes
	IssuedAt    string
	ExpiresAt   time.Time
}

// TokenSigner mints and verifies device tokens. The cryptographic
// primitive behind it is a black box to the application layer.
type TokenSigner interface {
	Sign(claims DeviceClaims) (string, error)
	ParseAndValidate(token string) (DeviceClaims, error)
}

// SeedCodec extracts the device identity from client-supplied opaque
// seed material. Implementations decide whether the seed is a sealed
// (authenticated-encrypted) blob or the legacy wrapped plaintext form.
type SeedCodec interface {
	DeriveIdentity(seed string) (string, error)
}
