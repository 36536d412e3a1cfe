package security

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	legacySeedPrefix = "Encrypted("
	legacySeedSuffix = ")"

	sealedNonceSize = 24
	sealedKeySize   = 32
)

// SeedCodec extracts a device identity from client-supplied seed
// material. With a seal key configured, the seed must be
// base64(nonce || secretbox ciphertext) and is authenticated-decrypted
// before the identity is trusted. Without a key the legacy wrapped
// plaintext form is accepted as-is.
type SeedCodec struct {
	sealKey *[sealedKeySize]byte
}

// NewSeedCodec builds a codec. sealKeyBase64 may be empty for legacy
// mode; otherwise it must decode to exactly 32 bytes.
func NewSeedCodec(sealKeyBase64 string) (*SeedCodec, error) {
	if strings.TrimSpace(sealKeyBase64) == "" {
		return &SeedCodec{}, nil
	}
	raw, err := base64.StdEncoding.DecodeString(sealKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("decode seed seal key: %w", err)
	}
	if len(raw) != sealedKeySize {
		return nil, fmt.Errorf("seed seal key must be %d bytes, got %d", sealedKeySize, len(raw))
	}
	var key [sealedKeySize]byte
	copy(key[:], raw)
	return &SeedCodec{sealKey: &key}, nil
}

func (c *SeedCodec) DeriveIdentity(seed string) (string, error) {
	if c.sealKey != nil {
		return c.openSealed(seed)
	}
	if strings.HasPrefix(seed, legacySeedPrefix) && strings.HasSuffix(seed, legacySeedSuffix) {
		return strings.TrimSuffix(strings.TrimPrefix(seed, legacySeedPrefix), legacySeedSuffix), nil
	}
	return seed, nil
}

func (c *SeedCodec) openSealed(seed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(seed)
	if err != nil {
		return "", fmt.Errorf("decode sealed seed: %w", err)
	}
	if len(raw) <= sealedNonceSize {
		return "", errors.New("sealed seed too short")
	}
	var nonce [sealedNonceSize]byte
	copy(nonce[:], raw[:sealedNonceSize])
	plaintext, ok := secretbox.Open(nil, raw[sealedNonceSize:], &nonce, c.sealKey)
	if !ok {
		return "", errors.New("sealed seed authentication failed")
	}
	return string(plaintext), nil
}

// SealSeed is the inverse of sealed-mode DeriveIdentity. It exists for
// provisioning tooling and tests that need to produce valid seeds.
func (c *SeedCodec) SealSeed(identity string, nonce [sealedNonceSize]byte) (string, error) {
	if c.sealKey == nil {
		return "", errors.New("seed codec has no seal key")
	}
	sealed := secretbox.Seal(nonce[:], []byte(identity), &nonce, c.sealKey)
	return base64.StdEncoding.EncodeToString(sealed), nil
}
