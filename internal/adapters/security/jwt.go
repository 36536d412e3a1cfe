package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/deviceautosetup/provisioning/internal/domain"
	"github.com/deviceautosetup/provisioning/internal/ports"
)

// TokenSigner implements HS256 signing/parsing for device tokens.
// The key is held at adapter level so the application layer stays
// crypto-library agnostic.
type TokenSigner struct {
	secret []byte
}

// NewTokenSigner builds a signer from the configured shared secret.
func NewTokenSigner(secret string) (*TokenSigner, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is required")
	}
	return &TokenSigner{secret: []byte(secret)}, nil
}

// NewEphemeralTokenSigner creates a random in-memory secret for
// local/dev runs. Tokens do not survive a restart in this mode.
func NewEphemeralTokenSigner() (*TokenSigner, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return &TokenSigner{secret: secret}, nil
}

// deviceJWTClaims keeps the wire field names of the original device
// protocol: api_key carries the fingerprint, vendor_id the identity, and
// timestamp the canonical issued-at string used for freshness checks.
type deviceJWTClaims struct {
	APIKey     string                  `json:"api_key"`
	VendorID   string                  `json:"vendor_id"`
	DeviceInfo domain.DeviceAttributes `json:"device_info"`
	Timestamp  string                  `json:"timestamp"`
	jwt.RegisteredClaims
}

func (s *TokenSigner) Sign(claims ports.DeviceClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, deviceJWTClaims{
		APIKey:     claims.Fingerprint,
		VendorID:   claims.DeviceID,
		DeviceInfo: claims.Attributes,
		Timestamp:  claims.IssuedAt,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	return token.SignedString(s.secret)
}

func (s *TokenSigner) ParseAndValidate(raw string) (ports.DeviceClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &deviceJWTClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return ports.DeviceClaims{}, err
	}
	claims, ok := parsed.Claims.(*deviceJWTClaims)
	if !ok || !parsed.Valid {
		return ports.DeviceClaims{}, errors.New("invalid token claims")
	}
	if claims.VendorID == "" || claims.Timestamp == "" {
		return ports.DeviceClaims{}, errors.New("token missing identity claims")
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time.UTC()
	}
	return ports.DeviceClaims{
		DeviceID:    claims.VendorID,
		Fingerprint: claims.APIKey,
		Attributes:  claims.DeviceInfo,
		IssuedAt:    claims.Timestamp,
		ExpiresAt:   expiresAt,
	}, nil
}
