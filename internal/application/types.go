package application

import (
	"time"

	"github.com/deviceautosetup/provisioning/internal/domain"
)

type Config struct {
	// TokenTTL is the fixed validity window of an issued token.
	TokenTTL time.Duration
	// DefaultConfigKey is the reserved cache key for the unclassified
	// default payload (resolution tier 2).
	DefaultConfigKey string
}

type RegisterRequest struct {
	EncryptedSeed string                  `json:"encryptedSeed"`
	DeviceInfo    domain.DeviceAttributes `json:"deviceInfo"`
}

type RegisterResponse struct {
	Token     string `json:"jwt"`
	DeviceID  string `json:"device_id"`
	ExpiresIn int64  `json:"expires_in"`
}

type ConfigResponse struct {
	Config domain.ConfigPayload `json:"config"`
}
