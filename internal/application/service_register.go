package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deviceautosetup/provisioning/internal/domain"
	"github.com/deviceautosetup/provisioning/internal/ports"
)

// Register derives the device identity and credential fingerprint from
// the seed material, mints a signed token, and persists the binding.
// The upsert replaces any earlier record for the same identity, which is
// what retires every token issued before this call.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	if strings.TrimSpace(req.EncryptedSeed) == "" {
		return RegisterResponse{}, fmt.Errorf("%w: missing encrypted seed", domain.ErrInvalidInput)
	}
	if req.DeviceInfo.ModelIdentifier == "" || req.DeviceInfo.OSVersion == "" {
		return RegisterResponse{}, fmt.Errorf("%w: missing required device information", domain.ErrInvalidInput)
	}

	deviceID, err := s.seeds.DeriveIdentity(req.EncryptedSeed)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("%w: undecodable seed", domain.ErrInvalidInput)
	}
	fingerprint := domain.FingerprintSeed(req.EncryptedSeed)

	issuedAt := domain.CanonicalIssuedAt(s.nowFn())
	token, err := s.tokenSigner.Sign(ports.DeviceClaims{
		DeviceID:    deviceID,
		Fingerprint: fingerprint,
		Attributes:  req.DeviceInfo,
		IssuedAt:    domain.FormatIssuedAt(issuedAt),
		ExpiresAt:   issuedAt.Add(s.cfg.TokenTTL),
	})
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("sign token: %w", err)
	}

	if err := s.credentials.Upsert(ctx, domain.CredentialRecord{
		DeviceID:    deviceID,
		Fingerprint: fingerprint,
		IssuedAt:    issuedAt,
	}); err != nil {
		return RegisterResponse{}, err
	}

	slog.Default().InfoContext(ctx, "device registered",
		"service", serviceName,
		"module", "application",
		"layer", "application",
		"operation", "register",
		"outcome", "success",
		"model", req.DeviceInfo.ModelIdentifier,
		"os_version", req.DeviceInfo.OSVersion,
	)

	return RegisterResponse{
		Token:     token,
		DeviceID:  deviceID,
		ExpiresIn: int64(s.cfg.TokenTTL.Seconds()),
	}, nil
}
