package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/deviceautosetup/provisioning/internal/domain"
	"github.com/deviceautosetup/provisioning/internal/ports"
)

const serviceName = "device-provisioning-service"

// Authenticate verifies a previously issued token and checks that its
// embedded issuance timestamp still matches the one on record for the
// device. Every failure collapses into ErrUnauthorized; the internal
// cause is logged but never exposed, so a caller cannot tell a bad
// signature from a retired lineage.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (ports.DeviceClaims, error) {
	claims, err := s.tokenSigner.ParseAndValidate(rawToken)
	if err != nil {
		slog.Default().WarnContext(ctx, "token verification failed",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "authenticate",
			"outcome", "failure",
			"error", err.Error(),
		)
		return ports.DeviceClaims{}, domain.ErrUnauthorized
	}

	fresh, err := s.IsFresh(ctx, claims.DeviceID, claims.IssuedAt)
	if err != nil {
		return ports.DeviceClaims{}, err
	}
	if !fresh {
		slog.Default().WarnContext(ctx, "token lineage retired",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "authenticate",
			"outcome", "failure",
		)
		return ports.DeviceClaims{}, domain.ErrUnauthorized
	}
	return claims, nil
}

// IsFresh reports whether tokenIssuedAt matches the stored issuance
// timestamp for deviceID, compared in canonical serialized form. An
// absent record is a legitimate "not fresh" outcome, not an error; only
// storage faults surface as errors.
func (s *Service) IsFresh(ctx context.Context, deviceID, tokenIssuedAt string) (bool, error) {
	record, err := s.credentials.GetByDeviceID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return domain.FormatIssuedAt(record.IssuedAt) == tokenIssuedAt, nil
}

// ResolveConfig walks the tiered chain: per-device-class cache entry,
// default cache entry, local fallback file. First hit wins. A payload
// that exists but fails to decode is a hard fault from the tier adapter,
// not a fallthrough, so data corruption cannot masquerade as a miss.
func (s *Service) ResolveConfig(ctx context.Context, attrs domain.DeviceAttributes) (domain.ConfigPayload, error) {
	key := attrs.ConfigKey()
	payload, found, err := s.configs.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("config lookup %q: %w", key, err)
	}
	if found {
		return payload, nil
	}

	payload, found, err = s.configs.Get(ctx, s.cfg.DefaultConfigKey)
	if err != nil {
		return nil, fmt.Errorf("config lookup %q: %w", s.cfg.DefaultConfigKey, err)
	}
	if found {
		return payload, nil
	}

	payload, found, err = s.fallback.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("fallback config: %w", err)
	}
	if !found {
		return nil, domain.ErrConfigNotFound
	}
	return payload, nil
}
