package ports

import (
	"context"

	"github.com/deviceautosetup/provisioning/internal/domain"
)

// CredentialRepository persists the device-identity → credential binding.
// Upsert has overwrite semantics keyed by device identity: at most one
// live record per identity, replaced atomically on re-registration.
type CredentialRepository interface {
	Upsert(ctx context.Context, record domain.CredentialRecord) error
	GetByDeviceID(ctx context.Context, deviceID string) (domain.CredentialRecord, error)
}
