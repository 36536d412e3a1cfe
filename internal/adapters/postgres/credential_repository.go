package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deviceautosetup/provisioning/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type credentialRepository struct {
	db        *gorm.DB
	opTimeout time.Duration
}

// Upsert writes the credential binding in a single conflict-resolved
// statement, so concurrent registrations for the same identity resolve
// to last-writer-wins at the storage layer without partial records.
func (r *credentialRepository) Upsert(ctx context.Context, record domain.CredentialRecord) error {
	ctx, cancel := r.boundedCtx(ctx)
	defer cancel()

	rec := credentialModel{
		DeviceID:    record.DeviceID,
		Fingerprint: record.Fingerprint,
		IssuedAt:    record.IssuedAt,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"fingerprint": rec.Fingerprint,
			"issued_at":   rec.IssuedAt,
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("%w: upsert credential: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *credentialRepository) GetByDeviceID(ctx context.Context, deviceID string) (domain.CredentialRecord, error) {
	ctx, cancel := r.boundedCtx(ctx)
	defer cancel()

	var rec credentialModel
	if err := r.db.WithContext(ctx).Where("device_id = ?", deviceID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CredentialRecord{}, domain.ErrNotFound
		}
		return domain.CredentialRecord{}, fmt.Errorf("%w: load credential: %v", domain.ErrStorageUnavailable, err)
	}
	return domain.CredentialRecord{
		DeviceID:    rec.DeviceID,
		Fingerprint: rec.Fingerprint,
		IssuedAt:    rec.IssuedAt,
	}, nil
}

// boundedCtx caps how long a call may wait on the shared pool so an
// unreachable database fails fast instead of holding the request.
func (r *credentialRepository) boundedCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opTimeout)
}
