package ports

import (
	"context"

	"github.com/deviceautosetup/provisioning/internal/domain"
)

// ConfigStore is the fast key→payload lookup backing the first two
// resolution tiers. It is read-only from this service's perspective.
// A miss is (nil, false, nil); a stored payload that fails to decode is
// an error, never a silent miss.
type ConfigStore interface {
	Get(ctx context.Context, key string) (domain.ConfigPayload, bool, error)
}

// FallbackSource supplies the last-resort configuration payload when
// both cache tiers miss. The file is re-read on every call; this core
// does not cache the result.
type FallbackSource interface {
	Load(ctx context.Context) (domain.ConfigPayload, bool, error)
}
