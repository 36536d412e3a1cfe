package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/deviceautosetup/provisioning/internal/adapters/security"
	"github.com/deviceautosetup/provisioning/internal/domain"
)

type fakeCredentialRepo struct {
	mu      sync.Mutex
	records map[string]domain.CredentialRecord
	writes  int
	failAll bool
}

func (f *fakeCredentialRepo) Upsert(_ context.Context, record domain.CredentialRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return fmt.Errorf("%w: upsert credential: connection refused", domain.ErrStorageUnavailable)
	}
	if f.records == nil {
		f.records = make(map[string]domain.CredentialRecord)
	}
	f.records[record.DeviceID] = record
	f.writes++
	return nil
}

func (f *fakeCredentialRepo) GetByDeviceID(_ context.Context, deviceID string) (domain.CredentialRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return domain.CredentialRecord{}, fmt.Errorf("%w: load credential: connection refused", domain.ErrStorageUnavailable)
	}
	rec, ok := f.records[deviceID]
	if !ok {
		return domain.CredentialRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

type fakeConfigStore struct {
	entries map[string]string
}

func (f *fakeConfigStore) Get(_ context.Context, key string) (domain.ConfigPayload, bool, error) {
	raw, ok := f.entries[key]
	if !ok {
		return nil, false, nil
	}
	var payload domain.ConfigPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, false, fmt.Errorf("decode cached config: %w", err)
	}
	return payload, true, nil
}

type fakeFallbackSource struct {
	payload domain.ConfigPayload
}

func (f *fakeFallbackSource) Load(_ context.Context) (domain.ConfigPayload, bool, error) {
	if f.payload == nil {
		return nil, false, nil
	}
	return f.payload, true, nil
}

type fixture struct {
	service     *Service
	credentials *fakeCredentialRepo
	configs     *fakeConfigStore
	fallback    *fakeFallbackSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	signer, err := security.NewEphemeralTokenSigner()
	if err != nil {
		t.Fatalf("init signer: %v", err)
	}
	codec, err := security.NewSeedCodec("")
	if err != nil {
		t.Fatalf("init seed codec: %v", err)
	}

	credentials := &fakeCredentialRepo{}
	configs := &fakeConfigStore{entries: map[string]string{}}
	fb := &fakeFallbackSource{}

	svc := NewService(Dependencies{
		Config: Config{
			TokenTTL:         365 * 24 * time.Hour,
			DefaultConfigKey: "default_config",
		},
		Credentials: credentials,
		Configs:     configs,
		Fallback:    fb,
		Seeds:       codec,
		TokenSigner: signer,
	})

	return &fixture{
		service:     svc,
		credentials: credentials,
		configs:     configs,
		fallback:    fb,
	}
}

func attrs() domain.DeviceAttributes {
	return domain.DeviceAttributes{ModelIdentifier: "iPhone14", OSVersion: "17.0"}
}

func TestRegisterBindsTokenToStoredTimestamp(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.Register(ctx, RegisterRequest{
		EncryptedSeed: "Encrypted(ABC)",
		DeviceInfo:    attrs(),
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if res.DeviceID != "ABC" {
		t.Fatalf("expected identity ABC, got %q", res.DeviceID)
	}

	claims, err := f.service.tokenSigner.ParseAndValidate(res.Token)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	stored, err := f.credentials.GetByDeviceID(ctx, "ABC")
	if err != nil {
		t.Fatalf("load stored record: %v", err)
	}
	if got, want := claims.IssuedAt, domain.FormatIssuedAt(stored.IssuedAt); got != want {
		t.Fatalf("token timestamp %q does not match stored %q", got, want)
	}
	if stored.Fingerprint != domain.FingerprintSeed("Encrypted(ABC)") {
		t.Fatalf("stored fingerprint mismatch")
	}
}

func TestReRegistrationRetiresEarlierTokens(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.configs.entries["default_config"] = `{"log_level":"info"}`
	ctx := context.Background()

	base := time.Now().UTC()
	f.service.nowFn = func() time.Time { return base }

	first, err := f.service.Register(ctx, RegisterRequest{EncryptedSeed: "Encrypted(ABC)", DeviceInfo: attrs()})
	if err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := f.service.Authenticate(ctx, first.Token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	f.service.nowFn = func() time.Time { return base.Add(2 * time.Second) }
	if _, err := f.service.Register(ctx, RegisterRequest{EncryptedSeed: "Encrypted(ABC)", DeviceInfo: attrs()}); err != nil {
		t.Fatalf("second register failed: %v", err)
	}

	if _, err := f.service.Authenticate(ctx, first.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for retired token, got %v", err)
	}

	fresh, err := f.service.IsFresh(ctx, "ABC", domain.FormatIssuedAt(base))
	if err != nil {
		t.Fatalf("freshness check errored: %v", err)
	}
	if fresh {
		t.Fatalf("old issuance timestamp should not be fresh after re-registration")
	}
}

func TestFreshnessWithoutRecordIsFalse(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	fresh, err := f.service.IsFresh(context.Background(), "unknown-device", domain.FormatIssuedAt(time.Now()))
	if err != nil {
		t.Fatalf("expected no error for absent record, got %v", err)
	}
	if fresh {
		t.Fatalf("absent record must not be fresh")
	}
}

func TestResolveConfigTierOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.configs.entries["iPhone14_17.0"] = `{"tier":"class"}`
	f.configs.entries["default_config"] = `{"tier":"default"}`
	f.fallback.payload = domain.ConfigPayload{"tier": "fallback"}

	payload, err := f.service.ResolveConfig(ctx, attrs())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if payload["tier"] != "class" {
		t.Fatalf("expected per-class payload, got %v", payload)
	}

	delete(f.configs.entries, "iPhone14_17.0")
	payload, err = f.service.ResolveConfig(ctx, attrs())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if payload["tier"] != "default" {
		t.Fatalf("expected default payload, got %v", payload)
	}

	delete(f.configs.entries, "default_config")
	payload, err = f.service.ResolveConfig(ctx, attrs())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if payload["tier"] != "fallback" {
		t.Fatalf("expected fallback payload, got %v", payload)
	}
}

func TestResolveConfigNotFoundOnlyWhenAllTiersMiss(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, err := f.service.ResolveConfig(context.Background(), attrs()); !errors.Is(err, domain.ErrConfigNotFound) {
		t.Fatalf("expected config not found, got %v", err)
	}
}

func TestResolveConfigIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.configs.entries["iPhone14_17.0"] = `{"feature":true,"retries":3}`

	first, err := f.service.ResolveConfig(ctx, attrs())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	second, err := f.service.ResolveConfig(ctx, attrs())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("resolution is not idempotent: %s vs %s", a, b)
	}
}

func TestRegisterFallsBackToDefaultPayload(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.configs.entries["default_config"] = `{"profile":"baseline"}`

	res, err := f.service.Register(ctx, RegisterRequest{EncryptedSeed: "ABC", DeviceInfo: attrs()})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if res.DeviceID != "ABC" {
		t.Fatalf("identity should derive deterministically from the seed, got %q", res.DeviceID)
	}

	payload, err := f.service.ResolveConfig(ctx, attrs())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if payload["profile"] != "baseline" {
		t.Fatalf("expected default payload, got %v", payload)
	}
}

func TestRegisterMissingAttributesWritesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.service.Register(context.Background(), RegisterRequest{
		EncryptedSeed: "Encrypted(ABC)",
		DeviceInfo:    domain.DeviceAttributes{ModelIdentifier: "iPhone14"},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if f.credentials.writes != 0 {
		t.Fatalf("validation failure must not write to storage, got %d writes", f.credentials.writes)
	}
}

func TestRegisterMissingSeedRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.service.Register(context.Background(), RegisterRequest{DeviceInfo: attrs()})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestExpiredTokenIsUnauthorized(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-366 * 24 * time.Hour)
	f.service.nowFn = func() time.Time { return past }

	res, err := f.service.Register(ctx, RegisterRequest{EncryptedSeed: "Encrypted(ABC)", DeviceInfo: attrs()})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := f.service.Authenticate(ctx, res.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for expired token, got %v", err)
	}
}

func TestTamperedTokenIsUnauthorized(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.Register(ctx, RegisterRequest{EncryptedSeed: "Encrypted(ABC)", DeviceInfo: attrs()})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	tampered := res.Token[:len(res.Token)-2] + "xx"
	if _, err := f.service.Authenticate(ctx, tampered); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for tampered token, got %v", err)
	}
}

func TestCorruptCacheEntryIsHardError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.configs.entries["iPhone14_17.0"] = `{not json`
	f.fallback.payload = domain.ConfigPayload{"tier": "fallback"}

	_, err := f.service.ResolveConfig(context.Background(), attrs())
	if err == nil {
		t.Fatalf("corrupt entry must not fall through to later tiers")
	}
	if errors.Is(err, domain.ErrConfigNotFound) {
		t.Fatalf("corrupt entry must not read as a miss, got %v", err)
	}
}

func TestStorageFailurePropagates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.credentials.failAll = true

	_, err := f.service.Register(context.Background(), RegisterRequest{EncryptedSeed: "Encrypted(ABC)", DeviceInfo: attrs()})
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable, got %v", err)
	}
}
