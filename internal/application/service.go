package application

import (
	"time"

	"github.com/deviceautosetup/provisioning/internal/ports"
)

// Service implements the provisioning use-cases: device registration,
// token authentication with freshness validation, and tiered
// configuration resolution. All collaborators are injected at startup
// and held for the process lifetime; there are no ambient singletons.
type Service struct {
	cfg         Config
	credentials ports.CredentialRepository
	configs     ports.ConfigStore
	fallback    ports.FallbackSource
	seeds       ports.SeedCodec
	tokenSigner ports.TokenSigner
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Credentials ports.CredentialRepository
	Configs     ports.ConfigStore
	Fallback    ports.FallbackSource
	Seeds       ports.SeedCodec
	TokenSigner ports.TokenSigner
}

func NewService(deps Dependencies) *Service {
	return &Service{
		cfg:         deps.Config,
		credentials: deps.Credentials,
		configs:     deps.Configs,
		fallback:    deps.Fallback,
		seeds:       deps.Seeds,
		tokenSigner: deps.TokenSigner,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}
