package postgres

import (
	"time"

	"github.com/deviceautosetup/provisioning/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Credentials ports.CredentialRepository
}

func NewRepositories(db *gorm.DB, opTimeout time.Duration) Repositories {
	return Repositories{
		Credentials: &credentialRepository{db: db, opTimeout: opTimeout},
	}
}
