package postgres

import "time"

type credentialModel struct {
	DeviceID    string    `gorm:"column:device_id;primaryKey"`
	Fingerprint string    `gorm:"column:fingerprint"`
	IssuedAt    time.Time `gorm:"column:issued_at"`
}

func (credentialModel) TableName() string { return "device_credentials" }
