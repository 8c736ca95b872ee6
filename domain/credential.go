package domain

import "time"

// Credential is one registered passkey. A credential id belongs to exactly
// one user for its lifetime; the unique index enforces that even across
// concurrent registrations. Revocation is a soft delete and permanent.
type Credential struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;index" json:"user_id"`
	CredentialID string     `gorm:"size:512;not null;uniqueIndex" json:"credential_id"`
	PublicKey    string     `gorm:"not null" json:"public_key"`
	Counter      uint32     `gorm:"not null;default:0" json:"counter"`
	Transports   []string   `gorm:"serializer:json" json:"transports"`
	DeviceName   string     `gorm:"size:100" json:"device_name"`
	CreatedAt    *time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    *time.Time `gorm:"default:null" json:"updated_at"`
	RevokedAt    *time.Time `gorm:"default:null;index" json:"revoked_at"`
	LastUsedAt   *time.Time `gorm:"default:null" json:"last_used_at"`
}

func (Credential) TableName() string {
	return "passkey_credentials"
}
