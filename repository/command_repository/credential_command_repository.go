package command_repository

import (
	"time"

	"passkey_auth_ms/domain"

	"gorm.io/gorm"
)

type ICredentialCommandRepository interface {
	Create(db *gorm.DB, entity *domain.Credential) error
	Update(db *gorm.DB, entity *domain.Credential) error
	UpdateAfterLogin(db *gorm.DB, credentialID string, counter uint32, when time.Time) error
	Revoke(db *gorm.DB, userID uint, credentialID string, when time.Time) (int64, error)
}

type CredentialCommandRepository struct{}

func NewCredentialCommandRepository() ICredentialCommandRepository {
	return &CredentialCommandRepository{}
}

func (c *CredentialCommandRepository) Create(db *gorm.DB, entity *domain.Credential) error {
	return db.Create(entity).Error
}

func (c *CredentialCommandRepository) Update(db *gorm.DB, entity *domain.Credential) error {
	return db.Save(entity).Error
}

func (c *CredentialCommandRepository) UpdateAfterLogin(db *gorm.DB, credentialID string, counter uint32, when time.Time) error {
	return db.Model(&domain.Credential{}).
		Where("credential_id = ?", credentialID).
		Updates(map[string]interface{}{
			"counter":      counter,
			"last_used_at": when,
		}).Error
}

// Revoke soft-deletes; already-revoked rows are left untouched so the first
// revocation timestamp survives repeated deletes.
func (c *CredentialCommandRepository) Revoke(db *gorm.DB, userID uint, credentialID string, when time.Time) (int64, error) {
	res := db.Model(&domain.Credential{}).
		Where("user_id = ? AND credential_id = ? AND revoked_at IS NULL", userID, credentialID).
		Update("revoked_at", when)
	return res.RowsAffected, res.Error
}
