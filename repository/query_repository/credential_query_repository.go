package query_repository

import (
	"passkey_auth_ms/domain"

	"gorm.io/gorm"
)

type ICredentialQueryRepository interface {
	GetActiveByUser(db *gorm.DB, userID uint) ([]domain.Credential, error)
	GetByCredentialID(db *gorm.DB, credentialID string) (*domain.Credential, error)
	GetActiveUserCredential(db *gorm.DB, credentialID string, userID uint) (*domain.Credential, error)
}

type CredentialQueryRepository struct{}

func NewCredentialQueryRepository() ICredentialQueryRepository {
	return &CredentialQueryRepository{}
}

func (c *CredentialQueryRepository) GetActiveByUser(db *gorm.DB, userID uint) ([]domain.Credential, error) {
	var creds []domain.Credential
	err := db.Where("user_id = ? AND revoked_at IS NULL", userID).Find(&creds).Error
	if err != nil {
		return nil, err
	}
	return creds, nil
}

// GetByCredentialID ignores revocation state on purpose: a credential id
// belongs to one user for its lifetime, so binding checks must see revoked
// rows too.
func (c *CredentialQueryRepository) GetByCredentialID(db *gorm.DB, credentialID string) (*domain.Credential, error) {
	var cred domain.Credential
	err := db.Where("credential_id = ?", credentialID).First(&cred).Error
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (c *CredentialQueryRepository) GetActiveUserCredential(db *gorm.DB, credentialID string, userID uint) (*domain.Credential, error) {
	var cred domain.Credential
	err := db.Where("credential_id = ? AND user_id = ? AND revoked_at IS NULL", credentialID, userID).
		First(&cred).Error
	if err != nil {
		return nil, err
	}
	return &cred, nil
}
