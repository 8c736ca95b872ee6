package query_repository

import (
	"passkey_auth_ms/domain"

	"gorm.io/gorm"
)

type IProfileQueryRepository interface {
	GetByID(db *gorm.DB, id uint) (*domain.Profile, error)
	GetByEmail(db *gorm.DB, email string) (*domain.Profile, error)
	GetByIDWithCredentials(db *gorm.DB, id uint) (*domain.Profile, error)
	GetByEmailWithCredentials(db *gorm.DB, email string) (*domain.Profile, error)
}

type ProfileQueryRepository struct{}

func NewProfileQueryRepository() IProfileQueryRepository {
	return &ProfileQueryRepository{}
}

func (p *ProfileQueryRepository) GetByID(db *gorm.DB, id uint) (*domain.Profile, error) {
	var profile domain.Profile
	err := db.First(&profile, id).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetByEmail matches case-insensitively; clients submit emails in whatever
// casing their keyboard produced.
func (p *ProfileQueryRepository) GetByEmail(db *gorm.DB, email string) (*domain.Profile, error) {
	var profile domain.Profile
	err := db.Where("LOWER(email) = LOWER(?)", email).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (p *ProfileQueryRepository) GetByIDWithCredentials(db *gorm.DB, id uint) (*domain.Profile, error) {
	var profile domain.Profile
	err := db.Preload("Credentials", "revoked_at IS NULL").First(&profile, id).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (p *ProfileQueryRepository) GetByEmailWithCredentials(db *gorm.DB, email string) (*domain.Profile, error) {
	var profile domain.Profile
	err := db.Preload("Credentials", "revoked_at IS NULL").
		Where("LOWER(email) = LOWER(?)", email).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
