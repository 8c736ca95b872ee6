package command_repository

import (
	"passkey_auth_ms/domain"

	"gorm.io/gorm"
)

type IAuditCommandRepository interface {
	Append(db *gorm.DB, event *domain.AuditEvent) error
}

type AuditCommandRepository struct{}

func NewAuditCommandRepository() IAuditCommandRepository {
	return &AuditCommandRepository{}
}

func (a *AuditCommandRepository) Append(db *gorm.DB, event *domain.AuditEvent) error {
	return db.Create(event).Error
}
