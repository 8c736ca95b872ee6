package domain

import "time"

// AuditEvent is an append-only record of an auth decision. Rows are written
// best-effort; a dropped write never fails the request that produced it.
type AuditEvent struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Action    string     `gorm:"size:100;not null;index" json:"action"`
	UserID    *uint      `gorm:"index" json:"user_id"`
	UserEmail string     `gorm:"size:100" json:"user_email"`
	Endpoint  string     `gorm:"size:100;not null" json:"endpoint"`
	IP        string     `gorm:"size:64" json:"ip"`
	UserAgent string     `gorm:"size:256" json:"user_agent"`
	Reason    string     `gorm:"size:100" json:"reason"`
	CreatedAt *time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
