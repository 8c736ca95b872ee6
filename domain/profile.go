package domain

import (
	"encoding/base64"
	"strconv"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

type Profile struct {
	Id          uint         `gorm:"primaryKey" json:"id"`
	CreatedAt   *time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   *time.Time   `gorm:"default:null" json:"updated_at"`
	Email       string       `gorm:"size:100;not null" json:"email"`
	DisplayName string       `gorm:"size:100" json:"display_name"`
	Active      bool         `gorm:"not null;default:true" json:"active"`
	Credentials []Credential `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"credentials"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (p Profile) WebAuthnID() []byte {
	return []byte(strconv.Itoa(int(p.Id)))
}

func (p Profile) WebAuthnName() string {
	return p.Email
}

func (p Profile) WebAuthnDisplayName() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Email
}

// WebAuthnCredentials exposes the non-revoked credentials to the webauthn
// library. The stored counter is what the library checks new assertions
// against, so it must be the value persisted after the last login.
func (p Profile) WebAuthnCredentials() []webauthn.Credential {
	var creds []webauthn.Credential
	for _, c := range p.Credentials {
		if c.RevokedAt != nil {
			continue
		}
		id, err := base64.RawURLEncoding.DecodeString(c.CredentialID)
		if err != nil {
			continue
		}
		publicKey, err := base64.RawURLEncoding.DecodeString(c.PublicKey)
		if err != nil {
			continue
		}
		var transports []protocol.AuthenticatorTransport
		for _, t := range c.Transports {
			transports = append(transports, protocol.AuthenticatorTransport(t))
		}
		creds = append(creds, webauthn.Credential{
			ID:        id,
			PublicKey: publicKey,
			Transport: transports,
			Authenticator: webauthn.Authenticator{
				SignCount: c.Counter,
			},
		})
	}
	return creds
}
