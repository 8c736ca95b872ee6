package request

import "encoding/json"

type RegisterVerifyRequest struct {
	Credential json.RawMessage `json:"credential" validate:"required"`
	DeviceName string          `json:"deviceName" validate:"omitempty,max=100"`
}

type AuthenticateOptionsRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type AuthenticateVerifyRequest struct {
	Email      string          `json:"email" validate:"omitempty,email"`
	Credential json.RawMessage `json:"credential"`
}

type RevokeCredentialRequest struct {
	Id string `json:"id" validate:"required"`
}
