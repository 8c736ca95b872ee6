package response

import "time"

type PasskeyLoginResponse struct {
	Success  bool   `json:"success"`
	Email    string `json:"email"`
	OtpToken string `json:"otpToken"`
	OtpType  string `json:"otpType"`
}

type CredentialSummary struct {
	Id         string     `json:"id"`
	DeviceName string     `json:"device_name"`
	CreatedAt  *time.Time `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

type CredentialListResponse struct {
	Credentials []CredentialSummary `json:"credentials"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}
