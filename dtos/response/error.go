package response

// Machine-readable error codes shared by every endpoint. Clients branch on
// the code, never on the message.
const (
	CodeUnauthorized            = "unauthorized"
	CodeInvalidSession          = "invalid_session"
	CodeMissingEmail            = "missing_email"
	CodeUserInactive            = "user_inactive"
	CodeTooManyAttempts         = "too_many_attempts"
	CodeChallengeExpired        = "challenge_expired"
	CodeChallengeUserMismatch   = "challenge_user_mismatch"
	CodeMissingCredential       = "missing_credential"
	CodeVerificationFailed      = "verification_failed"
	CodeCredentialAlreadyBound  = "credential_already_bound"
	CodeCredentialNotFound      = "credential_not_found"
	CodeEmailMismatch           = "email_mismatch"
	CodePasskeyUnavailable      = "passkey_unavailable"
	CodeNoPasskeysRegistered    = "no_passkeys_registered"
	CodeStorageError            = "storage_error"
	CodeProfileLookupFailed     = "profile_lookup_failed"
	CodeOtpNotAvailable         = "otp_not_available"
	CodeMagicLinkGenerateFailed = "magiclink_generation_failed"
	CodeInternalError           = "internal_error"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
