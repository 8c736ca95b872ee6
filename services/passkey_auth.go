package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"passkey_auth_ms/domain"
	"passkey_auth_ms/dtos/response"
	"passkey_auth_ms/repository/command_repository"
	"passkey_auth_ms/repository/query_repository"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"gorm.io/gorm"
)

// RequestMeta is the caller context every decision is audited with.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type IPasskeyService interface {
	RegisterOptions(ctx context.Context, userID uint, meta RequestMeta) (*protocol.CredentialCreation, *ChallengePayload, error)
	RegisterVerify(ctx context.Context, userID uint, payload *ChallengePayload, credential []byte, deviceName string, meta RequestMeta) error
	AuthenticateOptions(ctx context.Context, email string, meta RequestMeta) (*protocol.CredentialAssertion, *ChallengePayload, error)
	AuthenticateVerify(ctx context.Context, email string, credential []byte, payload *ChallengePayload, meta RequestMeta) (*response.PasskeyLoginResponse, error)
	ListCredentials(userID uint) (*response.CredentialListResponse, error)
	RevokeCredential(userID uint, credentialID string, meta RequestMeta) error
}

// PasskeyConfig pins the relying party identity the ceremonies are bound to
// and the rate-limit budget shared by the four endpoints.
type PasskeyConfig struct {
	RPID        string
	Origin      string
	IPMax       int
	IdentityMax int
	Window      time.Duration
}

type PasskeyService struct {
	db           *gorm.DB
	wa           IWebAuthnProvider
	profileQuery query_repository.IProfileQueryRepository
	credQuery    query_repository.ICredentialQueryRepository
	credCommand  command_repository.ICredentialCommandRepository
	limiter      IRateLimiter
	audit        IAuditService
	magicLink    IMagicLinkService
	cfg          PasskeyConfig
	now          func() time.Time
}

func NewPasskeyService(
	db *gorm.DB,
	wa IWebAuthnProvider,
	profileQuery query_repository.IProfileQueryRepository,
	credQuery query_repository.ICredentialQueryRepository,
	credCommand command_repository.ICredentialCommandRepository,
	limiter IRateLimiter,
	audit IAuditService,
	magicLink IMagicLinkService,
	cfg PasskeyConfig,
) IPasskeyService {
	return &PasskeyService{
		db:           db,
		wa:           wa,
		profileQuery: profileQuery,
		credQuery:    credQuery,
		credCommand:  credCommand,
		limiter:      limiter,
		audit:        audit,
		magicLink:    magicLink,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (ps *PasskeyService) checkLimit(ctx context.Context, scope, qualifier, identifier string, max int) *FlowError {
	decision := ps.limiter.Check(ctx, LimitKey(scope, qualifier, identifier), max, ps.cfg.Window)
	if decision.Allowed {
		return nil
	}
	fe := NewFlowError(429, response.CodeTooManyAttempts, "too many attempts, slow down")
	fe.RetryAfter = int(ps.cfg.Window.Seconds())
	return fe
}

func (ps *PasskeyService) record(action string, userID *uint, email, endpoint, reason string, meta RequestMeta) {
	ps.audit.Record(&domain.AuditEvent{
		Action:    action,
		UserID:    userID,
		UserEmail: email,
		Endpoint:  endpoint,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Reason:    reason,
	})
}

func (ps *PasskeyService) RegisterOptions(ctx context.Context, userID uint, meta RequestMeta) (*protocol.CredentialCreation, *ChallengePayload, error) {
	const endpoint = "/register/options"

	if fe := ps.checkLimit(ctx, "register_options", "ip", meta.IP, ps.cfg.IPMax); fe != nil {
		ps.record(ActionRegisterRejected, &userID, "", endpoint, response.CodeTooManyAttempts, meta)
		return nil, nil, fe
	}
	if fe := ps.checkLimit(ctx, "register_options", "user", itoa(userID), ps.cfg.IdentityMax); fe != nil {
		ps.record(ActionRegisterRejected, &userID, "", endpoint, response.CodeTooManyAttempts, meta)
		return nil, nil, fe
	}

	profile, err := ps.profileQuery.GetByID(ps.db, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ps.record(ActionRegisterRejected, &userID, "", endpoint, response.CodeInvalidSession, meta)
			return nil, nil, NewFlowError(401, response.CodeInvalidSession, "unknown account")
		}
		return nil, nil, NewFlowError(500, response.CodeProfileLookupFailed, err.Error())
	}
	if profile.Email == "" {
		ps.record(ActionRegisterRejected, &userID, "", endpoint, response.CodeMissingEmail, meta)
		return nil, nil, NewFlowError(400, response.CodeMissingEmail, "account has no email")
	}
	if !profile.Active {
		ps.record(ActionRegisterRejected, &userID, profile.Email, endpoint, response.CodeUserInactive, meta)
		return nil, nil, NewFlowError(403, response.CodeUserInactive, "account is inactive")
	}

	existing, err := ps.credQuery.GetActiveByUser(ps.db, userID)
	if err != nil {
		return nil, nil, NewFlowError(500, response.CodeStorageError, err.Error())
	}

	// Exclude already-registered credentials so the authenticator refuses
	// to create a duplicate for this account.
	var exclusions []protocol.CredentialDescriptor
	for _, cred := range existing {
		id, decodeErr := base64.RawURLEncoding.DecodeString(cred.CredentialID)
		if decodeErr != nil {
			continue
		}
		exclusions = append(exclusions, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: id,
		})
	}

	profile.Credentials = existing
	options, session, err := ps.wa.BeginRegistration(profile,
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			ResidentKey:      protocol.ResidentKeyRequirementPreferred,
			UserVerification: protocol.VerificationRequired,
		}),
		webauthn.WithExclusions(exclusions),
	)
	if err != nil {
		return nil, nil, NewFlowError(500, response.CodeInternalError, err.Error())
	}

	payload := &ChallengePayload{
		Challenge: session.Challenge,
		UserID:    userID,
		Email:     profile.Email,
		RPID:      ps.cfg.RPID,
		Origin:    ps.cfg.Origin,
		Session:   *session,
	}

	ps.record(ActionRegisterOptionsIssued, &userID, profile.Email, endpoint, "", meta)
	return options, payload, nil
}

func (ps *PasskeyService) RegisterVerify(ctx context.Context, userID uint, payload *ChallengePayload, credential []byte, deviceName string, meta RequestMeta) error {
	const endpoint = "/register/verify"

	if fe := ps.checkLimit(ctx, "register_verify", "ip", meta.IP, ps.cfg.IPMax); fe != nil {
		ps.record(ActionRegisterRejected, &userID, "", endpoint, response.CodeTooManyAttempts, meta)
		return fe
	}
	if fe := ps.checkLimit(ctx, "register_verify", "user", itoa(userID), ps.cfg.IdentityMax); fe != nil {
		ps.record(ActionRegisterRejected, &userID, "", endpoint, response.CodeTooManyAttempts, meta)
		return fe
	}

	if payload == nil {
		ps.record(ActionRegisterRejected, &userID, "", endpoint, response.CodeChallengeExpired, meta)
		return NewFlowError(401, response.CodeChallengeExpired, "challenge missing or expired")
	}
	// A stolen or replayed cookie from another account must not let a
	// credential land on this one.
	if payload.UserID != userID {
		ps.record(ActionRegisterRejected, &userID, "", endpoint, response.CodeChallengeUserMismatch, meta)
		return NewFlowError(403, response.CodeChallengeUserMismatch, "challenge was issued to a different account")
	}
	if len(credential) == 0 {
		ps.record(ActionRegisterRejected, &userID, "", endpoint, response.CodeMissingCredential, meta)
		return NewFlowError(400, response.CodeMissingCredential, "credential payload required")
	}

	profile, err := ps.profileQuery.GetByID(ps.db, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ps.record(ActionRegisterRejected, &userID, "", endpoint, response.CodeInvalidSession, meta)
			return NewFlowError(401, response.CodeInvalidSession, "unknown account")
		}
		return NewFlowError(500, response.CodeProfileLookupFailed, err.Error())
	}

	validated, err := ps.wa.FinishRegistration(profile, payload.Session, credential)
	if err != nil {
		ps.record(ActionRegisterRejected, &userID, profile.Email, endpoint, response.CodeVerificationFailed, meta)
		return NewFlowError(401, response.CodeVerificationFailed, "attestation verification failed")
	}

	credID := base64.RawURLEncoding.EncodeToString(validated.ID)
	existing, err := ps.credQuery.GetByCredentialID(ps.db, credID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return NewFlowError(500, response.CodeStorageError, err.Error())
	}
	if existing != nil && existing.UserID != userID {
		ps.record(ActionRegisterRejected, &userID, profile.Email, endpoint, response.CodeCredentialAlreadyBound, meta)
		return NewFlowError(409, response.CodeCredentialAlreadyBound, "credential is bound to another account")
	}

	now := ps.now()
	var transports []string
	for _, t := range validated.Transport {
		transports = append(transports, string(t))
	}

	if existing != nil {
		// Same user re-registering the same authenticator: refresh the
		// record in place and lift any prior revocation.
		existing.PublicKey = base64.RawURLEncoding.EncodeToString(validated.PublicKey)
		existing.Counter = validated.Authenticator.SignCount
		existing.Transports = transports
		if deviceName != "" {
			existing.DeviceName = deviceName
		}
		existing.RevokedAt = nil
		existing.LastUsedAt = &now
		if err := ps.credCommand.Update(ps.db, existing); err != nil {
			return NewFlowError(500, response.CodeStorageError, err.Error())
		}
	} else {
		record := &domain.Credential{
			UserID:       userID,
			CredentialID: credID,
			PublicKey:    base64.RawURLEncoding.EncodeToString(validated.PublicKey),
			Counter:      validated.Authenticator.SignCount,
			Transports:   transports,
			DeviceName:   deviceName,
			LastUsedAt:   &now,
		}
		if err := ps.credCommand.Create(ps.db, record); err != nil {
			// The unique index resolves races on the same credential id;
			// a concurrent insert surfaces here.
			ps.record(ActionRegisterRejected, &userID, profile.Email, endpoint, response.CodeCredentialAlreadyBound, meta)
			return NewFlowError(409, response.CodeCredentialAlreadyBound, "credential is bound to another account")
		}
	}

	ps.record(ActionRegisterVerified, &userID, profile.Email, endpoint, "", meta)
	return nil
}

func (ps *PasskeyService) AuthenticateOptions(ctx context.Context, email string, meta RequestMeta) (*protocol.CredentialAssertion, *ChallengePayload, error) {
	const endpoint = "/authenticate/options"

	email = strings.ToLower(strings.TrimSpace(email))

	if fe := ps.checkLimit(ctx, "authenticate_options", "ip", meta.IP, ps.cfg.IPMax); fe != nil {
		ps.record(ActionAuthenticateRejected, nil, email, endpoint, response.CodeTooManyAttempts, meta)
		return nil, nil, fe
	}
	if fe := ps.checkLimit(ctx, "authenticate_options", "email", email, ps.cfg.IdentityMax); fe != nil {
		ps.record(ActionAuthenticateRejected, nil, email, endpoint, response.CodeTooManyAttempts, meta)
		return nil, nil, fe
	}

	profile, err := ps.profileQuery.GetByEmailWithCredentials(ps.db, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ps.record(ActionAuthenticateRejected, nil, email, endpoint, response.CodePasskeyUnavailable, meta)
			return nil, nil, NewFlowError(404, response.CodePasskeyUnavailable, "passkey login not available")
		}
		return nil, nil, NewFlowError(500, response.CodeProfileLookupFailed, err.Error())
	}
	// Unknown and inactive accounts share one answer so this endpoint
	// cannot be used to enumerate members.
	if !profile.Active {
		ps.record(ActionAuthenticateRejected, &profile.Id, email, endpoint, response.CodePasskeyUnavailable, meta)
		return nil, nil, NewFlowError(404, response.CodePasskeyUnavailable, "passkey login not available")
	}
	if len(profile.Credentials) == 0 {
		ps.record(ActionAuthenticateRejected, &profile.Id, email, endpoint, response.CodeNoPasskeysRegistered, meta)
		return nil, nil, NewFlowError(404, response.CodeNoPasskeysRegistered, "no passkeys registered")
	}

	options, session, err := ps.wa.BeginLogin(profile,
		webauthn.WithUserVerification(protocol.VerificationRequired),
	)
	if err != nil {
		return nil, nil, NewFlowError(500, response.CodeInternalError, err.Error())
	}

	payload := &ChallengePayload{
		Challenge: session.Challenge,
		UserID:    profile.Id,
		Email:     email,
		RPID:      ps.cfg.RPID,
		Origin:    ps.cfg.Origin,
		Session:   *session,
	}

	ps.record(ActionAuthenticateOptionsIssued, &profile.Id, email, endpoint, "", meta)
	return options, payload, nil
}

func (ps *PasskeyService) AuthenticateVerify(ctx context.Context, email string, credential []byte, payload *ChallengePayload, meta RequestMeta) (*response.PasskeyLoginResponse, error) {
	const endpoint = "/authenticate/verify"

	email = strings.ToLower(strings.TrimSpace(email))

	if fe := ps.checkLimit(ctx, "authenticate_verify", "ip", meta.IP, ps.cfg.IPMax); fe != nil {
		ps.record(ActionAuthenticateRejected, nil, email, endpoint, response.CodeTooManyAttempts, meta)
		return nil, fe
	}

	if payload == nil {
		ps.record(ActionAuthenticateRejected, nil, email, endpoint, response.CodeChallengeExpired, meta)
		return nil, NewFlowError(401, response.CodeChallengeExpired, "challenge missing or expired")
	}

	// The identity limit keys on the challenge-bound user, not anything the
	// caller typed, so omitting the email is not a bypass.
	if fe := ps.checkLimit(ctx, "authenticate_verify", "user", itoa(payload.UserID), ps.cfg.IdentityMax); fe != nil {
		ps.record(ActionAuthenticateRejected, &payload.UserID, payload.Email, endpoint, response.CodeTooManyAttempts, meta)
		return nil, fe
	}

	if len(credential) == 0 {
		ps.record(ActionAuthenticateRejected, &payload.UserID, payload.Email, endpoint, response.CodeMissingCredential, meta)
		return nil, NewFlowError(400, response.CodeMissingCredential, "credential payload required")
	}
	if email != "" && payload.Email != "" && email != payload.Email {
		ps.record(ActionAuthenticateRejected, &payload.UserID, email, endpoint, response.CodeEmailMismatch, meta)
		return nil, NewFlowError(403, response.CodeEmailMismatch, "email does not match this challenge")
	}

	credID, err := extractCredentialID(credential)
	if err != nil {
		ps.record(ActionAuthenticateRejected, &payload.UserID, payload.Email, endpoint, response.CodeMissingCredential, meta)
		return nil, NewFlowError(400, response.CodeMissingCredential, "credential payload malformed")
	}

	stored, err := ps.credQuery.GetActiveUserCredential(ps.db, credID, payload.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ps.record(ActionAuthenticateRejected, &payload.UserID, payload.Email, endpoint, response.CodeCredentialNotFound, meta)
			return nil, NewFlowError(404, response.CodeCredentialNotFound, "credential not found")
		}
		return nil, NewFlowError(500, response.CodeStorageError, err.Error())
	}

	profile, err := ps.profileQuery.GetByIDWithCredentials(ps.db, payload.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ps.record(ActionAuthenticateRejected, &payload.UserID, payload.Email, endpoint, response.CodeCredentialNotFound, meta)
			return nil, NewFlowError(404, response.CodeCredentialNotFound, "credential not found")
		}
		return nil, NewFlowError(500, response.CodeProfileLookupFailed, err.Error())
	}

	validated, err := ps.wa.FinishLogin(profile, payload.Session, credential)
	if err != nil {
		ps.record(ActionAuthenticateRejected, &payload.UserID, payload.Email, endpoint, response.CodeVerificationFailed, meta)
		return nil, NewFlowError(401, response.CodeVerificationFailed, "assertion verification failed")
	}
	// A counter that went backward or stalled means the library saw a
	// possible authenticator clone.
	if validated.Authenticator.CloneWarning {
		ps.record(ActionAuthenticateRejected, &payload.UserID, payload.Email, endpoint, response.CodeVerificationFailed, meta)
		return nil, NewFlowError(401, response.CodeVerificationFailed, "assertion verification failed")
	}

	now := ps.now()
	if err := ps.credCommand.UpdateAfterLogin(ps.db, stored.CredentialID, validated.Authenticator.SignCount, now); err != nil {
		return nil, NewFlowError(500, response.CodeStorageError, err.Error())
	}

	resolved := payload.Email
	if resolved == "" {
		resolved = email
	}
	if resolved == "" {
		resolved = strings.ToLower(profile.Email)
	}
	if resolved == "" {
		return nil, NewFlowError(500, response.CodeOtpNotAvailable, "no email to mint a login token for")
	}

	otp, err := ps.magicLink.Mint(ctx, resolved)
	if err != nil {
		ps.record(ActionAuthenticateRejected, &payload.UserID, resolved, endpoint, response.CodeMagicLinkGenerateFailed, meta)
		return nil, NewFlowError(500, response.CodeMagicLinkGenerateFailed, "failed to mint login token")
	}

	ps.record(ActionAuthenticateVerified, &payload.UserID, resolved, endpoint, "", meta)
	return &response.PasskeyLoginResponse{
		Success:  true,
		Email:    resolved,
		OtpToken: otp,
		OtpType:  "magiclink",
	}, nil
}

func (ps *PasskeyService) ListCredentials(userID uint) (*response.CredentialListResponse, error) {
	creds, err := ps.credQuery.GetActiveByUser(ps.db, userID)
	if err != nil {
		return nil, NewFlowError(500, response.CodeStorageError, err.Error())
	}

	summaries := make([]response.CredentialSummary, 0, len(creds))
	for _, c := range creds {
		summaries = append(summaries, response.CredentialSummary{
			Id:         c.CredentialID,
			DeviceName: c.DeviceName,
			CreatedAt:  c.CreatedAt,
			LastUsedAt: c.LastUsedAt,
		})
	}
	return &response.CredentialListResponse{Credentials: summaries}, nil
}

func (ps *PasskeyService) RevokeCredential(userID uint, credentialID string, meta RequestMeta) error {
	rows, err := ps.credCommand.Revoke(ps.db, userID, credentialID, ps.now())
	if err != nil {
		return NewFlowError(500, response.CodeStorageError, err.Error())
	}
	if rows == 0 {
		return NewFlowError(400, response.CodeCredentialNotFound, "credential not found")
	}
	ps.record(ActionCredentialRevoked, &userID, "", "/me", "", meta)
	return nil
}

// extractCredentialID peeks the credential id out of the raw ceremony
// response; the full parse is the verifier's job.
func extractCredentialID(credential []byte) (string, error) {
	var probe struct {
		RawID string `json:"rawId"`
		ID    string `json:"id"`
	}
	if err := json.Unmarshal(credential, &probe); err != nil {
		return "", err
	}
	id := probe.RawID
	if id == "" {
		id = probe.ID
	}
	if id == "" {
		return "", errors.New("credential id missing")
	}
	// Normalize padded base64url to the raw form used for storage.
	id = strings.TrimRight(id, "=")
	return id, nil
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
