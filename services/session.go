package services

import (
	"context"
	"errors"
	"strings"

	"passkey_auth_ms/dtos/response"
	"passkey_auth_ms/repository/query_repository"

	"gorm.io/gorm"
)

// ISessionService is the standard login path: the client exchanges the OTP
// a passkey verification minted for a normal token pair. Passkey
// verification itself never issues session tokens.
type ISessionService interface {
	LoginWithMagicLink(ctx context.Context, email string, otp string) (*response.Tokens, error)
	RefreshToken(ctx context.Context, refreshToken string) (*response.Tokens, error)
}

type SessionService struct {
	db           *gorm.DB
	profileQuery query_repository.IProfileQueryRepository
	magicLink    IMagicLinkService
	jwt          IJWTService
	redis        IRedisService
}

func NewSessionService(db *gorm.DB, profileQuery query_repository.IProfileQueryRepository, magicLink IMagicLinkService, jwt IJWTService, redis IRedisService) ISessionService {
	return &SessionService{db: db, profileQuery: profileQuery, magicLink: magicLink, jwt: jwt, redis: redis}
}

func (s *SessionService) LoginWithMagicLink(ctx context.Context, email string, otp string) (*response.Tokens, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	profile, err := s.profileQuery.GetByEmail(s.db, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Same answer as a bad OTP; this endpoint must not confirm
			// which emails exist either.
			return nil, NewFlowError(401, response.CodeVerificationFailed, "otp invalid or expired")
		}
		return nil, NewFlowError(500, response.CodeProfileLookupFailed, err.Error())
	}
	if !profile.Active {
		return nil, NewFlowError(403, response.CodeUserInactive, "account is inactive")
	}

	if err := s.magicLink.Exchange(ctx, email, otp); err != nil {
		return nil, err
	}

	tokens, err := s.jwt.GenerateTokens(profile)
	if err != nil {
		return nil, NewFlowError(500, response.CodeInternalError, err.Error())
	}
	if err := s.redis.SetRefreshToken(ctx, profile.Id, tokens.RefreshToken); err != nil {
		return nil, NewFlowError(500, response.CodeStorageError, err.Error())
	}
	return tokens, nil
}

func (s *SessionService) RefreshToken(ctx context.Context, refreshToken string) (*response.Tokens, error) {
	if refreshToken == "" {
		return nil, NewFlowError(401, response.CodeInvalidSession, "empty refresh token")
	}

	token, err := s.jwt.ParseJWT(refreshToken)
	if err != nil || token == nil {
		return nil, NewFlowError(401, response.CodeInvalidSession, "invalid refresh token")
	}
	claims, err := s.jwt.GetClaims(token)
	if err != nil {
		return nil, NewFlowError(401, response.CodeInvalidSession, "invalid refresh token")
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return nil, NewFlowError(401, response.CodeInvalidSession, "invalid refresh token")
	}
	userID := uint(sub)

	stored, err := s.redis.GetRefreshToken(ctx, userID)
	if err != nil || stored != refreshToken {
		return nil, NewFlowError(401, response.CodeInvalidSession, "refresh token revoked")
	}

	profile, err := s.profileQuery.GetByID(s.db, userID)
	if err != nil {
		return nil, NewFlowError(401, response.CodeInvalidSession, "unknown account")
	}

	tokens, err := s.jwt.GenerateTokens(profile)
	if err != nil {
		return nil, NewFlowError(500, response.CodeInternalError, err.Error())
	}
	if err := s.redis.SetRefreshToken(ctx, profile.Id, tokens.RefreshToken); err != nil {
		return nil, NewFlowError(500, response.CodeStorageError, err.Error())
	}
	return tokens, nil
}
