package services

import (
	"context"
	"time"

	"passkey_auth_ms/dtos/response"
	"passkey_auth_ms/util"
)

// IMagicLinkService mints the one-time login credential a passkey
// verification ends in, and consumes it on the standard login path. The OTP
// itself goes to the client; only a bcrypt hash sits in Redis.
type IMagicLinkService interface {
	Mint(ctx context.Context, email string) (string, error)
	Exchange(ctx context.Context, email string, otp string) error
}

type MagicLinkService struct {
	redis IRedisService
	ttl   time.Duration
}

func NewMagicLinkService(redis IRedisService, ttl time.Duration) IMagicLinkService {
	return &MagicLinkService{redis: redis, ttl: ttl}
}

func (m *MagicLinkService) Mint(ctx context.Context, email string) (string, error) {
	otp := util.GenerateOTP()
	hash, err := util.HashToken(otp)
	if err != nil {
		return "", err
	}
	if err := m.redis.StoreMagicLink(ctx, email, hash, m.ttl); err != nil {
		return "", err
	}
	return otp, nil
}

// Exchange consumes the OTP. Single-use: the stored hash is removed on
// success, so a replayed OTP fails as expired.
func (m *MagicLinkService) Exchange(ctx context.Context, email string, otp string) error {
	hash, err := m.redis.GetMagicLink(ctx, email)
	if err != nil {
		return NewFlowError(401, response.CodeVerificationFailed, "otp invalid or expired")
	}
	if !util.VerifyToken(otp, hash) {
		return NewFlowError(401, response.CodeVerificationFailed, "otp invalid or expired")
	}
	if err := m.redis.DeleteMagicLink(ctx, email); err != nil {
		return NewFlowError(500, response.CodeStorageError, "failed to consume otp")
	}
	return nil
}
