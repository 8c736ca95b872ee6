package services

import (
	"context"
	"testing"
	"time"

	"passkey_auth_ms/domain"
	"passkey_auth_ms/dtos/response"

	"github.com/stretchr/testify/assert"
)

func newSessionFixture() (*SessionService, *stubProfileQuery, *fakeRedisService) {
	profiles := &stubProfileQuery{
		byID:    map[uint]*domain.Profile{},
		byEmail: map[string]*domain.Profile{},
	}
	store := newFakeRedisService()
	jwt := NewJWTService([]byte("test-secret"), "passkey_auth_ms", 15*time.Minute, 30*24*time.Hour)
	magicLink := NewMagicLinkService(store, 10*time.Minute)

	svc := &SessionService{
		profileQuery: profiles,
		magicLink:    magicLink,
		jwt:          jwt,
		redis:        store,
	}
	return svc, profiles, store
}

func TestLoginWithMagicLink_UnknownEmailLooksLikeBadOTP(t *testing.T) {
	svc, _, _ := newSessionFixture()

	_, err := svc.LoginWithMagicLink(context.Background(), "nobody@example.com", "123456")

	fe, ok := AsFlowError(err)
	assert.True(t, ok)
	assert.Equal(t, 401, fe.Status)
	assert.Equal(t, response.CodeVerificationFailed, fe.Code)
}

func TestLoginWithMagicLink_InactiveUser(t *testing.T) {
	svc, profiles, _ := newSessionFixture()
	profiles.byEmail["player@example.com"] = &domain.Profile{Id: 1, Email: "player@example.com", Active: false}

	_, err := svc.LoginWithMagicLink(context.Background(), "player@example.com", "123456")

	fe, ok := AsFlowError(err)
	assert.True(t, ok)
	assert.Equal(t, 403, fe.Status)
	assert.Equal(t, response.CodeUserInactive, fe.Code)
}

func TestLoginWithMagicLink_HappyPath(t *testing.T) {
	svc, profiles, store := newSessionFixture()
	profiles.byEmail["player@example.com"] = &domain.Profile{Id: 1, Email: "player@example.com", Active: true}
	ctx := context.Background()

	otp, err := svc.magicLink.Mint(ctx, "player@example.com")
	assert.NoError(t, err)

	tokens, err := svc.LoginWithMagicLink(ctx, " Player@Example.com ", otp)

	assert.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, tokens.RefreshToken, store.refreshTokens[1])
}

func TestRefreshToken_Garbage(t *testing.T) {
	svc, _, _ := newSessionFixture()

	_, err := svc.RefreshToken(context.Background(), "not-a-jwt")

	fe, ok := AsFlowError(err)
	assert.True(t, ok)
	assert.Equal(t, 401, fe.Status)
	assert.Equal(t, response.CodeInvalidSession, fe.Code)
}

func TestRefreshToken_NotTheStoredToken(t *testing.T) {
	svc, profiles, store := newSessionFixture()
	profiles.byID[1] = &domain.Profile{Id: 1, Email: "player@example.com", Active: true}

	// A structurally valid token that is not the one redis holds.
	stray, err := svc.jwt.GenerateToken(1, time.Hour)
	assert.NoError(t, err)
	store.refreshTokens[1] = "a-different-token"

	_, err = svc.RefreshToken(context.Background(), stray)

	fe, ok := AsFlowError(err)
	assert.True(t, ok)
	assert.Equal(t, 401, fe.Status)
	assert.Equal(t, response.CodeInvalidSession, fe.Code)
}

func TestRefreshToken_RotatesThePair(t *testing.T) {
	svc, profiles, store := newSessionFixture()
	profiles.byID[1] = &domain.Profile{Id: 1, Email: "player@example.com", Active: true}
	ctx := context.Background()

	original, err := svc.jwt.GenerateToken(1, time.Hour)
	assert.NoError(t, err)
	store.refreshTokens[1] = original

	tokens, err := svc.RefreshToken(ctx, original)

	assert.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEqual(t, original, tokens.RefreshToken)
	assert.Equal(t, tokens.RefreshToken, store.refreshTokens[1])
}
