package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/gofiber/fiber/v2"
)

// ChallengeFlow selects the cookie a ceremony rides on. Registration and
// authentication use separate cookies so concurrent attempts by the same
// client do not clobber each other.
type ChallengeFlow string

const (
	FlowRegister     ChallengeFlow = "register"
	FlowAuthenticate ChallengeFlow = "authenticate"

	registerCookieName     = "passkey_reg_challenge"
	authenticateCookieName = "passkey_auth_challenge"

	// Browsers cap a cookie near 4KB including name and attributes.
	maxCookieValueLen = 3800
)

// ChallengePayload is the server context a ceremony started with, carried
// by the client between the options and verify calls. The embedded webauthn
// session is what the library revalidates the response against.
type ChallengePayload struct {
	Challenge string               `json:"challenge"`
	UserID    uint                 `json:"user_id"`
	Email     string               `json:"email,omitempty"`
	RPID      string               `json:"rp_id"`
	Origin    string               `json:"origin"`
	ExpiresAt int64                `json:"expires_at"`
	Session   webauthn.SessionData `json:"session"`
}

type IChallengeService interface {
	Issue(c *fiber.Ctx, flow ChallengeFlow, payload *ChallengePayload)
	Read(c *fiber.Ctx, flow ChallengeFlow) *ChallengePayload
	Clear(c *fiber.Ctx, flow ChallengeFlow)
}

// ChallengeService encodes the payload as base64url JSON and appends an
// HMAC-SHA256 tag keyed by the security secret. The tag is a hardening over
// relying on HttpOnly/Secure alone; a cookie that fails the MAC reads as
// absent.
type ChallengeService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewChallengeService(secret []byte, ttl time.Duration) *ChallengeService {
	return &ChallengeService{secret: secret, ttl: ttl, now: time.Now}
}

func cookieName(flow ChallengeFlow) string {
	if flow == FlowRegister {
		return registerCookieName
	}
	return authenticateCookieName
}

func (s *ChallengeService) Issue(c *fiber.Ctx, flow ChallengeFlow, payload *ChallengePayload) {
	expires := s.now().Add(s.ttl)
	payload.ExpiresAt = expires.Unix()
	payload.Session.Expires = expires

	value := s.encode(payload)
	if len(value) > maxCookieValueLen {
		// The allow-list is the only unbounded part of the payload; an
		// account with many passkeys can push it past the cookie cap.
		// Verify re-checks credential ownership against the store, so the
		// list is droppable.
		trimmed := *payload
		trimmed.Session.AllowedCredentialIDs = nil
		value = s.encode(&trimmed)
	}

	c.Cookie(&fiber.Cookie{
		Name:     cookieName(flow),
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Read returns nil for a missing, malformed, tampered, incomplete, or
// expired cookie; the caller cannot distinguish those cases and should not.
func (s *ChallengeService) Read(c *fiber.Ctx, flow ChallengeFlow) *ChallengePayload {
	raw := c.Cookies(cookieName(flow))
	if raw == "" {
		return nil
	}
	return s.decode(raw)
}

// Clear is idempotent: clearing an absent cookie just re-sends the removal
// header.
func (s *ChallengeService) Clear(c *fiber.Ctx, flow ChallengeFlow) {
	c.Cookie(&fiber.Cookie{
		Name:     cookieName(flow),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  s.now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func encodeSegment(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeSegment(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

func (s *ChallengeService) sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return encodeSegment(body) + "." + encodeSegment(mac.Sum(nil))
}

func (s *ChallengeService) encode(payload *ChallengePayload) string {
	body, _ := json.Marshal(payload)
	return s.sign(body)
}

func (s *ChallengeService) decode(raw string) *ChallengePayload {
	parts := strings.Split(raw, ".")
	if len(parts) != 2 {
		return nil
	}
	body, err := decodeSegment(parts[0])
	if err != nil {
		return nil
	}
	tag, err := decodeSegment(parts[1])
	if err != nil {
		return nil
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	if !hmac.Equal(tag, mac.Sum(nil)) {
		return nil
	}

	var payload ChallengePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	if payload.Challenge == "" || payload.UserID == 0 || payload.RPID == "" || payload.Origin == "" || payload.ExpiresAt == 0 {
		return nil
	}
	if !s.now().Before(time.Unix(payload.ExpiresAt, 0)) {
		return nil
	}
	return &payload
}
