package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func issueCookie(t *testing.T, svc *ChallengeService, flow ChallengeFlow, payload *ChallengePayload) *http.Cookie {
	t.Helper()

	app := fiber.New()
	app.Post("/issue", func(c *fiber.Ctx) error {
		svc.Issue(c, flow, payload)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/issue", nil))
	assert.NoError(t, err)

	for _, cookie := range resp.Cookies() {
		if cookie.Name == cookieName(flow) {
			return cookie
		}
	}
	t.Fatalf("no %s cookie set", cookieName(flow))
	return nil
}

func readCookie(t *testing.T, svc *ChallengeService, flow ChallengeFlow, cookie *http.Cookie) *ChallengePayload {
	t.Helper()

	var got *ChallengePayload
	app := fiber.New()
	app.Post("/read", func(c *fiber.Ctx) error {
		got = svc.Read(c, flow)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/read", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	_, err := app.Test(req)
	assert.NoError(t, err)
	return got
}

func TestChallenge_RoundTrip(t *testing.T) {
	svc := NewChallengeService([]byte("test-secret"), 5*time.Minute)

	payload := &ChallengePayload{
		Challenge: "c29tZS1jaGFsbGVuZ2U",
		UserID:    42,
		Email:     "player@example.com",
		RPID:      "app.example.com",
		Origin:    "https://app.example.com",
	}

	cookie := issueCookie(t, svc, FlowRegister, payload)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int((5 * time.Minute).Seconds()), cookie.MaxAge)

	got := readCookie(t, svc, FlowRegister, cookie)
	assert.NotNil(t, got)
	assert.Equal(t, payload.Challenge, got.Challenge)
	assert.Equal(t, uint(42), got.UserID)
	assert.Equal(t, "player@example.com", got.Email)
	assert.NotZero(t, got.ExpiresAt)
}

func TestChallenge_FlowsUseSeparateCookies(t *testing.T) {
	svc := NewChallengeService([]byte("test-secret"), 5*time.Minute)

	payload := &ChallengePayload{Challenge: "x", UserID: 1, RPID: "rp", Origin: "o"}
	regCookie := issueCookie(t, svc, FlowRegister, payload)

	assert.Equal(t, "passkey_reg_challenge", regCookie.Name)
	// A registration cookie presented on the authentication flow reads as absent.
	assert.Nil(t, readCookie(t, svc, FlowAuthenticate, regCookie))
}

func TestChallenge_Missing(t *testing.T) {
	svc := NewChallengeService([]byte("test-secret"), 5*time.Minute)
	assert.Nil(t, readCookie(t, svc, FlowRegister, nil))
}

func TestChallenge_TamperedBody(t *testing.T) {
	svc := NewChallengeService([]byte("test-secret"), 5*time.Minute)
	payload := &ChallengePayload{Challenge: "x", UserID: 1, RPID: "rp", Origin: "o"}
	cookie := issueCookie(t, svc, FlowRegister, payload)

	parts := strings.Split(cookie.Value, ".")
	assert.Len(t, parts, 2)

	// Re-encode a modified body under the original tag.
	var decoded ChallengePayload
	body, err := decodeSegment(parts[0])
	assert.NoError(t, err)
	assert.NoError(t, json.Unmarshal(body, &decoded))
	decoded.UserID = 999
	forged, _ := json.Marshal(decoded)
	cookie.Value = encodeSegment(forged) + "." + parts[1]

	assert.Nil(t, readCookie(t, svc, FlowRegister, cookie))
}

func TestChallenge_WrongSecret(t *testing.T) {
	issuer := NewChallengeService([]byte("secret-a"), 5*time.Minute)
	reader := NewChallengeService([]byte("secret-b"), 5*time.Minute)

	payload := &ChallengePayload{Challenge: "x", UserID: 1, RPID: "rp", Origin: "o"}
	cookie := issueCookie(t, issuer, FlowRegister, payload)
	assert.Nil(t, readCookie(t, reader, FlowRegister, cookie))
}

func TestChallenge_Garbage(t *testing.T) {
	svc := NewChallengeService([]byte("test-secret"), 5*time.Minute)

	for _, value := range []string{"not-a-cookie", "a.b.c", "!!!.???", "."} {
		cookie := &http.Cookie{Name: "passkey_reg_challenge", Value: value}
		assert.Nil(t, readCookie(t, svc, FlowRegister, cookie), "value %q should read as absent", value)
	}
}

func TestChallenge_Expired(t *testing.T) {
	svc := NewChallengeService([]byte("test-secret"), 5*time.Minute)
	payload := &ChallengePayload{Challenge: "x", UserID: 1, RPID: "rp", Origin: "o"}
	cookie := issueCookie(t, svc, FlowRegister, payload)

	svc.now = func() time.Time { return time.Now().Add(6 * time.Minute) }
	assert.Nil(t, readCookie(t, svc, FlowRegister, cookie))
}

func TestChallenge_IncompletePayload(t *testing.T) {
	svc := NewChallengeService([]byte("test-secret"), 5*time.Minute)

	// A correctly signed payload missing required fields still reads as absent.
	body, _ := json.Marshal(&ChallengePayload{Challenge: "x", ExpiresAt: time.Now().Add(time.Minute).Unix()})
	cookie := &http.Cookie{Name: "passkey_reg_challenge", Value: svc.sign(body)}
	assert.Nil(t, readCookie(t, svc, FlowRegister, cookie))
}

func TestChallenge_OversizedAllowListStaysUnderCookieCap(t *testing.T) {
	svc := NewChallengeService([]byte("test-secret"), 5*time.Minute)

	payload := &ChallengePayload{
		Challenge: "c29tZS1jaGFsbGVuZ2U",
		UserID:    42,
		Email:     "player@example.com",
		RPID:      "app.example.com",
		Origin:    "https://app.example.com",
	}
	for i := 0; i < 80; i++ {
		id := make([]byte, 64)
		id[0] = byte(i)
		payload.Session.AllowedCredentialIDs = append(payload.Session.AllowedCredentialIDs, id)
	}

	cookie := issueCookie(t, svc, FlowAuthenticate, payload)
	assert.LessOrEqual(t, len(cookie.Value), maxCookieValueLen)

	// The trimmed cookie still carries everything verify actually needs.
	got := readCookie(t, svc, FlowAuthenticate, cookie)
	assert.NotNil(t, got)
	assert.Equal(t, payload.Challenge, got.Challenge)
	assert.Equal(t, uint(42), got.UserID)
	assert.Empty(t, got.Session.AllowedCredentialIDs)
}

func TestChallenge_SmallPayloadKeepsAllowList(t *testing.T) {
	svc := NewChallengeService([]byte("test-secret"), 5*time.Minute)

	payload := &ChallengePayload{
		Challenge: "x",
		UserID:    1,
		RPID:      "rp",
		Origin:    "o",
	}
	payload.Session.AllowedCredentialIDs = [][]byte{[]byte("authenticator-1")}

	cookie := issueCookie(t, svc, FlowAuthenticate, payload)
	got := readCookie(t, svc, FlowAuthenticate, cookie)
	assert.NotNil(t, got)
	assert.Len(t, got.Session.AllowedCredentialIDs, 1)
}

func TestChallenge_ClearIsIdempotent(t *testing.T) {
	svc := NewChallengeService([]byte("test-secret"), 5*time.Minute)

	app := fiber.New()
	app.Post("/clear", func(c *fiber.Ctx) error {
		svc.Clear(c, FlowAuthenticate)
		svc.Clear(c, FlowAuthenticate)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/clear", nil))
	assert.NoError(t, err)

	var cleared bool
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "passkey_auth_challenge" {
			cleared = true
			assert.Empty(t, cookie.Value)
			assert.True(t, cookie.Expires.Before(time.Now()))
		}
	}
	assert.True(t, cleared, "clearing should always send the removal cookie")
}
