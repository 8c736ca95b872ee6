package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"passkey_auth_ms/dtos/request"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func validateApp() *fiber.App {
	InitValidator()

	app := fiber.New()
	app.Post("/verify", ValidateBody[request.VerifyMagicLinkRequest](), func(c *fiber.Ctx) error {
		body := c.Locals("body").(*request.VerifyMagicLinkRequest)
		return c.JSON(fiber.Map{"email": body.Email})
	})
	return app
}

func postJSON(app *fiber.App, body string) (*http.Response, error) {
	req := httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return app.Test(req)
}

func TestValidateBody_PassesValidBody(t *testing.T) {
	app := validateApp()

	resp, err := postJSON(app, `{"email":"player@example.com","otp":"123456"}`)

	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestValidateBody_RejectsInvalidBody(t *testing.T) {
	app := validateApp()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"email":`},
		{"missing email", `{"otp":"123456"}`},
		{"bad email", `{"email":"not-an-email","otp":"123456"}`},
		{"otp too short", `{"email":"player@example.com","otp":"123"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := postJSON(app, tt.body)
			assert.NoError(t, err)
			assert.Equal(t, 400, resp.StatusCode)
		})
	}
}
