package controller

import (
	"passkey_auth_ms/dtos/request"
	"passkey_auth_ms/services"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	VerifyMagicLink(c *fiber.Ctx) error
	RefreshToken(c *fiber.Ctx) error
}

type AuthController struct {
	session services.ISessionService
}

func NewAuthController(session services.ISessionService) IAuthController {
	return &AuthController{session: session}
}

func (ac *AuthController) VerifyMagicLink(c *fiber.Ctx) error {
	body := c.Locals("body").(*request.VerifyMagicLinkRequest)

	tokens, err := ac.session.LoginWithMagicLink(c.Context(), body.Email, body.Otp)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tokens)
}

func (ac *AuthController) RefreshToken(c *fiber.Ctx) error {
	body := c.Locals("body").(*request.RefreshTokenReq)

	tokens, err := ac.session.RefreshToken(c.Context(), body.RefreshToken)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tokens)
}
