package controller

import (
	"strconv"

	"passkey_auth_ms/dtos/request"
	"passkey_auth_ms/dtos/response"
	"passkey_auth_ms/services"

	"github.com/gofiber/fiber/v2"
)

type IPasskeyController interface {
	RegisterOptions(c *fiber.Ctx) error
	RegisterVerify(c *fiber.Ctx) error
	AuthenticateOptions(c *fiber.Ctx) error
	AuthenticateVerify(c *fiber.Ctx) error
	ListCredentials(c *fiber.Ctx) error
	RevokeCredential(c *fiber.Ctx) error
}

type PasskeyController struct {
	service   services.IPasskeyService
	challenge services.IChallengeService
}

func NewPasskeyController(service services.IPasskeyService, challenge services.IChallengeService) IPasskeyController {
	return &PasskeyController{service: service, challenge: challenge}
}

func requestMeta(c *fiber.Ctx) services.RequestMeta {
	return services.RequestMeta{
		IP:        c.IP(),
		UserAgent: c.Get("User-Agent"),
	}
}

func currentUser(c *fiber.Ctx) uint {
	userID, _ := c.Locals("userId").(uint)
	return userID
}

// respondError maps a FlowError onto the uniform error body; anything else
// is a generic 500 with no internal detail leaked.
func respondError(c *fiber.Ctx, err error) error {
	if fe, ok := services.AsFlowError(err); ok {
		if fe.RetryAfter > 0 {
			c.Set("Retry-After", strconv.Itoa(fe.RetryAfter))
		}
		return c.Status(fe.Status).JSON(response.ErrorResponse{
			Error:   fe.Code,
			Message: fe.Message,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(response.ErrorResponse{
		Error: response.CodeInternalError,
	})
}

func (pc *PasskeyController) RegisterOptions(c *fiber.Ctx) error {
	userID := currentUser(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(response.ErrorResponse{Error: response.CodeUnauthorized})
	}

	options, payload, err := pc.service.RegisterOptions(c.Context(), userID, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}

	pc.challenge.Issue(c, services.FlowRegister, payload)
	return c.JSON(fiber.Map{"options": options})
}

func (pc *PasskeyController) RegisterVerify(c *fiber.Ctx) error {
	userID := currentUser(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(response.ErrorResponse{Error: response.CodeUnauthorized})
	}

	var body request.RegisterVerifyRequest
	// A malformed body falls through as an empty credential; the service
	// answers with the right machine code.
	_ = c.BodyParser(&body)

	payload := pc.challenge.Read(c, services.FlowRegister)
	err := pc.service.RegisterVerify(c.Context(), userID, payload, body.Credential, body.DeviceName, requestMeta(c))

	// The challenge is single-use: cleared on every exit path.
	pc.challenge.Clear(c, services.FlowRegister)

	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(response.SuccessResponse{Success: true})
}

func (pc *PasskeyController) AuthenticateOptions(c *fiber.Ctx) error {
	var body request.AuthenticateOptionsRequest
	_ = c.BodyParser(&body)
	if body.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(response.ErrorResponse{
			Error: response.CodeMissingEmail,
		})
	}

	options, payload, err := pc.service.AuthenticateOptions(c.Context(), body.Email, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}

	pc.challenge.Issue(c, services.FlowAuthenticate, payload)
	return c.JSON(fiber.Map{"options": options})
}

func (pc *PasskeyController) AuthenticateVerify(c *fiber.Ctx) error {
	var body request.AuthenticateVerifyRequest
	_ = c.BodyParser(&body)

	payload := pc.challenge.Read(c, services.FlowAuthenticate)
	resp, err := pc.service.AuthenticateVerify(c.Context(), body.Email, body.Credential, payload, requestMeta(c))

	pc.challenge.Clear(c, services.FlowAuthenticate)

	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (pc *PasskeyController) ListCredentials(c *fiber.Ctx) error {
	userID := currentUser(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(response.ErrorResponse{Error: response.CodeUnauthorized})
	}

	resp, err := pc.service.ListCredentials(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (pc *PasskeyController) RevokeCredential(c *fiber.Ctx) error {
	userID := currentUser(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(response.ErrorResponse{Error: response.CodeUnauthorized})
	}

	var body request.RevokeCredentialRequest
	_ = c.BodyParser(&body)
	if body.Id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(response.ErrorResponse{
			Error:   response.CodeCredentialNotFound,
			Message: "credential id required",
		})
	}

	if err := pc.service.RevokeCredential(userID, body.Id, requestMeta(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(response.SuccessResponse{Success: true})
}
