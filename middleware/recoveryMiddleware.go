package middleware

import (
	"runtime/debug"

	"passkey_auth_ms/dtos/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RecoveryMiddleware turns a handler panic into a generic 500 so no stack
// detail ever reaches the client.
func RecoveryMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("caught panic",
					zap.Any("panic", r),
					zap.String("path", c.Path()),
					zap.ByteString("stack", debug.Stack()),
				)
				err = c.Status(fiber.StatusInternalServerError).JSON(response.ErrorResponse{
					Error: response.CodeInternalError,
				})
			}
		}()
		return c.Next()
	}
}
