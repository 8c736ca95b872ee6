package middleware

import (
	"strings"
	"time"

	"passkey_auth_ms/config"
	"passkey_auth_ms/dtos/response"
	"passkey_auth_ms/services"

	"github.com/gofiber/fiber/v2"
)

func AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := config.Conf.Application.Security.Secret
		issuer := config.Conf.Application.Security.Issuer
		acctm := config.Conf.Application.Security.TokenValidityInSeconds
		reftm := config.Conf.Application.Security.TokenValidityInSecondsForRememberMe

		jwt := services.NewJWTService([]byte(secret), issuer, time.Duration(acctm)*time.Second, time.Duration(reftm)*time.Second)

		authHeader := c.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(response.ErrorResponse{
				Error: response.CodeUnauthorized,
			})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.ParseJWT(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(response.ErrorResponse{
				Error: response.CodeInvalidSession,
			})
		}

		claims, err := jwt.GetClaims(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(response.ErrorResponse{
				Error: response.CodeInvalidSession,
			})
		}

		sub, ok := claims["sub"].(float64)
		if !ok || sub <= 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(response.ErrorResponse{
				Error: response.CodeInvalidSession,
			})
		}
		c.Locals("userId", uint(sub))

		return c.Next()
	}
}
