package main

import (
	"passkey_auth_ms/config"
	"passkey_auth_ms/controller"
	"passkey_auth_ms/dtos/request"
	"passkey_auth_ms/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Server struct {
	logger            *zap.Logger
	PasskeyController controller.IPasskeyController
	AuthController    controller.IAuthController
}

func NewServer(
	logger *zap.Logger,
	passkeyController controller.IPasskeyController,
	authController controller.IAuthController,
) *Server {
	return &Server{
		logger:            logger,
		PasskeyController: passkeyController,
		AuthController:    authController,
	}
}

func (s *Server) Start() *fiber.App {
	app := fiber.New()

	app.Use(middleware.RecoveryMiddleware(s.logger))
	app.Use(middleware.LoggingMiddleware(s.logger))

	contextPath := app.Group(config.Conf.Application.Server.ContextPath)
	apiVersion := contextPath.Group(config.Conf.Application.Server.ApiVersion)

	requireAuth := middleware.AuthMiddleware()

	// Passkey ceremony endpoints. Registration and credential management
	// need a session; authentication is how a session gets made.
	apiVersion.Post("/register/options", requireAuth, s.PasskeyController.RegisterOptions)
	apiVersion.Post("/register/verify", requireAuth, s.PasskeyController.RegisterVerify)
	apiVersion.Post("/authenticate/options", s.PasskeyController.AuthenticateOptions)
	apiVersion.Post("/authenticate/verify", s.PasskeyController.AuthenticateVerify)
	apiVersion.Get("/me", requireAuth, s.PasskeyController.ListCredentials)
	apiVersion.Delete("/me", requireAuth, s.PasskeyController.RevokeCredential)

	// Standard login path the minted OTP is exchanged through.
	authGroup := apiVersion.Group("/auth")
	authGroup.Post("/verify-magiclink", middleware.ValidateBody[request.VerifyMagicLinkRequest](), s.AuthController.VerifyMagicLink)
	authGroup.Post("/refresh-token", middleware.ValidateBody[request.RefreshTokenReq](), s.AuthController.RefreshToken)

	return app
}
