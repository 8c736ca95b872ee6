package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"passkey_auth_ms/config"
	"passkey_auth_ms/controller"
	"passkey_auth_ms/middleware"
	"passkey_auth_ms/repository/command_repository"
	"passkey_auth_ms/repository/query_repository"
	"passkey_auth_ms/services"

	"github.com/IBM/sarama"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	// Infrastructure
	dbConnection  *gorm.DB
	redisClient   *redis.Client
	kafkaProducer sarama.AsyncProducer
	webAuthn      *webauthn.WebAuthn
	logger        *zap.Logger
	limiter       *services.MemoryRateLimiter

	// Repository
	profileQuery query_repository.IProfileQueryRepository
	credQuery    query_repository.ICredentialQueryRepository
	credCommand  command_repository.ICredentialCommandRepository
	auditCommand command_repository.IAuditCommandRepository

	// Service
	jwtService       services.IJWTService
	redisService     services.IRedisService
	challengeService services.IChallengeService
	auditService     services.IAuditService
	magicLinkService services.IMagicLinkService
	passkeyService   services.IPasskeyService
	sessionService   services.ISessionService

	// Controller
	passkeyController controller.IPasskeyController
	authController    controller.IAuthController
}

func (s *service) Start() {
	log.Info("Opening database connection...")
	s.dbConnection = config.OpenDatabaseConnection(config.Conf.Application.Datasource.PrimaryURL)
	config.Migrate(config.Conf.Application.Datasource.PrimaryURL)

	log.Info("Opening redis connection...")
	s.redisClient = config.ConnectToRedis(config.Conf.Application.Redis.Host)

	log.Info("Connecting kafka producer...")
	s.kafkaProducer = config.InitKafkaProducer()

	log.Info("WebAuthn config")
	s.webAuthn = config.InitWebAuthn()

	s.logger = config.InitLogger()
	middleware.InitValidator()

	s.DependencyInjection()

	app := NewServer(s.logger, s.passkeyController, s.authController).Start()

	log.Info("Server starting..")
	go func() {
		if err := app.Listen(config.Conf.Application.Server.Port); err != nil {
			log.Fatal("Server failed to start")
		}
	}()
	s.gracefulShutdown(app)
}

func (s *service) DependencyInjection() {
	sec := config.Conf.Application.Security

	s.jwtService = services.NewJWTService(
		[]byte(sec.Secret),
		sec.Issuer,
		time.Duration(sec.TokenValidityInSeconds)*time.Second,
		time.Duration(sec.TokenValidityInSecondsForRememberMe)*time.Second,
	)

	// Repositories
	s.profileQuery = query_repository.NewProfileQueryRepository()
	s.credQuery = query_repository.NewCredentialQueryRepository()
	s.credCommand = command_repository.NewCredentialCommandRepository()
	s.auditCommand = command_repository.NewAuditCommandRepository()

	// Services
	challengeTTL := time.Duration(sec.ChallengeTTLInSeconds) * time.Second
	magicLinkTTL := time.Duration(sec.MagicLinkTTLInSeconds) * time.Second
	rl := config.Conf.Application.RateLimit

	s.limiter = services.NewMemoryRateLimiter()
	s.limiter.StartSweeper(time.Minute)

	s.redisService = services.NewRedisService(s.redisClient)
	s.challengeService = services.NewChallengeService([]byte(sec.Secret), challengeTTL)
	s.auditService = services.NewAuditService(s.dbConnection, s.auditCommand, s.kafkaProducer, config.Conf.Application.Kafka.AuditTopic, s.logger)
	s.magicLinkService = services.NewMagicLinkService(s.redisService, magicLinkTTL)
	s.passkeyService = services.NewPasskeyService(
		s.dbConnection,
		services.NewWebAuthnProvider(s.webAuthn),
		s.profileQuery,
		s.credQuery,
		s.credCommand,
		s.limiter,
		s.auditService,
		s.magicLinkService,
		services.PasskeyConfig{
			RPID:        config.Conf.Application.WebAuthn.RpID,
			Origin:      config.Conf.Application.WebAuthn.RpOrigin,
			IPMax:       rl.IPMax,
			IdentityMax: rl.IdentityMax,
			Window:      time.Duration(rl.WindowInSeconds) * time.Second,
		},
	)
	s.sessionService = services.NewSessionService(s.dbConnection, s.profileQuery, s.magicLinkService, s.jwtService, s.redisService)

	// Controllers
	s.passkeyController = controller.NewPasskeyController(s.passkeyService, s.challengeService)
	s.authController = controller.NewAuthController(s.sessionService)
}

func (s *service) gracefulShutdown(app *fiber.App) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.Shutdown(); err != nil {
		log.Error("error while shutting down app", err)
	}

	s.limiter.Close()
	if s.kafkaProducer != nil {
		s.kafkaProducer.AsyncClose()
	}

	done := make(chan bool)
	go func() {
		config.CloseDatabaseConnection(s.dbConnection)
		done <- true
	}()

	select {
	case <-ctx.Done():
		log.Error("timeout while shutting down database", ctx.Err())
	case <-done:
		log.Info("database is gracefully shutdown")
	}
}
