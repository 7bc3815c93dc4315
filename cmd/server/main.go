package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roomledger/roomledger/internal/config"
	"github.com/roomledger/roomledger/internal/handlers"
	"github.com/roomledger/roomledger/internal/middleware"
	"github.com/roomledger/roomledger/internal/notify"
	"github.com/roomledger/roomledger/internal/repository"
	"github.com/roomledger/roomledger/internal/service"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("level", cfg.Log.Level).Warn("Unknown log level, using info")
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStartup()

	dynamoClient, err := repository.NewDynamoClient(startupCtx, &cfg.DynamoDB, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize DynamoDB")
	}
	redisClient, err := repository.NewRedisClient(startupCtx, &cfg.Redis, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize Redis")
	}
	defer redisClient.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(dynamoClient, cfg.DynamoDB.TableName, logger)
	roomRepo := repository.NewRoomRepository(dynamoClient, cfg.DynamoDB.TableName, logger)
	ledgerRepo := repository.NewLedgerRepository(dynamoClient, cfg.DynamoDB.TableName, logger)
	sessionRepo := repository.NewSessionRepository(redisClient, logger)

	// Initialize services
	tokenService, err := service.NewSessionTokenService(&cfg.Session, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize session token service")
	}
	notifier := notify.New(&cfg.Mail, logger)
	otpService := service.NewOTPService(userRepo, notifier, &cfg.OTP, &cfg.Mail, logger)
	accountService := service.NewAccountService(
		userRepo,
		roomRepo,
		service.NewPasswordHasher(cfg.Security.BcryptCost),
		notifier,
		cfg.Mail.From,
		logger,
	)
	ledgerService := service.NewLedgerService(userRepo, ledgerRepo, logger)

	sessions := middleware.NewSessionManager(sessionRepo, tokenService, &cfg.Session, logger)
	router := &handlers.Router{
		Auth:           handlers.NewAuthHandlers(otpService, accountService, sessions, logger),
		Accounts:       handlers.NewAccountHandlers(accountService, logger),
		Ledger:         handlers.NewLedgerHandlers(ledgerService, logger),
		Sessions:       sessions,
		AuthMiddleware: middleware.NewAuthMiddleware(userRepo, logger),
		TrustedOrigins: cfg.Server.TrustedOrigins,
		Logger:         logger,
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
