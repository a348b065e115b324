package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"vigil/api/handler"
	apiMiddleware "vigil/api/middleware"
	"vigil/api/routes"
	"vigil/config"
	"vigil/internal/repository"
	"vigil/internal/service"
	"vigil/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	db, err := config.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("database connection failed")
	}

	validate := validator.New()
	clock := service.RealClock{}

	accessManager := utils.JWTManager{
		Secret:         []byte(cfg.JWTSecret),
		Issuer:         cfg.JWTIssuer,
		AccessTokenTTL: cfg.AccessTokenTTL,
	}
	accessIssuer := service.JWTAccessIssuer{Manager: &accessManager}
	mfaIssuer := service.MFATokenIssuerJWT{
		Secret: []byte(cfg.MFAJWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.MFATokenTTL,
	}

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	mfaRepo := repository.NewMFASecretRepository(db)
	eventRepo := repository.NewAuditEventRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	var notifier service.AlertNotifier
	if n := service.NewResendAlertNotifier(cfg.ResendAPIKey, cfg.AlertEmailFrom, cfg.AlertEmailTo); n != nil {
		notifier = n
	}

	recorder := service.NewRecorder(eventRepo, logger)
	alertService := service.NewAlertService(alertRepo, eventRepo, notifier, clock, logger)
	engine := service.NewEngine(alertService, logger,
		service.NewBruteForceRule(eventRepo, clock),
	)
	queryService := service.NewQueryService(eventRepo)
	summaryService := service.NewSummaryService(eventRepo, alertRepo, clock)

	authService := service.NewAuthService(
		userRepo,
		sessionRepo,
		mfaRepo,
		recorder,
		engine,
		service.BcryptPasswordHasher{},
		accessIssuer,
		mfaIssuer,
		service.NewTOTPProvider(cfg.JWTIssuer),
		clock,
		service.AuthConfig{
			AccessTokenTTL: cfg.AccessTokenTTL,
			SessionTTL:     cfg.SessionTTL,
			MFATokenTTL:    cfg.MFATokenTTL,
			MFAIssuer:      cfg.JWTIssuer,
		},
	)

	authHandler := handler.NewAuthHandler(authService, validate)
	securityHandler := handler.NewSecurityHandler(alertService, queryService, summaryService, validate)

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status": v.Status,
				"method": v.Method,
				"uri":    v.URI,
				"ip":     v.RemoteIP,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := sessionRepo.CleanupExpired(context.Background()); err != nil {
				logger.WithError(err).Warn("session cleanup failed")
			}
		}
	}()

	authMiddleware := apiMiddleware.AuthMiddleware{JWT: &accessManager, Sessions: sessionRepo}
	router := routes.NewRouter(app, authHandler, securityHandler, authMiddleware)
	router.RegisterRoutes()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.WithField("addr", cfg.HTTPAddr).Info("server started")
	if err := app.StartServer(server); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
