package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/talentbridge/auth-service/internal/api/handler"
	"github.com/talentbridge/auth-service/internal/api/middleware"
	"github.com/talentbridge/auth-service/internal/core/domain"
	"github.com/talentbridge/auth-service/internal/core/ports"
	"github.com/talentbridge/auth-service/internal/core/service"
	"github.com/talentbridge/auth-service/internal/infrastructure/config"
	mongodb "github.com/talentbridge/auth-service/internal/infrastructure/db/mongo"
	redisdb "github.com/talentbridge/auth-service/internal/infrastructure/db/redis"
	"github.com/talentbridge/auth-service/internal/infrastructure/notify"
)

// Dependencies carries everything the router needs that is constructed in
// main: connections, the analytics repository, and the async event recorder
// (main owns the recorder's lifecycle so it can be started with the server
// context).
type Dependencies struct {
	Config   *config.Config
	DB       *mongo.Database
	Redis    *redis.Client
	Events   ports.AnalyticsRepository
	Recorder ports.LoginEventRecorder
	Logger   zerolog.Logger
}

// NewRouter builds the Echo instance with all routes registered. It fails
// when the signing secret is absent so a misconfigured process never starts
// serving.
func NewRouter(deps Dependencies) (*echo.Echo, error) {
	cfg := deps.Config

	issuer, err := service.NewTokenIssuer(
		cfg.JWTSecret,
		cfg.Auth.TokenTTL,
		cfg.Auth.ExtendedTokenTTL,
		cfg.Auth.ResetTokenTTL,
	)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("auth"))

	// --- Dependencies ---
	accounts := mongodb.NewAccountRepository(deps.DB)
	throttle := redisdb.NewLoginThrottle(deps.Redis, cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow)
	mailer := notify.NewLogMailer(deps.Logger)

	analyticsService := service.NewAnalyticsService(deps.Events, service.RiskOptions{
		Window:              cfg.Risk.Window,
		ReportWindow:        cfg.Risk.ReportWindow,
		SuspiciousWindow:    cfg.Risk.SuspiciousWindow,
		MaxNetworks:         cfg.Risk.MaxNetworks,
		MaxDevices:          cfg.Risk.MaxDevices,
		SuspiciousThreshold: cfg.Risk.SuspiciousThreshold,
	}, deps.Logger)

	authService := service.NewAuthService(accounts, issuer, analyticsService, deps.Recorder, throttle, mailer, service.AuthOptions{
		MaxLoginAttempts:        cfg.Auth.MaxLoginAttempts,
		LockDuration:            cfg.Auth.LockDuration,
		MaxSessions:             cfg.Auth.MaxSessions,
		RequireSessionOnRefresh: cfg.Auth.RequireSessionOnRefresh,
	}, deps.Logger)

	sessionService := service.NewSessionService(accounts, cfg.Auth.SessionWindow, deps.Logger)
	resetService := service.NewResetService(accounts, issuer, deps.Recorder, mailer, deps.Logger)

	authHandler := handler.NewAuthHandler(authService, resetService)
	sessionHandler := handler.NewSessionHandler(sessionService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	authMiddleware := middleware.Auth(cfg.JWTSecret)

	// --- Public routes ---
	e.POST("/register", authHandler.Register)
	e.POST("/login", authHandler.Login)
	e.POST("/refresh", authHandler.Refresh)
	e.POST("/forgot-password", authHandler.ForgotPassword)
	e.POST("/verify-reset-token", authHandler.VerifyResetToken)
	e.POST("/reset-password", authHandler.ResetPassword)

	// --- Bearer routes ---
	authed := e.Group("", authMiddleware)
	authed.POST("/change-password", authHandler.ChangePassword)
	authed.GET("/sessions", sessionHandler.List)
	authed.DELETE("/sessions/:id", sessionHandler.Revoke)
	authed.DELETE("/sessions", sessionHandler.RevokeOthers)
	authed.PUT("/sessions/activity", sessionHandler.Touch)
	authed.GET("/analytics", analyticsHandler.Overview)
	authed.GET("/security-insights", analyticsHandler.SecurityInsights)

	// --- Admin routes ---
	admin := e.Group("/admin", authMiddleware, middleware.RequireRoles(domain.RoleAdmin))
	admin.GET("/accounts/:id/security-insights", analyticsHandler.AccountSecurityInsights)

	// --- Health and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.DB, deps.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e, nil
}
