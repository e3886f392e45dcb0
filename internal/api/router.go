package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/subtrackr/subscription-tracker/internal/api/handler"
	"github.com/subtrackr/subscription-tracker/internal/api/middleware"
	"github.com/subtrackr/subscription-tracker/internal/core/ports"
	"github.com/subtrackr/subscription-tracker/internal/core/ratelimit"
	"github.com/subtrackr/subscription-tracker/internal/core/service"
	"github.com/subtrackr/subscription-tracker/internal/core/token"
	"github.com/subtrackr/subscription-tracker/internal/infrastructure/config"
)

// Deps carries the injected stores so the router can be assembled against
// MongoDB/Redis in production and in-memory fakes in tests.
type Deps struct {
	Users    ports.UserRepository
	Counters ports.CounterStore
	Mongo    *mongo.Database // readiness probe; may be nil
	Redis    *redis.Client   // readiness probe; may be nil
	Config   *config.Config
	Log      zerolog.Logger

	// Registry receives the HTTP request metrics. nil selects the
	// default registry; tests pass a fresh one so routers can be built
	// repeatedly without duplicate-collector panics.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	cfg := deps.Config

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if deps.Registry != nil {
		registerer = deps.Registry
		gatherer = deps.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "subtrackr",
		Registerer: registerer,
	}))

	// --- Dependencies ---
	codec := token.NewCodec(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	limiter := ratelimit.NewLimiter(deps.Counters, map[ratelimit.Action]ratelimit.Policy{
		ratelimit.ActionLogin:    {Attempts: cfg.RateLimit.LoginAttempts, Window: cfg.RateLimit.LoginWindow},
		ratelimit.ActionRegister: {Attempts: cfg.RateLimit.RegisterAttempts, Window: cfg.RateLimit.RegisterWindow},
		ratelimit.ActionRefresh:  {Attempts: cfg.RateLimit.LoginAttempts, Window: cfg.RateLimit.LoginWindow},
	})
	sessions := service.NewSessionService(deps.Users, codec, limiter, deps.Log, cfg.Auth.OpTimeout)
	authHandler := handler.NewAuthHandler(sessions)
	requireAuth := middleware.Auth(codec)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/refresh", authHandler.Refresh)
	e.GET("/auth/me", authHandler.Me, requireAuth)
	e.PUT("/auth/change-password", authHandler.ChangePassword, requireAuth)
	e.POST("/auth/logout", authHandler.Logout, requireAuth)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
