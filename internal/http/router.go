package http

import (
	"log/slog"
	"time"

	"github.com/annvlk/userdir/internal/auth"
	"github.com/annvlk/userdir/internal/config"
	"github.com/annvlk/userdir/internal/directory"
	"github.com/annvlk/userdir/internal/domain/user"
	"github.com/annvlk/userdir/internal/http/handlers"
	"github.com/annvlk/userdir/internal/http/middlewares"
	"github.com/annvlk/userdir/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps carries everything the router wires together. Store and Auth are
// interfaces/services so tests can run the full surface against the
// in-memory repo.
type Deps struct {
	Log   *slog.Logger
	Cfg   config.Config
	Store directory.Store
	Auth  *auth.Service

	// Optional.
	Prom     *observability.Prom
	Registry *prometheus.Registry
	Redis    *redis.Client
	Ping     func() error
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" && d.Cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(otelgin.Middleware("userdir"))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.CORSAllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(d.Cfg.MaxBodyBytes))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	// Identity is resolved for every request; absence or an invalid token
	// just means anonymous. Enforcement happens per route group below.
	authMW := middlewares.NewAuthMiddleware(d.Auth)
	r.Use(authMW.Identify())

	// health + metrics
	h := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	// login, rate limited by client IP
	var loginLimiter *middlewares.RateLimiter
	if d.Redis != nil {
		loginLimiter = middlewares.NewRedisRateLimiter(d.Redis, d.Cfg.LoginRateLimit, time.Minute)
	} else {
		loginLimiter = middlewares.NewRateLimiter(d.Cfg.LoginRateLimit, time.Minute)
	}

	authHandler := handlers.NewAuthHandler(d.Auth)
	r.POST("/auth/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)

	// directory surface
	usersHandler := handlers.NewUsersHandler(directory.NewService(d.Store))

	users := r.Group("/users", authMW.RequireAuth())
	users.GET("", usersHandler.ListUsers)
	users.GET("/:id", usersHandler.GetUserByID)

	admin := users.Group("", authMW.RequireRole(user.RoleAdmin))
	admin.POST("", usersHandler.CreateUser)
	admin.PUT("/:id", usersHandler.UpdateUser)
	admin.DELETE("/:id", usersHandler.DeleteUser)

	return r
}
