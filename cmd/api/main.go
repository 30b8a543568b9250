package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annvlk/userdir/internal/auth"
	"github.com/annvlk/userdir/internal/config"
	"github.com/annvlk/userdir/internal/db"
	"github.com/annvlk/userdir/internal/directory"
	httpx "github.com/annvlk/userdir/internal/http"
	"github.com/annvlk/userdir/internal/observability"
	"github.com/annvlk/userdir/internal/redisclient"
	"github.com/annvlk/userdir/internal/repo/postgres"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// tracing
	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(context.Background(), "userdir", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}

		defer func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(ctx)
		}()
	}

	// storage
	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	startCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := db.EnsureSchema(startCtx, pool); err != nil {
		log.Error("schema bootstrap failed", "err", err)
		os.Exit(1)
	}

	// metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(registry)

	usersRepo := postgres.NewUsersRepo(pool, prom)
	dirService := directory.NewService(usersRepo)
	authService := auth.NewService(auth.NewManager(cfg.JWTSecret), usersRepo)

	if err := db.EnsureAdminUser(startCtx, dirService, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	// redis is optional; without it the rate limiter is process-local.
	var redisC *redisclient.Client

	if cfg.RedisAddr != "" {
		redisC = redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		if err := redisC.Ping(startCtx); err != nil {
			log.Warn("redis unreachable, falling back to local rate limiting", "err", err)
			_ = redisC.Close()
			redisC = nil
		} else {
			defer redisC.Close()
		}
	}

	ping := func() error {
		ctx, cancel := config.WithTimeout(1 * time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	deps := httpx.Deps{
		Log:      log,
		Cfg:      cfg,
		Store:    usersRepo,
		Auth:     authService,
		Prom:     prom,
		Registry: registry,
		Ping:     ping,
	}

	if redisC != nil {
		deps.Redis = redisC.Raw()
	}

	router := httpx.NewRouter(deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
