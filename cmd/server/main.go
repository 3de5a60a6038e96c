// Command server runs the support integration bridge API.
//
// It loads configuration from the environment (optionally via .env), opens
// the SQLite database, configures logging and OpenTelemetry, registers all
// HTTP routes, and serves until SIGINT/SIGTERM, then shuts down gracefully.
//
// @title           Support Integration Bridge API
// @version         1.0
// @description     Webhook ingestion, intent-aware context fetch, and prompt enhancement for customer-support AI.
// @BasePath        /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/helplane/go-support-backend/docs"
	"github.com/helplane/go-support-backend/internal/config"
	httpapi "github.com/helplane/go-support-backend/internal/http"
	"github.com/helplane/go-support-backend/internal/observability"
	"github.com/helplane/go-support-backend/internal/repo"
	"github.com/helplane/go-support-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Local development convenience; missing .env is not an error. Container
	// deployments set SKIP_DOTENV to avoid picking up stray files.
	if !sysutil.IsTruthy(os.Getenv("SKIP_DOTENV")) {
		_ = godotenv.Load()
	}

	cfg := config.MustLoad()

	// Logging
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	// APP_VERSION (set by the deploy pipeline) wins over the ldflags stamp.
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	log.Info().Str("version", ver).Str("port", cfg.Port).Msg("starting support bridge")

	ctx := context.Background()

	// Tracing
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown error")
		}
	}()

	// Database
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("db open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("db migration failed")
	}

	// HTTP
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for termination signal, then drain in-flight requests.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("stopped")
}
