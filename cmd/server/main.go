// server runs the CartShare auth HTTP service.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"cartshare/backend/internal/config"
	"cartshare/backend/internal/db"
	"cartshare/backend/internal/db/migrate"
	"cartshare/backend/internal/identity/handler"
	"cartshare/backend/internal/identity/repository"
	"cartshare/backend/internal/identity/service"
	"cartshare/backend/internal/security"
	"cartshare/backend/internal/server"
	"cartshare/backend/internal/server/middleware"
	"cartshare/backend/internal/telemetry/otel"
)

const serviceName = "cartshare-auth"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("load config")
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", serviceName).Logger()
	if !cfg.Production() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	shutdownTracing, err := otel.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("init tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown tracing")
		}
	}()

	accessSecret, err := security.LoadSecret(cfg.JWTAccessSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("load access token secret")
	}
	refreshSecret, err := security.LoadSecret(cfg.JWTRefreshSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("load refresh token secret")
	}
	codec, err := security.NewTokenCodec(accessSecret, refreshSecret,
		cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		logger.Fatal().Err(err).Msg("token codec")
	}

	if err := migrate.Run(cfg.DatabaseURL, migrate.Up); err != nil {
		logger.Fatal().Err(err).Msg("migrate database")
	}
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer func() { _ = database.Close() }()

	svc := service.NewAuthService(
		repository.NewPostgresRepository(database),
		codec,
		security.NewHasher(cfg.BcryptCost),
		cfg.MaxSessions,
		cfg.RequireVerifiedEmail,
	)

	router := server.NewRouter(server.Deps{
		Log:               logger,
		Auth:              handler.New(logger, svc, cfg.Production(), cfg.CookieDomain, cfg.Production()),
		Gate:              middleware.AuthGate(svc),
		Csrf:              middleware.NewCsrfGuard(cfg.CSRFDisabled, cfg.Production()),
		DB:                database,
		AllowedOrigins:    cfg.CORSOrigins(),
		AuthRatePerMinute: cfg.AuthRatePerMinute,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("starting auth server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown server")
	}
}
