package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"tourism_occupancy/internal/adapters/directory"
	server "tourism_occupancy/internal/adapters/http_server"
	"tourism_occupancy/internal/adapters/observability"
	redisad "tourism_occupancy/internal/adapters/redis"
	"tourism_occupancy/internal/app"
	"tourism_occupancy/internal/domain"
	"tourism_occupancy/internal/shared"
	"tourism_occupancy/internal/storage/sqlstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, dialect, err := sqlstore.Connect(ctx, cfg.DBDriver, cfg.MySQLDSN, cfg.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("database init failed")
	}
	defer db.Close()
	log.Info().Str("driver", dialect.Driver).Msg("database connection ok")

	// deps
	repo := sqlstore.New(db, dialect)
	var dir domain.EstablishmentDirectory = sqlstore.NewDirectory(db, dialect)
	if cfg.DirectoryURL != "" {
		dc, err := directory.New(cfg.DirectoryURL, cfg.DirectoryKey, cfg.DirectoryRPS, cfg.DirectoryMaxRetries)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize directory client")
		}
		dir = dc
		log.Info().Str("base", cfg.DirectoryURL).Msg("using remote establishment directory")
	}

	auth := server.AuthConfig{Secret: []byte(cfg.JWTSecret), SuperAdminEmail: cfg.SuperAdminEmail}
	if cfg.RedisAddr != "" {
		rv := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rv.Close()
		if err := rv.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis ping failed, revocation checks will fail closed until it recovers")
		}
		auth.Revocations = rv
	}

	// http
	srv := server.New(cfg.RequestTimeout)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Q:    app.NewQuestionnaireService(repo, dir),
		S:    app.NewStatisticsService(repo, dir, cfg.Stats.Options(), cfg.Stats.ScanLimit),
		Auth: auth,
	})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("API stopped")
}
