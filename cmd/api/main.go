package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"plate-resolver/internal/config"
	"plate-resolver/internal/db"
	httpapi "plate-resolver/internal/http"
	"plate-resolver/internal/logger"
	"plate-resolver/internal/metrics"
	"plate-resolver/internal/repository"
	"plate-resolver/internal/service"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New("info", false)
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if cfg.Auth.JWTSecret == "" {
		log.Warn().Msg("auth.jwt_secret is empty, write routes will reject every request")
	}
	if cfg.Metrics.Enabled {
		metrics.Register()
	}

	gormDB, err := db.Open(db.Config{
		DSN:          cfg.DB.DSN,
		AutoMigrate:  cfg.DB.AutoMigrate,
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	carService := service.NewCarService(repository.NewCarRepository(gormDB), log)
	handler := httpapi.NewHandler(carService, log)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(httpapi.RouterConfig{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		JWTSecret:      cfg.Auth.JWTSecret,
		VideoDir:       cfg.Pipeline.ArchiveDir,
		Metrics:        cfg.Metrics.Enabled,
	}, handler, log)

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
