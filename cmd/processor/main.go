package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"plate-resolver/internal/config"
	"plate-resolver/internal/db"
	"plate-resolver/internal/logger"
	"plate-resolver/internal/metadata"
	"plate-resolver/internal/metrics"
	"plate-resolver/internal/notify"
	"plate-resolver/internal/ocr/tesseract"
	"plate-resolver/internal/oracle"
	"plate-resolver/internal/pipeline"
	"plate-resolver/internal/repository"
	"plate-resolver/internal/scanner"
	"plate-resolver/internal/schedule"
	"plate-resolver/internal/search"
	"plate-resolver/internal/variation"
	"plate-resolver/internal/video"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("run failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	metrics.Register()
	if cfg.Metrics.Enabled {
		stopMetrics := serveMetrics(cfg.Metrics.Addr, log)
		defer stopMetrics()
	}

	gormDB, err := db.Open(db.Config{
		DSN:          cfg.DB.DSN,
		AutoMigrate:  cfg.DB.AutoMigrate,
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
	}, log)
	if err != nil {
		return err
	}
	cars := repository.NewCarRepository(gormDB)

	confusables := variation.Default()
	if len(cfg.Search.Confusables) > 0 {
		rules, err := variation.ParseRules(cfg.Search.Confusables)
		if err != nil {
			return err
		}
		if confusables, err = variation.NewConfusableMap(rules...); err != nil {
			return err
		}
	}
	generator, err := variation.NewGenerator(confusables, variation.Mode(cfg.Search.VariationMode), cfg.Search.Ceiling)
	if err != nil {
		return err
	}

	client := oracle.NewClient(oracle.Config{
		Endpoint:    cfg.Oracle.Endpoint,
		MaxAttempts: cfg.Oracle.MaxAttempts,
		RetryDelay:  cfg.Oracle.RetryDelay,
		Timeout:     cfg.Oracle.Timeout,
		Cookie:      cfg.Oracle.Cookie,
		UserAgent:   cfg.Oracle.UserAgent,
	}, log.With().Str("component", "oracle").Logger())

	controller := search.NewController(client, generator, schedule.TimerSleeper{}, search.Config{
		Jurisdiction:  cfg.Oracle.Jurisdiction,
		MaxVariations: cfg.Search.MaxVariations,
		Pacing:        cfg.Search.Pacing,
	}, log.With().Str("component", "search").Logger())

	source := video.NewFFmpeg(cfg.OCR.FFmpeg, cfg.OCR.FFprobe, log)
	sc := scanner.New(source, cfg.Pipeline.FrameStride, log)
	extractor := metadata.NewFFprobe(cfg.OCR.FFprobe)

	var publisher notify.Publisher = notify.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		mq := notify.NewMQTTPublisher(notify.MQTTConfig{
			Broker:         cfg.MQTT.Broker,
			ClientID:       cfg.MQTT.ClientID,
			Topic:          cfg.MQTT.Topic,
			QoS:            byte(cfg.MQTT.QoS),
			ConnectTimeout: cfg.MQTT.ConnectTimeout,
			PublishTimeout: cfg.MQTT.PublishTimeout,
		}, log)
		if err := mq.Connect(ctx); err != nil {
			log.Warn().Err(err).Msg("mqtt unavailable, results will not be published")
		} else {
			publisher = mq
		}
	}
	defer publisher.Close()

	runID := uuid.New()
	runLog := log.With().Str("run_id", runID.String()).Logger()

	proc := pipeline.NewProcessor(extractor, sc, controller, cars, publisher, pipeline.Config{
		RunID:           runID,
		Jurisdiction:    cfg.Oracle.Jurisdiction,
		ArchiveDir:      cfg.Pipeline.ArchiveDir,
		ArchiveFailures: cfg.Pipeline.ArchiveFailures,
	}, runLog)

	engines := tesseract.Factory(tesseract.Config{
		Languages: cfg.OCR.Languages,
		Whitelist: cfg.OCR.Whitelist,
		MaxWidth:  cfg.OCR.MaxWidth,
	})
	pool := pipeline.NewPool(cfg.Pipeline.Workers, engines, proc, runLog)

	files, err := pipeline.ListPending(cfg.Pipeline.InputDir, cfg.Pipeline.Extensions)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		runLog.Info().Str("dir", cfg.Pipeline.InputDir).Msg("no pending videos")
		return nil
	}
	runLog.Info().Int("files", len(files)).Int("workers", cfg.Pipeline.Workers).Msg("run started")

	started := time.Now()
	results, err := pool.Run(ctx, files)
	pipeline.NewReport(runID, results, time.Since(started)).Log(runLog)
	return err
}

func serveMetrics(addr string, log zerolog.Logger) func() {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
