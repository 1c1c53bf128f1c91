package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	commoncfg "sensors-api/common/config"
	"sensors-api/common/database"
	"sensors-api/common/logger"
	mqttcommon "sensors-api/common/mqtt"
	rediscommon "sensors-api/common/redis"
	"sensors-api/internal/config"
	"sensors-api/internal/events"
	httpapi "sensors-api/internal/http"
	"sensors-api/internal/metrics"
	"sensors-api/internal/repository"
	"sensors-api/internal/service"
	"sensors-api/internal/telemetry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "sensors-api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg, log)
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run serves until a signal arrives or the server fails. Every resource it
// opens is released before it returns.
func run(cfg *config.Config, log *zap.Logger) error {
	m := metrics.New(prometheus.DefaultRegisterer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, db, err := newRepository(ctx, cfg, log, database.NewPostgresDB)
	if err != nil {
		return err
	}

	fetcher := telemetry.NewClient(telemetry.Options{
		BaseURL:    cfg.Telemetry.BaseURL,
		DataPath:   cfg.Telemetry.DataPath,
		Timeout:    cfg.Telemetry.Timeout,
		RetryCount: cfg.Telemetry.RetryCount,
		Metrics:    m,
	}, log)

	publisher, closePublisher := newPublisher(ctx, cfg, log)
	defer closePublisher()

	svc := service.NewSensorService(repo, fetcher, log, service.Options{
		ListConcurrency: cfg.ListConcurrency,
		DropReadings:    !cfg.Store.Readings,
		Publisher:       publisher,
		Metrics:         m,
	})

	router := httpapi.NewRouter(log)
	router.RegisterSensorRoutes(httpapi.NewSensorsHandler(svc, cfg.HTTP.MaxBodyBytes, log))
	router.RegisterHealthRoutes()
	router.RegisterMetricsRoute(promhttp.Handler())

	srv := service.NewServer(cfg.HTTP.Addr, httpapi.WithRequestLogging(router, log, m), log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigCh:
		log.Info("Received signal", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		if serveErr != nil {
			log.Error("HTTP server failed", zap.Error(serveErr))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop HTTP server", zap.Error(err))
	}
	if err := database.Close(db); err != nil {
		log.Warn("Failed to close database", zap.Error(err))
	}
	log.Info("sensors-api stopped")
	return serveErr
}

type openDBFunc func(ctx context.Context, cfg *commoncfg.DatabaseConfig) (*sql.DB, error)

// newRepository opens the Postgres store, or the memory store when the DB is
// disabled or unreachable. A pool that opened but cannot take the schema is
// closed and the error returned.
func newRepository(ctx context.Context, cfg *config.Config, log *zap.Logger, openDB openDBFunc) (repository.SensorsRepository, *sql.DB, error) {
	if !cfg.DBEnabled {
		return repository.NewMemorySensorsRepo(cfg.Store.Readings), nil, nil
	}

	db, err := openDB(ctx, &cfg.Database)
	if err != nil {
		log.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		return repository.NewMemorySensorsRepo(cfg.Store.Readings), nil, nil
	}

	pg := repository.NewPostgresSensorsRepo(db, log, cfg.Store.Readings)
	pg.SetTimeout(cfg.Store.Timeout)
	if err := pg.EnsureSchema(ctx); err != nil {
		log.Error("Failed to prepare sensors table", zap.Error(err))
		_ = database.Close(db)
		return nil, nil, err
	}
	log.Info("DB enabled for sensors-api", zap.Bool("store_readings", cfg.Store.Readings))
	return pg, db, nil
}

// newPublisher connects the configured event sink. A sink that cannot be
// reached is replaced by a no-op publisher.
func newPublisher(ctx context.Context, cfg *config.Config, log *zap.Logger) (events.Publisher, func()) {
	switch cfg.Events.Sink {
	case config.SinkRedis:
		client := rediscommon.NewRedisClient(&cfg.Redis)
		if err := rediscommon.Ping(ctx, client); err != nil {
			log.Warn("Redis unavailable, sensor events disabled", zap.Error(err))
			_ = rediscommon.Close(client)
			return events.NopPublisher{}, func() {}
		}
		log.Info("Publishing sensor events to Redis stream", zap.String("stream", cfg.Events.Stream))
		return events.NewStreamPublisher(client, cfg.Events.Stream, cfg.Events.StreamMaxLen), func() {
			_ = rediscommon.Close(client)
		}
	case config.SinkMQTT:
		client, err := mqttcommon.NewClient(&cfg.MQTT)
		if err != nil {
			log.Warn("MQTT unavailable, sensor events disabled", zap.Error(err))
			return events.NopPublisher{}, func() {}
		}
		log.Info("Publishing sensor events to MQTT", zap.String("topic", cfg.Events.Topic))
		return events.NewMQTTPublisher(client, cfg.Events.Topic, cfg.MQTT.QoS), client.Disconnect
	default:
		return events.NopPublisher{}, func() {}
	}
}
