package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	httpadapter "github.com/couchcryptid/weather-clock-service/internal/adapter/http"
	"github.com/couchcryptid/weather-clock-service/internal/adapter/httpclient"
	kafkaadapter "github.com/couchcryptid/weather-clock-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-clock-service/internal/adapter/mapbox"
	"github.com/couchcryptid/weather-clock-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/weather-clock-service/internal/adapter/smhi"
	"github.com/couchcryptid/weather-clock-service/internal/config"
	"github.com/couchcryptid/weather-clock-service/internal/domain"
	"github.com/couchcryptid/weather-clock-service/internal/observability"
	"github.com/couchcryptid/weather-clock-service/internal/pipeline"
	"github.com/couchcryptid/weather-clock-service/internal/scheduler"
	"github.com/couchcryptid/weather-clock-service/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	source := newSource(cfg, logger)

	opts := []session.Option{
		session.WithQueueSize(cfg.IngestQueueSize),
		session.WithRefreshPolicy(domain.RefreshPolicy{MinInterval: cfg.RefreshInterval}),
		session.WithUnit(cfg.TemperatureUnit),
	}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, metrics, logger)
		opts = append(opts, session.WithAppliedHook(pipeline.PublishHook(writer, logger)))
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	sess := session.New(domain.NewIngestor(cfg.Calendar, cfg.Intensity), logger, metrics, opts...)
	p := pipeline.New(sess, source, geocoder, pipeline.Config{
		Mode:      cfg.WeatherSource,
		Calendar:  cfg.Calendar,
		Intensity: cfg.Intensity,
	}, logger, metrics)
	sched := scheduler.New(p, cfg.RefreshTick, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, sess, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.ResolveInitialLocation(ctx, cfg.Location, cfg.LocationQuery); err != nil {
		// The clock still works; a location can arrive over PUT /v1/location.
		logger.Error("initial location unavailable", "query", cfg.LocationQuery, "error", err)
	}

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	var wg sync.WaitGroup

	// Start the session consumer.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sess.Run(ctx); err != nil {
			logger.Error("session error", "error", err)
		}
	}()

	// Start the refresh pipeline and its tick.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()
	if err := sched.Start(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		stop()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sched.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// newSource picks the forecast provider. Canned modes never call it.
func newSource(cfg *config.Config, logger *slog.Logger) pipeline.ForecastSource {
	client := httpclient.New(httpclient.Config{
		Name:       cfg.WeatherProvider,
		Timeout:    cfg.FetchTimeout,
		MaxRetries: cfg.FetchRetries,
	}, logger)

	if cfg.WeatherProvider == config.ProviderSMHI {
		return smhi.NewClient(cfg.SMHIBaseURL, client)
	}
	return openmeteo.NewClient(cfg.OpenMeteoBaseURL, client)
}
