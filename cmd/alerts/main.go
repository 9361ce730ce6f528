package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/storm-alerts-service/internal/adapter/cache"
	httpadapter "github.com/couchcryptid/storm-alerts-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-alerts-service/internal/adapter/kafka"
	"github.com/couchcryptid/storm-alerts-service/internal/adapter/openweathermap"
	"github.com/couchcryptid/storm-alerts-service/internal/adapter/ratelimit"
	"github.com/couchcryptid/storm-alerts-service/internal/adapter/weatherapi"
	"github.com/couchcryptid/storm-alerts-service/internal/config"
	"github.com/couchcryptid/storm-alerts-service/internal/domain"
	"github.com/couchcryptid/storm-alerts-service/internal/observability"
	"github.com/couchcryptid/storm-alerts-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Providers stay nil without an API key so reports mark them unconfigured.
	var forecast domain.ForecastFetcher
	if cfg.OWMAPIKey != "" {
		client := openweathermap.NewClient(cfg.OWMAPIKey, cfg.OWMBaseURL, cfg.ProviderTimeout, metrics, logger)
		forecast = ratelimit.NewForecastFetcher(client, cfg.ProviderRPS, cfg.ProviderBurst, metrics)
	} else {
		logger.Warn("OWM_API_KEY not set, forecast analysis disabled")
	}

	var official domain.OfficialAlertFetcher
	if cfg.WeatherAPIKey != "" {
		client := weatherapi.NewClient(cfg.WeatherAPIKey, cfg.WeatherAPIBaseURL, cfg.WeatherAPIDays, cfg.ProviderTimeout, metrics, logger)
		official = ratelimit.NewOfficialAlertFetcher(client, cfg.ProviderRPS, cfg.ProviderBurst, metrics)
	} else {
		logger.Warn("WEATHERAPI_KEY not set, official alerts disabled")
	}

	var redisStore *cache.RedisStore
	if cfg.CacheEnabled() {
		var store cache.Store
		if cfg.RedisAddr != "" {
			redisStore, err = cache.NewRedisStore(ctx, cache.RedisConfig{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
				Prefix:   cfg.RedisPrefix,
			})
			if err != nil {
				logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
				os.Exit(1)
			}
			store = redisStore
			logger.Info("provider cache enabled", "backend", "redis", "ttl", cfg.ProviderCacheTTL)
		} else {
			store = cache.NewMemoryStore(cfg.ProviderCacheSize, nil)
			logger.Info("provider cache enabled", "backend", "memory", "ttl", cfg.ProviderCacheTTL, "size", cfg.ProviderCacheSize)
		}

		if forecast != nil {
			forecast = cache.NewForecastFetcher(forecast, store, cfg.ProviderCacheTTL, metrics, logger)
		}
		if official != nil {
			official = cache.NewOfficialAlertFetcher(official, store, cfg.ProviderCacheTTL, metrics, logger)
		}
	}

	service := pipeline.NewAlertService(forecast, official, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, service, service, metrics, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Kafka request/report pipeline (feature-flagged via KAFKA_ENABLED).
	var reader *kafkaadapter.Reader
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		transformer := pipeline.NewTransformer(service, logger, metrics)
		p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize, cfg.KafkaConcurrency)

		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka pipeline disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if redisStore != nil {
		if err := redisStore.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
