package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// OpenWeatherMap forecast provider. An empty key leaves heuristic
	// detection unconfigured.
	OWMAPIKey  string
	OWMBaseURL string

	// WeatherAPI.com official alert provider.
	WeatherAPIKey     string
	WeatherAPIBaseURL string
	WeatherAPIDays    int

	// Shared provider client settings.
	ProviderTimeout   time.Duration
	ProviderRPS       float64
	ProviderBurst     int
	ProviderCacheTTL  time.Duration // 0 disables caching
	ProviderCacheSize int

	// Redis replaces the in-memory provider cache when RedisAddr is set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// Kafka batch mode.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
	KafkaConcurrency   int // requests answered in parallel per batch
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	providerTimeout, err := parsePositiveDuration("PROVIDER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parseDuration("PROVIDER_CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}

	rps, err := parsePositiveFloat("PROVIDER_RPS", 5)
	if err != nil {
		return nil, err
	}

	burst, err := parsePositiveInt("PROVIDER_BURST", 10)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("PROVIDER_CACHE_SIZE", 500)
	if err != nil {
		return nil, err
	}

	days, err := parsePositiveInt("WEATHERAPI_DAYS", 3)
	if err != nil {
		return nil, err
	}
	if days > 14 {
		return nil, errors.New("invalid WEATHERAPI_DAYS: must be between 1 and 14")
	}

	redisDB, err := parseNonNegativeInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	concurrency, err := parsePositiveInt("KAFKA_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		OWMAPIKey:  strings.TrimSpace(os.Getenv("OWM_API_KEY")),
		OWMBaseURL: strings.TrimRight(sharedcfg.EnvOrDefault("OWM_BASE_URL", "https://api.openweathermap.org/data/2.5"), "/"),

		WeatherAPIKey:     strings.TrimSpace(os.Getenv("WEATHERAPI_KEY")),
		WeatherAPIBaseURL: strings.TrimRight(sharedcfg.EnvOrDefault("WEATHERAPI_BASE_URL", "http://api.weatherapi.com/v1"), "/"),
		WeatherAPIDays:    days,

		ProviderTimeout:   providerTimeout,
		ProviderRPS:       rps,
		ProviderBurst:     burst,
		ProviderCacheTTL:  cacheTTL,
		ProviderCacheSize: cacheSize,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		RedisPrefix:   sharedcfg.EnvOrDefault("REDIS_PREFIX", "storm-alerts"),

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "alert-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "weather-alerts"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "storm-alerts"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		KafkaConcurrency:   concurrency,
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

// CacheEnabled reports whether provider responses should be cached.
func (c *Config) CacheEnabled() bool {
	return c.ProviderCacheTTL > 0
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := parseDuration(key, def)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	n, err := parseNonNegativeInt(key, def)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative integer", key)
	}
	return n, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive number", key)
	}
	return f, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be true or false", key)
	}
	return b, nil
}
