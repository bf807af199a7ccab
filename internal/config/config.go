package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnv                = "development"
	defaultHTTPHost           = "0.0.0.0"
	defaultHTTPPort           = 8080
	defaultRedisAddr          = "localhost:6379"
	defaultRedisDB            = 0
	defaultSourceTimeout      = 15 * time.Second
	defaultSinkTimeout        = 30 * time.Second
	defaultTransformBatchSize = 100
	defaultIngestInterval     = 10 * time.Second
	defaultTriggerJitter      = time.Second
	defaultVWAPWindow         = 5 * time.Second
	defaultSnapshotTTL        = 5 * time.Second
	defaultMarketHashTTL      = 10 * time.Second
	defaultUnmappedTTL        = time.Hour
	defaultCandleIntervals    = "1m,5m,15m,1h,4h,1d"
	defaultSourcesFile        = "cmd/server/sources.json"
)

// Config keeps the runtime configuration for the service.
type Config struct {
	Env      string
	HTTP     HTTPConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Pipeline PipelineConfig
	Cache    CacheConfig
}

// HTTPConfig holds HTTP server related settings.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr renders the listen address in host:port form.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// PostgresConfig stores database connection parameters.
type PostgresConfig struct {
	DSN string
}

// RedisConfig stores Redis connection parameters.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RabbitMQConfig stores the broker connection and exchange names. An empty
// URL disables publishing.
type RabbitMQConfig struct {
	URL            string
	CyclesExchange string
	VWAPExchange   string
}

// PipelineConfig controls ingestion cadence and per-stage limits.
type PipelineConfig struct {
	SourcesFile        string
	SourceTimeout      time.Duration
	SinkTimeout        time.Duration
	TransformBatchSize int
	IngestInterval     time.Duration
	TriggerJitter      time.Duration
	VWAPWindow         time.Duration
	CandleIntervals    []CandleInterval
}

// CandleInterval names one candle resolution and its bucket width.
type CandleInterval struct {
	Label string
	Width time.Duration
}

// CacheConfig stores cache behavior.
type CacheConfig struct {
	SnapshotTTL   time.Duration
	MarketHashTTL time.Duration
	UnmappedTTL   time.Duration
}

// Load builds Config from environment variables.
func Load() (*Config, error) {
	host := getString("HTTP_HOST", defaultHTTPHost)
	port, err := getInt("HTTP_PORT", defaultHTTPPort)
	if err != nil {
		return nil, fmt.Errorf("parse HTTP_PORT: %w", err)
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		return nil, errors.New("DATABASE_DSN is required")
	}

	redisDB, err := getInt("REDIS_DB", defaultRedisDB)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_DB: %w", err)
	}

	sourceTimeout, err := getSeconds("SOURCE_TIMEOUT_SECONDS", defaultSourceTimeout)
	if err != nil {
		return nil, err
	}
	sinkTimeout, err := getSeconds("SINK_TIMEOUT_SECONDS", defaultSinkTimeout)
	if err != nil {
		return nil, err
	}
	batchSize, err := getInt("TRANSFORM_BATCH_SIZE", defaultTransformBatchSize)
	if err != nil {
		return nil, fmt.Errorf("parse TRANSFORM_BATCH_SIZE: %w", err)
	}
	if batchSize <= 0 {
		return nil, errors.New("TRANSFORM_BATCH_SIZE must be positive")
	}
	ingestInterval, err := getSeconds("INGEST_INTERVAL_SECONDS", defaultIngestInterval)
	if err != nil {
		return nil, err
	}
	jitter, err := getSeconds("TRIGGER_JITTER_SECONDS", defaultTriggerJitter)
	if err != nil {
		return nil, err
	}
	vwapWindow, err := getSeconds("VWAP_WINDOW_SECONDS", defaultVWAPWindow)
	if err != nil {
		return nil, err
	}
	intervals, err := ParseCandleIntervals(getString("CANDLE_INTERVALS", defaultCandleIntervals))
	if err != nil {
		return nil, err
	}

	snapshotTTL, err := getSeconds("CACHE_SNAPSHOT_TTL_SECONDS", defaultSnapshotTTL)
	if err != nil {
		return nil, err
	}
	marketTTL, err := getSeconds("CACHE_MARKET_TTL_SECONDS", defaultMarketHashTTL)
	if err != nil {
		return nil, err
	}
	unmappedTTL, err := getSeconds("UNMAPPED_TTL_SECONDS", defaultUnmappedTTL)
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:  getString("APP_ENV", defaultEnv),
		HTTP: HTTPConfig{Host: host, Port: port},
		Postgres: PostgresConfig{
			DSN: dsn,
		},
		Redis: RedisConfig{
			Addr:     getString("REDIS_ADDR", defaultRedisAddr),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		RabbitMQ: RabbitMQConfig{
			URL:            os.Getenv("RABBITMQ_URL"),
			CyclesExchange: getString("RABBITMQ_CYCLES_EXCHANGE", "pricing.cycles"),
			VWAPExchange:   getString("RABBITMQ_VWAP_EXCHANGE", "pricing.vwap"),
		},
		Pipeline: PipelineConfig{
			SourcesFile:        getString("SOURCES_FILE", defaultSourcesFile),
			SourceTimeout:      sourceTimeout,
			SinkTimeout:        sinkTimeout,
			TransformBatchSize: batchSize,
			IngestInterval:     ingestInterval,
			TriggerJitter:      jitter,
			VWAPWindow:         vwapWindow,
			CandleIntervals:    intervals,
		},
		Cache: CacheConfig{
			SnapshotTTL:   snapshotTTL,
			MarketHashTTL: marketTTL,
			UnmappedTTL:   unmappedTTL,
		},
	}, nil
}

// ParseCandleIntervals parses a comma-separated interval list such as
// "1m,5m,15m,1h,4h,1d" into labeled bucket widths.
func ParseCandleIntervals(raw string) ([]CandleInterval, error) {
	parts := strings.Split(raw, ",")
	intervals := make([]CandleInterval, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		label := strings.TrimSpace(part)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			return nil, fmt.Errorf("duplicate candle interval %q", label)
		}
		width, err := parseIntervalLabel(label)
		if err != nil {
			return nil, err
		}
		seen[label] = struct{}{}
		intervals = append(intervals, CandleInterval{Label: label, Width: width})
	}
	if len(intervals) == 0 {
		return nil, errors.New("CANDLE_INTERVALS must name at least one interval")
	}
	return intervals, nil
}

func parseIntervalLabel(label string) (time.Duration, error) {
	if len(label) < 2 {
		return 0, fmt.Errorf("invalid candle interval %q", label)
	}
	value, err := strconv.Atoi(label[:len(label)-1])
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid candle interval %q", label)
	}
	switch label[len(label)-1] {
	case 'm':
		return time.Duration(value) * time.Minute, nil
	case 'h':
		return time.Duration(value) * time.Hour, nil
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid candle interval unit in %q", label)
	}
}

func getString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to int: %w", key, value, err)
	}
	return parsed, nil
}

func getSeconds(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to seconds: %w", key, value, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return time.Duration(parsed) * time.Second, nil
}
