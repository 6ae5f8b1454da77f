package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ServiceName    = "retail-fulfillment"
	ServiceVersion = "0.1.0"
)

const (
	defaultHTTPAddr          = ":8080"
	defaultGRPCAddr          = ":50051"
	defaultMySQLDSN          = "root:root@tcp(localhost:3306)/fulfillment?parseTime=true"
	defaultRedisAddr         = "localhost:6379"
	defaultKafkaTopic        = "fulfillment.events"
	defaultCarrierBaseURL    = "https://apiv2.shiprocket.in/v1/external"
	defaultCarrierTimeout    = 15 * time.Second
	defaultDispatchWorkers   = 4
	defaultDispatchQueueSize = 1000
	defaultDispatchTimeout   = 30 * time.Second
	defaultDispatchLockTTL   = 2 * time.Minute
)

type Config struct {
	HTTPAddr  string
	GRPCAddr  string
	MySQLDSN  string
	RedisAddr string
	LogLevel  string

	KafkaBrokers []string
	KafkaTopic   string

	CarrierBaseURL        string
	CarrierEmail          string
	CarrierPassword       string
	CarrierPickupLocation string
	CarrierTimeout        time.Duration
	CarrierTokenStore     string

	DispatchWorkers   int
	DispatchQueueSize int
	DispatchTimeout   time.Duration
	DispatchLockTTL   time.Duration

	OtelEndpoint string
}

// Load reads the environment. Carrier credentials and pickup location are
// optional here: without them dispatch fails, the server still starts.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:              env("HTTP_ADDR", defaultHTTPAddr),
		GRPCAddr:              env("GRPC_ADDR", defaultGRPCAddr),
		MySQLDSN:              env("MYSQL_DSN", defaultMySQLDSN),
		RedisAddr:             env("REDIS_ADDR", defaultRedisAddr),
		LogLevel:              env("LOG_LEVEL", "info"),
		KafkaBrokers:          splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:            env("KAFKA_TOPIC", defaultKafkaTopic),
		CarrierBaseURL:        env("CARRIER_BASE_URL", defaultCarrierBaseURL),
		CarrierEmail:          os.Getenv("CARRIER_EMAIL"),
		CarrierPassword:       os.Getenv("CARRIER_PASSWORD"),
		CarrierPickupLocation: os.Getenv("CARRIER_PICKUP_LOCATION"),
		CarrierTokenStore:     env("CARRIER_TOKEN_STORE", "redis"),
		OtelEndpoint:          os.Getenv("OTEL_EXPORTER_ENDPOINT"),
	}

	var err error
	if cfg.CarrierTimeout, err = durationEnv("CARRIER_TIMEOUT", defaultCarrierTimeout); err != nil {
		return nil, err
	}
	if cfg.DispatchTimeout, err = durationEnv("DISPATCH_TIMEOUT", defaultDispatchTimeout); err != nil {
		return nil, err
	}
	if cfg.DispatchLockTTL, err = durationEnv("DISPATCH_LOCK_TTL", defaultDispatchLockTTL); err != nil {
		return nil, err
	}
	if cfg.DispatchWorkers, err = intEnv("DISPATCH_WORKERS", defaultDispatchWorkers); err != nil {
		return nil, err
	}
	if cfg.DispatchQueueSize, err = intEnv("DISPATCH_QUEUE_SIZE", defaultDispatchQueueSize); err != nil {
		return nil, err
	}

	if cfg.CarrierTokenStore != "redis" && cfg.CarrierTokenStore != "memory" {
		return nil, fmt.Errorf("CARRIER_TOKEN_STORE must be redis or memory, got %q", cfg.CarrierTokenStore)
	}

	return cfg, nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
