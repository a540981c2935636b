package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything main needs to wire the service.
type Config struct {
	Addr string

	// PostgresURL selects the durable store stack; when empty the service
	// runs on in-memory stores (development and tests).
	PostgresURL string

	Redis RedisConfig
	Kafka KafkaConfig

	// RootPrincipal is the bootstrap authority allowed to authorize the
	// first manufacturer. Required in production; defaults for development.
	RootPrincipal string

	// LockTimeout bounds how long a transfer may wait for its product lock.
	LockTimeout time.Duration

	// VerifyCacheTTL bounds staleness of cached verification results.
	VerifyCacheTTL time.Duration
}

// RedisConfig holds connection settings for the verification cache.
// An empty URL disables the cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds settings for the custody event stream.
// Empty brokers disable publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("PROVCHAIN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	root := os.Getenv("PROVCHAIN_ROOT_PRINCIPAL")
	if root == "" {
		// Development default - set a real root principal in production.
		root = "0xROOT"
	}

	topic := os.Getenv("PROVCHAIN_KAFKA_TOPIC")
	if topic == "" {
		topic = "provchain.custody"
	}

	var brokers []string
	if v := os.Getenv("PROVCHAIN_KAFKA_BROKERS"); v != "" {
		brokers = strings.Split(v, ",")
	}

	return Config{
		Addr:        addr,
		PostgresURL: os.Getenv("PROVCHAIN_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("PROVCHAIN_REDIS_URL"),
			PoolSize:     envInt("PROVCHAIN_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("PROVCHAIN_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
		},
		RootPrincipal:  root,
		LockTimeout:    envDuration("PROVCHAIN_LOCK_TIMEOUT", 5*time.Second),
		VerifyCacheTTL: envDuration("PROVCHAIN_VERIFY_CACHE_TTL", 5*time.Minute),
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
