package app

import (
	"os"
	"strconv"
)

// Config configures an App: environment variables with hard-coded
// defaults, no config-file library.
type Config struct {
	Host string
	Port int

	// BroadcastAllowedHosts is the broadcast ingress allow-list. Empty
	// defaults to loopback-only (see ingress.NewAllowList).
	BroadcastAllowedHosts []string

	LogLevel  string
	LogPretty bool

	// RedisURL, if set, starts a Redis Pub/Sub broadcast relay.
	RedisURL     string
	RedisChannel string

	// NATSURL, if set, starts a NATS broadcast relay.
	NATSURL     string
	NATSSubject string
}

// DefaultConfig returns the configuration an App falls back to absent any
// environment variables.
func DefaultConfig() Config {
	return Config{
		Host:      "0.0.0.0",
		Port:      8080,
		LogLevel:  "info",
		LogPretty: false,
	}
}

// ConfigFromEnv builds a Config from the process environment.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Host = getEnv("SOCKETAPI_HOST", cfg.Host)
	cfg.Port = getEnvInt("SOCKETAPI_PORT", cfg.Port)
	cfg.LogLevel = getEnv("SOCKETAPI_LOG_LEVEL", cfg.LogLevel)
	cfg.LogPretty = getEnvBool("SOCKETAPI_LOG_PRETTY", cfg.LogPretty)
	cfg.RedisURL = getEnv("SOCKETAPI_REDIS_URL", "")
	cfg.RedisChannel = getEnv("SOCKETAPI_REDIS_CHANNEL", "")
	cfg.NATSURL = getEnv("SOCKETAPI_NATS_URL", "")
	cfg.NATSSubject = getEnv("SOCKETAPI_NATS_SUBJECT", "")
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
