// Package config loads MoSAPI client configuration from the process
// environment, optionally pre-populated from a .env file with
// joho/godotenv.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the full set of MoSAPI client settings.
type Config struct {
	MosapiURL          string
	EntityType         string
	Tlds               []string
	Services           []string
	TldThreadCount     int
	MetricsThreadCount int
	AbuseEmailAddress  string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	CircuitBreakerEnabled bool
}

// Load reads a .env file if present (ignored if missing) and builds a
// Config from the environment, resolving the documented key synonyms:
// mosapiUrl/mosapiServiceUrl and entityType/mosapiEntityType each
// resolve to the same field, first non-empty wins.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		MosapiURL:          firstNonEmpty("mosapiUrl", "mosapiServiceUrl"),
		EntityType:         firstNonEmpty("entityType", "mosapiEntityType"),
		Tlds:               splitCSV(os.Getenv("mosapiTlds")),
		Services:           splitCSV(os.Getenv("mosapiServices")),
		TldThreadCount:     capInt(getEnvInt("mosapiTldThreadCnt", 4), 4),
		MetricsThreadCount: capInt(getEnvInt("mosapiMetricsThreadCnt", 4), 4),
		AbuseEmailAddress:  os.Getenv("mosapiAbuseEmailAddress"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		CircuitBreakerEnabled: getEnvBool("MOSAPI_CIRCUIT_BREAKER_ENABLED", true),
	}
}

func firstNonEmpty(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
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

func capInt(v, max int) int {
	if v > max {
		return max
	}
	if v <= 0 {
		return max
	}
	return v
}
