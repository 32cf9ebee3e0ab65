package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr         string
	Environment      string
	ProjectID        string
	AuthMode         string
	JWTSecret        string
	JWTIssuer        string
	ServiceAuthToken string
	RedisAddr        string
	RedisPassword    string
	EventDedupTTL    time.Duration
}

func Load() Config {
	return Config{
		HTTPAddr:         getenv("HTTP_ADDR", ":8084"),
		Environment:      getenv("ENVIRONMENT", "development"),
		ProjectID:        getenv("GOOGLE_CLOUD_PROJECT", "bilearnhub-dev"),
		AuthMode:         getenv("AUTH_MODE", "local"),
		JWTSecret:        getenv("JWT_SECRET", "dev-secret"),
		JWTIssuer:        getenv("JWT_ISSUER", "bilearnhub-auth"),
		ServiceAuthToken: getenv("SERVICE_AUTH_TOKEN", ""),
		RedisAddr:        getenv("REDIS_ADDR", ""),
		RedisPassword:    getenv("REDIS_PASSWORD", ""),
		EventDedupTTL:    getenvDuration("EVENT_DEDUP_TTL", 24*time.Hour),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
