package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port                       string
	DatabaseURL                string
	JWTSecret                  string
	AccessTTL                  time.Duration
	RefreshTTL                 time.Duration
	RateLimitPerMinute         int
	RateLimitBurst             int
	ContractRateLimitPerMinute int
	ContractRateLimitBurst     int
}

func Load() Config {
	port := os.Getenv("AUTH_PORT")
	if port == "" {
		port = "8081"
	}

	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		// Dev fallback only. Deployments set AUTH_JWT_SECRET.
		secret = "dev-insecure-secret"
	}

	return Config{
		Port:                       port,
		DatabaseURL:                os.Getenv("DB_DSN"),
		JWTSecret:                  secret,
		AccessTTL:                  time.Duration(readInt("AUTH_ACCESS_TTL_MIN", 30)) * time.Minute,
		RefreshTTL:                 time.Duration(readInt("AUTH_REFRESH_TTL_MIN", 1440)) * time.Minute,
		RateLimitPerMinute:         readInt("AUTH_RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:             readInt("AUTH_RATE_LIMIT_BURST", 30),
		ContractRateLimitPerMinute: readInt("AUTH_CONTRACT_RATE_LIMIT_PER_MIN", 300),
		ContractRateLimitBurst:     readInt("AUTH_CONTRACT_RATE_LIMIT_BURST", 60),
	}
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
