// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// ErrMissingAccessToken is returned by Load when the gateway access token is
// not configured. The server must not start without it.
var ErrMissingAccessToken = errors.New("config: SDS_GATEWAY_ACCESS_TOKEN is not set or is empty")

// Config holds all runtime configuration for the service.
type Config struct {
	Port   string
	AppEnv string

	// Upstream content-addressed storage gateway (receives the actual bytes).
	GatewayBaseURL     string
	GatewayPathPrefix  string
	GatewayAccessToken string // secret; never logged

	// Public gateways used to build shareable links. The fallback is meant for
	// CIDs longer than a DNS label; upstream has not decided on a distinct
	// fallback host yet, so both default to the same one.
	PublicGatewayBase   string
	FallbackGatewayBase string

	// Upload relay limits and scratch space.
	MaxUploadBytes int64
	ScratchDir     string
}

// Load reads configuration from a .env file (if present) and environment
// variables. It fails when the gateway access token is absent; the server
// must not serve traffic without it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading from environment")
	}

	cfg := &Config{
		Port:   getEnv("PORT", "8080"),
		AppEnv: getEnv("APP_ENV", "development"),

		GatewayBaseURL:     getEnv("SDS_GATEWAY_BASE_URL", "https://sds-gateway-uswest.thestratos.org"),
		GatewayPathPrefix:  getEnv("SDS_GATEWAY_PATH_PREFIX", "/spfs"),
		GatewayAccessToken: os.Getenv("SDS_GATEWAY_ACCESS_TOKEN"),

		PublicGatewayBase:   getEnv("PUBLIC_GATEWAY_BASE", "https://spfs-gateway.thestratos.net"),
		FallbackGatewayBase: getEnv("FALLBACK_GATEWAY_BASE", "https://spfs-gateway.thestratos.net"),

		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 100<<20),
		ScratchDir:     getEnv("SCRATCH_DIR", "temp-uploads"),
	}

	if cfg.GatewayAccessToken == "" {
		return nil, ErrMissingAccessToken
	}

	return cfg, nil
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("config: invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}
