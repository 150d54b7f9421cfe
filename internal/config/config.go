package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort            = "8080"
	defaultJWTTTL          = "24h"
	defaultJWTSecret       = "change-me-jwt-secret"
	defaultNamespace       = "default"
	defaultImageAPI        = "image_registry"
	defaultLikeAPI         = "image_registry"
	defaultLedgerTimeout   = "30s"
	defaultThreshold       = "10"
	defaultOrgName         = "pixelproof"
	defaultAccountPassword = "account-password"
	defaultLogLevel        = "info"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	LogLevel    string

	JWTSecret string
	JWTTTL    time.Duration

	FireFlyURL       string
	FireFlyNamespace string
	ImageAPI         string
	LikeAPI          string
	IPFSGateway      string
	LedgerTimeout    time.Duration

	NodeRPCURL      string
	AccountPassword string

	SimilarityThreshold int
	OrgName             string
}

func Load() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.Port = strings.TrimSpace(getEnv("PORT", defaultPort))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel)))

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	var err error
	cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL)
	if err != nil {
		return nil, err
	}

	cfg.FireFlyURL = strings.TrimRight(strings.TrimSpace(os.Getenv("FIREFLY_URL")), "/")
	cfg.FireFlyNamespace = strings.TrimSpace(getEnv("FIREFLY_NAMESPACE", defaultNamespace))
	cfg.ImageAPI = strings.TrimSpace(getEnv("FIREFLY_IMAGE_API", defaultImageAPI))
	cfg.LikeAPI = strings.TrimSpace(getEnv("FIREFLY_LIKE_API", defaultLikeAPI))
	cfg.IPFSGateway = strings.TrimRight(strings.TrimSpace(os.Getenv("IPFS_GATEWAY")), "/")

	cfg.LedgerTimeout, err = parseDurationEnv("LEDGER_TIMEOUT", defaultLedgerTimeout)
	if err != nil {
		return nil, err
	}

	cfg.NodeRPCURL = strings.TrimSpace(os.Getenv("NODE_RPC_URL"))
	cfg.AccountPassword = getEnv("ACCOUNT_PASSWORD", defaultAccountPassword)

	cfg.SimilarityThreshold, err = parseIntEnv("SIMILARITY_THRESHOLD", defaultThreshold)
	if err != nil {
		return nil, err
	}

	cfg.OrgName = strings.TrimSpace(getEnv("ORG_NAME", defaultOrgName))

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.FireFlyURL == "" {
		return fmt.Errorf("FIREFLY_URL must be set")
	}
	if cfg.NodeRPCURL == "" {
		return fmt.Errorf("NODE_RPC_URL must be set")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.LedgerTimeout <= 0 {
		return fmt.Errorf("LEDGER_TIMEOUT must be > 0")
	}
	if cfg.SimilarityThreshold < 0 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be >= 0")
	}
	if isProdLike(cfg.AppEnv) && isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
		return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
	}
	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
