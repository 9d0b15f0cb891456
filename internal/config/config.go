package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAddr            = ":8080"
	defaultSystemSchema    = "public"
	defaultAccessTTLMs     = 15 * 60 * 1000
	defaultRefreshTTLMs    = 14 * 24 * 60 * 60 * 1000
	defaultPublicPaths     = "/login,/refresh-token,/logout,/healthz,/readyz,/metrics"
	minSigningKeyBytes     = 32
	defaultMigrationsDir   = "db/migrations/system"
	defaultTenantMigDir    = "db/migrations/tenant"
	defaultSeedsDir        = "db/seeds"
)

// Config holds the environment surface of the service.
type Config struct {
	Addr string
	DSN  string

	SigningKey      string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// PublicPaths lists routes that skip authentication. Entries ending in
	// "*" are prefix globs, everything else is an exact match.
	PublicPaths []string

	SystemSchema  string
	DefaultTenant string

	SystemMigrationsDir string
	TenantMigrationsDir string
	SeedsDir            string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:                envOr("LEXHUB_ADDR", defaultAddr),
		DSN:                 os.Getenv("LEXHUB_PG_DSN"),
		SigningKey:          os.Getenv("LEXHUB_SIGNING_KEY"),
		SystemSchema:        envOr("LEXHUB_SYSTEM_SCHEMA", defaultSystemSchema),
		DefaultTenant:       os.Getenv("LEXHUB_DEFAULT_TENANT"),
		SystemMigrationsDir: envOr("LEXHUB_SYSTEM_MIGRATIONS", defaultMigrationsDir),
		TenantMigrationsDir: envOr("LEXHUB_TENANT_MIGRATIONS", defaultTenantMigDir),
		SeedsDir:            envOr("LEXHUB_SEEDS", defaultSeedsDir),
	}

	accessMs, err := envMillis("LEXHUB_ACCESS_TOKEN_TTL_MS", defaultAccessTTLMs)
	if err != nil {
		return Config{}, err
	}
	refreshMs, err := envMillis("LEXHUB_REFRESH_TOKEN_TTL_MS", defaultRefreshTTLMs)
	if err != nil {
		return Config{}, err
	}
	cfg.AccessTokenTTL = time.Duration(accessMs) * time.Millisecond
	cfg.RefreshTokenTTL = time.Duration(refreshMs) * time.Millisecond

	for _, p := range strings.Split(envOr("LEXHUB_PUBLIC_PATHS", defaultPublicPaths), ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			cfg.PublicPaths = append(cfg.PublicPaths, p)
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.SigningKey) == "" {
		return errors.New("config: LEXHUB_SIGNING_KEY is required")
	}
	if len(c.SigningKey) < minSigningKeyBytes {
		return fmt.Errorf("config: signing key must be at least %d bytes", minSigningKeyBytes)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envMillis(key string, def int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive integer of milliseconds", key)
	}
	return v, nil
}
