package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers understood by the store package.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds environment-driven configuration.
type Config struct {
	APIBasePath string
	Port        string
	LogLevel    string

	JWTSecret    string
	JWTTTL       time.Duration
	AuthRequired bool

	StoreDriver   string
	StoreTimeout  time.Duration
	MongoURI      string
	MongoDatabase string
	PostgresURL   string
	UploadsDir    string
}

// Addr is the listen address derived from Port.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Load reads configuration from environment variables. Values that cannot be
// parsed or that are required but missing are reported together.
func Load() (Config, error) {
	var errs []error

	cfg := Config{
		APIBasePath:   strings.TrimRight(getEnv("API_URL", "/api/v1"), "/"),
		Port:          getEnv("PORT", "3000"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
		MongoURI:      os.Getenv("CONNECTION_STRING"),
		MongoDatabase: getEnv("DB_NAME", "ecommerce"),
		PostgresURL:   os.Getenv("DATABASE_URL"),
		UploadsDir:    getEnv("UPLOADS_DIR", "public/uploads"),
	}

	var err error
	if cfg.JWTTTL, err = getEnvDuration("JWT_TTL", 24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.StoreTimeout, err = getEnvDuration("STORE_TIMEOUT", 5*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.AuthRequired, err = getEnvBool("AUTH_REQUIRED", false); err != nil {
		errs = append(errs, err)
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	if cfg.APIBasePath != "" && !strings.HasPrefix(cfg.APIBasePath, "/") {
		errs = append(errs, fmt.Errorf("API_URL must start with '/', got %q", cfg.APIBasePath))
	}

	switch cfg.StoreDriver {
	case DriverMongo:
		if cfg.MongoURI == "" {
			errs = append(errs, errors.New("CONNECTION_STRING is not set"))
		}
	case DriverPostgres:
		if cfg.PostgresURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is not set"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver))
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}
