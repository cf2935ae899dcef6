// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	GeocoderURL   string        `yaml:"geocoder_url" validate:"required,url"`
	TransitURL    string        `yaml:"transit_url" validate:"required,url"`
	GTFSRTURL     string        `yaml:"gtfsrt_url" validate:"omitempty,url"`
	UserAgent     string        `yaml:"user_agent" validate:"required"`
	Language      string        `yaml:"language" validate:"required"`
	HTTPTimeout   time.Duration `yaml:"-" validate:"gt=0"`
	RetryDelay    time.Duration `yaml:"-" validate:"gte=0"`
	CacheTTL      time.Duration `yaml:"-" validate:"gt=0"`
	DefaultRadius int           `yaml:"default_radius" validate:"gt=0"`
}

// Load builds the configuration in three layers: built-in defaults, an
// optional YAML file (OTOBUS_CONFIG), then OTOBUS_* environment variables.
// A .env file in the working directory is honored if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		GeocoderURL:   "https://nominatim.openstreetmap.org",
		TransitURL:    "https://bus.gov.il/WebApi/api/passengerinfo",
		UserAgent:     "otobus/1.0",
		Language:      "he",
		HTTPTimeout:   getDurationEnv("OTOBUS_HTTP_TIMEOUT_SECONDS", 10) * time.Second,
		RetryDelay:    getDurationEnv("OTOBUS_RETRY_DELAY_MS", 500) * time.Millisecond,
		CacheTTL:      getDurationEnv("OTOBUS_CACHE_TTL_SECONDS", 60) * time.Second,
		DefaultRadius: 300,
	}

	if path := os.Getenv("OTOBUS_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.GeocoderURL = getEnv("OTOBUS_GEOCODER_URL", cfg.GeocoderURL)
	cfg.TransitURL = getEnv("OTOBUS_TRANSIT_URL", cfg.TransitURL)
	cfg.GTFSRTURL = getEnv("OTOBUS_GTFSRT_URL", cfg.GTFSRTURL)
	cfg.UserAgent = getEnv("OTOBUS_USER_AGENT", cfg.UserAgent)
	cfg.Language = getEnv("OTOBUS_LANG", cfg.Language)
	if radius := os.Getenv("OTOBUS_RADIUS"); radius != "" {
		n, err := strconv.Atoi(radius)
		if err != nil {
			return nil, fmt.Errorf("parsing OTOBUS_RADIUS: %w", err)
		}
		cfg.DefaultRadius = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var file struct {
		Config             `yaml:",inline"`
		HTTPTimeoutSeconds int `yaml:"http_timeout_seconds"`
		CacheTTLSeconds    int `yaml:"cache_ttl_seconds"`
	}
	file.Config = *c
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	*c = file.Config
	if file.HTTPTimeoutSeconds > 0 {
		c.HTTPTimeout = time.Duration(file.HTTPTimeoutSeconds) * time.Second
	}
	if file.CacheTTLSeconds > 0 {
		c.CacheTTL = time.Duration(file.CacheTTLSeconds) * time.Second
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultUnits int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n)
		}
	}
	return time.Duration(defaultUnits)
}
