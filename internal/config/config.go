package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the annotation platform.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	Debug            bool
	DatabaseDriver   string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	JWTSecret        string
	AdminAPIKey      string
	TaskConfigPath   string
	DatasetPath      string
	OverviewCacheTTL time.Duration
	CloudName        string
	CloudAPIKey      string
	CloudAPISecret   string
	CloudFolder      string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LABELGRID")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "LabelGrid API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.debug", false)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("task.config", "task.yaml")
	v.SetDefault("overview.cache_ttl", "45s")
	v.SetDefault("cloud.folder", "labelgrid/media")

	ttlString := v.GetString("overview.cache_ttl")
	if ttlString == "" {
		ttlString = "45s"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid overview cache ttl: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		Debug:            v.GetBool("app.debug"),
		DatabaseDriver:   strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		AdminAPIKey:      v.GetString("admin.api_key"),
		TaskConfigPath:   v.GetString("task.config"),
		DatasetPath:      v.GetString("dataset.path"),
		OverviewCacheTTL: ttl,
		CloudName:        v.GetString("cloud.name"),
		CloudAPIKey:      v.GetString("cloud.api_key"),
		CloudAPISecret:   v.GetString("cloud.api_secret"),
		CloudFolder:      v.GetString("cloud.folder"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	// The admin gate has no fallback outside debug deployments.
	if cfg.AdminAPIKey == "" && !cfg.Debug {
		return Config{}, fmt.Errorf("admin api key must be provided")
	}

	if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	return cfg, nil
}
