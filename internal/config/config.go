// Package config provides configuration loading for the seeder and the
// rehearsal API.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from file or environment variables.
type Config struct {
	Env string `mapstructure:"APP_ENV"`

	BaseURL            string `mapstructure:"SEED_BASE_URL"`
	TotalProducts      int    `mapstructure:"SEED_TOTAL_PRODUCTS"`
	RequestDelayMS     int    `mapstructure:"SEED_REQUEST_DELAY_MS"`
	ProgressEvery      int    `mapstructure:"SEED_PROGRESS_EVERY"`
	MaxProductAttempts int    `mapstructure:"SEED_MAX_PRODUCT_ATTEMPTS"`
	HTTPTimeoutSeconds int    `mapstructure:"SEED_HTTP_TIMEOUT_SECONDS"`
	RandomSeed         int64  `mapstructure:"SEED_RANDOM_SEED"`
	DryRun             bool   `mapstructure:"SEED_DRY_RUN"`
	AuthEmail          string `mapstructure:"SEED_AUTH_EMAIL"`
	AuthPassword       string `mapstructure:"SEED_AUTH_PASSWORD"`
	CatalogFile        string `mapstructure:"SEED_CATALOG_FILE"`
	MetricsFile        string `mapstructure:"SEED_METRICS_FILE"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO"`

	FakeAPIPort        string `mapstructure:"FAKEAPI_PORT"`
	FakeAPIDatabaseURL string `mapstructure:"FAKEAPI_DATABASE_URL"`
	FakeAPIJWTSecret   string `mapstructure:"FAKEAPI_JWT_SECRET"`
	FakeAPIFailEvery   int    `mapstructure:"FAKEAPI_FAIL_EVERY"`
	FakeAPIAdminEmail  string `mapstructure:"FAKEAPI_ADMIN_EMAIL"`
	FakeAPIAdminPass   string `mapstructure:"FAKEAPI_ADMIN_PASSWORD"`
}

var defaults = map[string]any{
	"APP_ENV":                   "development",
	"SEED_BASE_URL":             "http://localhost:8080/api",
	"SEED_TOTAL_PRODUCTS":       1000,
	"SEED_REQUEST_DELAY_MS":     20,
	"SEED_PROGRESS_EVERY":       100,
	"SEED_MAX_PRODUCT_ATTEMPTS": 0,
	"SEED_HTTP_TIMEOUT_SECONDS": 15,
	"SEED_RANDOM_SEED":          0,
	"SEED_DRY_RUN":              false,
	"SEED_AUTH_EMAIL":           "",
	"SEED_AUTH_PASSWORD":        "",
	"SEED_CATALOG_FILE":         "",
	"SEED_METRICS_FILE":         "",
	"LOG_LEVEL":                 "info",
	"LOG_FORMAT":                "text",
	"TRACING_ENABLED":           false,
	"TRACING_EXPORTER":          "stdout",
	"OTLP_ENDPOINT":             "localhost:4318",
	"TRACING_SAMPLE_RATIO":      1.0,
	"FAKEAPI_PORT":              "8080",
	"FAKEAPI_DATABASE_URL":      ":memory:",
	"FAKEAPI_JWT_SECRET":        "",
	"FAKEAPI_FAIL_EVERY":        0,
	"FAKEAPI_ADMIN_EMAIL":       "",
	"FAKEAPI_ADMIN_PASSWORD":    "",
}

// LoadConfig loads configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: error loading .env file: %v", err)
	}

	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	// The base file is optional.
	_ = v.ReadInConfig()

	env := v.GetString("APP_ENV")
	if env != "" && env != "development" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config.%s.yml: %w", env, err)
			}
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.BaseURL = strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	config.LogFormat = strings.ToLower(strings.TrimSpace(config.LogFormat))
	config.TracingExporter = strings.ToLower(strings.TrimSpace(config.TracingExporter))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks that the loaded values can drive a seeding run.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("SEED_BASE_URL must be an absolute http(s) URL, got %q", c.BaseURL)
	}
	if c.TotalProducts <= 0 {
		return errors.New("SEED_TOTAL_PRODUCTS must be positive")
	}
	if c.RequestDelayMS < 0 {
		return errors.New("SEED_REQUEST_DELAY_MS cannot be negative")
	}
	if c.ProgressEvery <= 0 {
		return errors.New("SEED_PROGRESS_EVERY must be positive")
	}
	if c.MaxProductAttempts < 0 {
		return errors.New("SEED_MAX_PRODUCT_ATTEMPTS cannot be negative")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return errors.New("SEED_HTTP_TIMEOUT_SECONDS must be positive")
	}
	if (c.AuthEmail == "") != (c.AuthPassword == "") {
		return errors.New("SEED_AUTH_EMAIL and SEED_AUTH_PASSWORD must be set together")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.TracingEnabled {
		switch c.TracingExporter {
		case "stdout", "otlp":
		default:
			return fmt.Errorf("TRACING_EXPORTER must be stdout or otlp, got %q", c.TracingExporter)
		}
	}
	if c.FakeAPIFailEvery < 0 {
		return errors.New("FAKEAPI_FAIL_EVERY cannot be negative")
	}
	if c.FakeAPIAdminEmail != "" && c.FakeAPIJWTSecret == "" {
		return errors.New("FAKEAPI_ADMIN_EMAIL requires FAKEAPI_JWT_SECRET")
	}
	if (c.FakeAPIAdminEmail == "") != (c.FakeAPIAdminPass == "") {
		return errors.New("FAKEAPI_ADMIN_EMAIL and FAKEAPI_ADMIN_PASSWORD must be set together")
	}

	if c.IsProduction() && c.DryRun {
		log.Println("WARNING: SEED_DRY_RUN is enabled in production; no data will be written.")
	}
	if c.MaxProductAttempts > 0 && c.MaxProductAttempts < c.TotalProducts {
		log.Printf("WARNING: SEED_MAX_PRODUCT_ATTEMPTS (%d) is below SEED_TOTAL_PRODUCTS (%d); the run cannot reach its target.",
			c.MaxProductAttempts, c.TotalProducts)
	}

	return nil
}

// IsProduction reports whether APP_ENV names a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// RequestDelay is the pause between product creation attempts.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMS) * time.Millisecond
}

// HTTPTimeout is the per-request timeout of the API client.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}
