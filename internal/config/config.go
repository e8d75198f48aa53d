package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Env      Environment `envconfig:"ENV" default:"development"`
	LogLevel string      `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool        `envconfig:"DEBUG" default:"false"`

	// Application
	App AppConfig

	// Extraction pipeline
	Extractor ExtractorConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// S3/MinIO
	S3 S3Config

	// Metrics
	Metrics MetricsConfig

	// Features (feature flags)
	Features FeatureFlags
}

// AppConfig holds application metadata
type AppConfig struct {
	Name    string `envconfig:"APP_NAME" default:"openbiz-extractor"`
	Version string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// ExtractorConfig holds extraction pipeline settings
type ExtractorConfig struct {
	TargetURL      string        `envconfig:"EXTRACTOR_TARGET_URL" default:"https://udyamregistration.gov.in/UdyamRegistration.aspx"`
	Steps          []string      `envconfig:"EXTRACTOR_STEPS" default:"step1,step2"`
	Headless       bool          `envconfig:"EXTRACTOR_HEADLESS" default:"true"`
	Timeout        time.Duration `envconfig:"EXTRACTOR_TIMEOUT" default:"30s"`
	HintWorkers    int           `envconfig:"EXTRACTOR_HINT_WORKERS" default:"4"`
	HintTimeout    time.Duration `envconfig:"EXTRACTOR_HINT_TIMEOUT" default:"5s"`
	RateLimit      float64       `envconfig:"EXTRACTOR_RATE_LIMIT" default:"10"`
	SchemaVersion  string        `envconfig:"EXTRACTOR_SCHEMA_VERSION" default:"1.0.0"`
	PatternOverlay string        `envconfig:"EXTRACTOR_PATTERN_OVERLAY" default:""`
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"openbiz"`
	Password        string        `envconfig:"DB_PASSWORD" default:""`
	Database        string        `envconfig:"DB_NAME" default:"openbiz"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"1m"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	Host         string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port         int           `envconfig:"REDIS_PORT" default:"6379"`
	Password     string        `envconfig:"REDIS_PASSWORD" default:""`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"5"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Addr returns Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// S3Config holds S3/MinIO settings
type S3Config struct {
	Endpoint        string `envconfig:"S3_ENDPOINT" default:"localhost:9000"`
	AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID" default:"minioadmin"`
	SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY" default:"minioadmin"`
	Bucket          string `envconfig:"S3_BUCKET" default:"openbiz-schemas"`
	Region          string `envconfig:"S3_REGION" default:"us-east-1"`
	UseSSL          bool   `envconfig:"S3_USE_SSL" default:"false"`
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled   bool   `envconfig:"METRICS_ENABLED" default:"false"`
	Addr      string `envconfig:"METRICS_ADDR" default:":9090"`
	Namespace string `envconfig:"METRICS_NAMESPACE" default:"openbiz"`
}

// FeatureFlags holds feature toggles
type FeatureFlags struct {
	EnableCache         bool `envconfig:"FEATURE_SCHEMA_CACHE" default:"false"`
	EnableSnapshotStore bool `envconfig:"FEATURE_SNAPSHOT_STORE" default:"false"`
	EnableUpload        bool `envconfig:"FEATURE_SCHEMA_UPLOAD" default:"false"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errors []string

	if c.Extractor.TargetURL == "" {
		errors = append(errors, "EXTRACTOR_TARGET_URL is required")
	}
	if c.Extractor.HintWorkers <= 0 {
		errors = append(errors, "EXTRACTOR_HINT_WORKERS must be positive")
	}
	if c.Extractor.SchemaVersion == "" {
		errors = append(errors, "EXTRACTOR_SCHEMA_VERSION is required")
	}

	// persisted history needs real credentials outside development
	if c.Features.EnableSnapshotStore && c.Env != EnvDevelopment {
		if c.Database.Password == "" {
			errors = append(errors, "DB_PASSWORD is required when the snapshot store is enabled in non-development mode")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// GetLogLevel returns the appropriate zap log level
func (c *Config) GetLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}
