package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Auth     AuthConfig     `yaml:"auth"`
	Audit    AuditConfig    `yaml:"audit"`
	LogLevel string         `yaml:"logLevel"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string          `yaml:"port"`
	Env             string          `yaml:"env"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	IdleTimeout     time.Duration   `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	AllowedOrigins  []string        `yaml:"allowedOrigins"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
	IdempotencyTTL  time.Duration   `yaml:"idempotencyTTL"`
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled"`
	Rate    int           `yaml:"rate"`
	Window  time.Duration `yaml:"window"`
	Burst   int           `yaml:"burst"`
}

// DatabaseConfig holds SQL connection settings. DSN, when set, wins over
// the discrete fields.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	AutoMigrate     bool          `yaml:"autoMigrate"`
}

// JWTConfig holds token signing settings. Tokens always live seven days.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// AuthConfig selects how new passwords are hashed
type AuthConfig struct {
	PasswordHasher string `yaml:"passwordHasher"` // "sha256" or "bcrypt"
	BcryptCost     int    `yaml:"bcryptCost"`
}

// AuditConfig schedules the background ledger audit
type AuditConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron spec, e.g. "@every 1h"
}

// LoadOptions names optional files read before the environment
type LoadOptions struct {
	EnvFile    string // dotenv file; missing is fine unless named explicitly
	ConfigFile string // YAML file; falls back to $CONFIG_FILE
}

// Defaults returns the development configuration
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "3000",
			Env:             "development",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"http://localhost:3000"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				Rate:    100,
				Window:  time.Minute,
				Burst:   20,
			},
			IdempotencyTTL: 24 * time.Hour,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            "5432",
			User:            "postgres",
			Password:        "postgres",
			Name:            "goodjobs",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		JWT: JWTConfig{
			Issuer: "goodjobs",
		},
		Auth: AuthConfig{
			PasswordHasher: "sha256",
		},
		Audit: AuditConfig{
			Enabled:  true,
			Schedule: "@every 1h",
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, then the YAML file, then
// the environment (after loading the dotenv file). Later layers win.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	cfg := Defaults()

	path := opts.ConfigFile
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	// godotenv never overrides variables already set
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	s := &c.Server
	s.Port = getEnv("PORT", getEnv("SERVER_PORT", s.Port))
	s.Env = getEnv("SERVER_ENV", s.Env)
	s.ReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getDurationEnv("SERVER_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getDurationEnv("SERVER_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.AllowedOrigins = getSliceEnv("CORS_ALLOWED_ORIGINS", s.AllowedOrigins)
	s.RateLimit.Enabled = getBoolEnv("RATE_LIMIT_ENABLED", s.RateLimit.Enabled)
	s.RateLimit.Rate = getIntEnv("RATE_LIMIT_RATE", s.RateLimit.Rate)
	s.RateLimit.Window = getDurationEnv("RATE_LIMIT_WINDOW", s.RateLimit.Window)
	s.RateLimit.Burst = getIntEnv("RATE_LIMIT_BURST", s.RateLimit.Burst)
	s.IdempotencyTTL = getDurationEnv("IDEMPOTENCY_TTL", s.IdempotencyTTL)

	d := &c.Database
	d.Driver = getEnv("DB_DRIVER", d.Driver)
	d.DSN = getEnv("DATABASE_URL", d.DSN)
	d.Host = getEnv("DB_HOST", d.Host)
	d.Port = getEnv("DB_PORT", d.Port)
	d.User = getEnv("DB_USER", d.User)
	d.Password = getEnv("DB_PASSWORD", d.Password)
	d.Name = getEnv("DB_NAME", d.Name)
	d.SSLMode = getEnv("DB_SSLMODE", d.SSLMode)
	d.MaxOpenConns = getIntEnv("DB_MAX_OPEN_CONNS", d.MaxOpenConns)
	d.MaxIdleConns = getIntEnv("DB_MAX_IDLE_CONNS", d.MaxIdleConns)
	d.ConnMaxLifetime = getDurationEnv("DB_CONN_MAX_LIFETIME", d.ConnMaxLifetime)
	d.AutoMigrate = getBoolEnv("DB_AUTO_MIGRATE", d.AutoMigrate)

	c.JWT.Secret = getEnv("JWT_SECRET", c.JWT.Secret)
	c.JWT.Issuer = getEnv("JWT_ISSUER", c.JWT.Issuer)

	c.Auth.PasswordHasher = getEnv("PASSWORD_HASHER", c.Auth.PasswordHasher)
	c.Auth.BcryptCost = getIntEnv("BCRYPT_COST", c.Auth.BcryptCost)

	c.Audit.Enabled = getBoolEnv("AUDIT_ENABLED", c.Audit.Enabled)
	c.Audit.Schedule = getEnv("AUDIT_SCHEDULE", c.Audit.Schedule)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	// Server validation
	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must have at least one origin"))
	}
	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.Rate <= 0 {
			errs = append(errs, errors.New("RATE_LIMIT_RATE must be positive"))
		}
		if c.Server.RateLimit.Window <= 0 {
			errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
		}
	}

	// Database validation
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			if c.Database.Host == "" {
				errs = append(errs, errors.New("DB_HOST is required"))
			}
			if c.Database.Port == "" {
				errs = append(errs, errors.New("DB_PORT is required"))
			}
			if c.Database.Name == "" {
				errs = append(errs, errors.New("DB_NAME is required"))
			}
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be 'postgres' or 'sqlite', got '%s'", c.Database.Driver))
	}

	// JWT validation - critical for production
	if c.IsProduction() && c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}

	switch c.Auth.PasswordHasher {
	case "sha256", "bcrypt":
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_HASHER must be 'sha256' or 'bcrypt', got '%s'", c.Auth.PasswordHasher))
	}

	if c.Audit.Enabled && c.Audit.Schedule == "" {
		errs = append(errs, errors.New("AUDIT_SCHEDULE is required when AUDIT_ENABLED is true"))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got '%s'", c.LogLevel))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
