// Package config loads server settings from an optional YAML file, a .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Auth      AuthConfig      `yaml:"auth"`
	Notify    NotifyConfig    `yaml:"notify"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// StoreConfig selects and configures the persistence backend
type StoreConfig struct {
	Driver     string `yaml:"driver"` // "sqlite", "mongo" or "memory"
	SQLitePath string `yaml:"sqlite_path"`
	MongoURI   string `yaml:"mongo_uri"`
	MongoDB    string `yaml:"mongo_db"`
}

// AuthConfig contains token verification and admin bootstrap settings
type AuthConfig struct {
	AdminEmails             []string `yaml:"admin_emails"`
	JWTSecret               string   `yaml:"jwt_secret"`
	JWTIssuer               string   `yaml:"jwt_issuer"`
	FirebaseProjectID       string   `yaml:"firebase_project_id"`
	FirebaseCredentialsFile string   `yaml:"firebase_credentials_file"`
}

// NotifyConfig contains outbound chat channel settings. Empty values disable a channel.
type NotifyConfig struct {
	SlackWebhookURL  string `yaml:"slack_webhook_url"`
	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   int64  `yaml:"telegram_chat_id"`
}

// RateLimitConfig throttles pickup submissions. Disabled without a Redis address.
type RateLimitConfig struct {
	RedisAddr       string `yaml:"redis_addr"`
	RedisPassword   string `yaml:"redis_password"`
	SubmitPerMinute int    `yaml:"submit_per_minute"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	PendingDigest string `yaml:"pending_digest"` // "off" disables
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
	DriverMemory = "memory"

	DigestOff = "off"
)

// Load reads configuration. configPath may be empty, in which case only
// .env and the environment are consulted.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.overrideWithEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() error {
	// Server
	if val := os.Getenv("PORT"); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if val := os.Getenv("CORS_ORIGINS"); val != "" {
		c.Server.CORSOrigins = splitList(val)
	}

	// Store
	if val := os.Getenv("STORE_DRIVER"); val != "" {
		c.Store.Driver = val
	}
	if val := os.Getenv("SQLITE_PATH"); val != "" {
		c.Store.SQLitePath = val
	}
	if val := os.Getenv("MONGO_URI"); val != "" {
		c.Store.MongoURI = val
	}
	if val := os.Getenv("MONGO_DB"); val != "" {
		c.Store.MongoDB = val
	}

	// Auth
	if val := os.Getenv("ADMIN_EMAILS"); val != "" {
		c.Auth.AdminEmails = splitList(val)
	}
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.Auth.JWTSecret = val
	}
	if val := os.Getenv("FIREBASE_PROJECT_ID"); val != "" {
		c.Auth.FirebaseProjectID = val
	}
	if val := os.Getenv("FIREBASE_CREDENTIALS_FILE"); val != "" {
		c.Auth.FirebaseCredentialsFile = val
	}

	// Notify
	if val := os.Getenv("SLACK_WEBHOOK_URL"); val != "" {
		c.Notify.SlackWebhookURL = val
	}
	if val := os.Getenv("TELEGRAM_BOT_TOKEN"); val != "" {
		c.Notify.TelegramBotToken = val
	}
	if val := os.Getenv("TELEGRAM_CHAT_ID"); val != "" {
		id, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		c.Notify.TelegramChatID = id
	}

	// Rate limit
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.RateLimit.RedisAddr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.RateLimit.RedisPassword = val
	}
	if val := os.Getenv("SUBMIT_RATE_LIMIT_PER_MINUTE"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("SUBMIT_RATE_LIMIT_PER_MINUTE: %w", err)
		}
		c.RateLimit.SubmitPerMinute = n
	}

	// Scheduler
	if val := os.Getenv("DIGEST_SCHEDULE"); val != "" {
		c.Scheduler.PendingDigest = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
	return nil
}

// Validate fills defaults and checks the configuration is usable
func (c *Config) Validate() error {
	// Server
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}

	// Store
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			c.Store.SQLitePath = "rescue.db"
		}
	case DriverMongo:
		if c.Store.MongoURI == "" {
			return fmt.Errorf("mongo uri is required for the mongo store")
		}
		if c.Store.MongoDB == "" {
			c.Store.MongoDB = "rescue"
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store driver: %q", c.Store.Driver)
	}

	// Auth
	if c.Auth.FirebaseProjectID == "" {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("either a firebase project id or a JWT secret is required")
		}
		if len(c.Auth.JWTSecret) < 16 {
			return fmt.Errorf("JWT secret must be at least 16 characters")
		}
	}
	if c.Auth.JWTIssuer == "" {
		c.Auth.JWTIssuer = "rescue-engine"
	}

	// Notify
	if c.Notify.TelegramBotToken != "" && c.Notify.TelegramChatID == 0 {
		return fmt.Errorf("telegram chat id is required when a bot token is set")
	}

	// Rate limit
	if c.RateLimit.SubmitPerMinute == 0 {
		c.RateLimit.SubmitPerMinute = 10
	}
	if c.RateLimit.SubmitPerMinute < 0 {
		return fmt.Errorf("invalid submit rate limit: %d", c.RateLimit.SubmitPerMinute)
	}

	// Scheduler
	if c.Scheduler.PendingDigest == "" {
		c.Scheduler.PendingDigest = "0 0 9 * * *" // 9 AM UTC daily
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// RateLimitEnabled reports whether submissions should be throttled.
func (c *Config) RateLimitEnabled() bool {
	return c.RateLimit.RedisAddr != ""
}

// DigestEnabled reports whether the pending digest job should be scheduled.
func (c *Config) DigestEnabled() bool {
	return !strings.EqualFold(c.Scheduler.PendingDigest, DigestOff)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
