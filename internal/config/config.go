package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mybooks/internal/routes"
)

// Storage backends.
const (
	BackendMemory     = "memory"
	BackendFile       = "file"
	BackendSQLite     = "sqlite"
	BackendRedis      = "redis"
	BackendClickHouse = "clickhouse"
	BackendPostgres   = "postgres"
	BackendS3         = "s3"
	BackendNone       = "none"
)

// Config holds the application configuration
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	RouteVariant routes.Variant
	Location     *time.Location

	// Storage configuration
	StorageBackend string
	StorageKey     string
	DataDir        string
	SQLitePath     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseUseTLS   bool

	PostgresDSN string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Prefix    string
	S3UseSSL    bool

	// Telegram configuration. The bot is disabled when TelegramToken is empty.
	TelegramToken  string
	AllowedUserIDs []int64
	NotifyChatID   int64

	// Bot mode configuration
	WebhookMode bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL  string // URL for webhook (required if WebhookMode is true)
}

// BotEnabled reports whether a Telegram token was configured.
func (c *Config) BotEnabled() bool { return c.TelegramToken != "" }

// FileConfig is the optional YAML file named by MYBOOKS_CONFIG. Environment
// variables override every value in it.
type FileConfig struct {
	Port         string `yaml:"port"`
	LogLevel     string `yaml:"logLevel"`
	LogFormat    string `yaml:"logFormat"`
	RouteVariant string `yaml:"routeVariant"`
	Timezone     string `yaml:"timezone"`

	Storage struct {
		Backend string `yaml:"backend"`
		Key     string `yaml:"key"`
		DataDir string `yaml:"dataDir"`
		SQLite  struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		ClickHouse struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Database string `yaml:"database"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			UseTLS   bool   `yaml:"useTLS"`
		} `yaml:"clickhouse"`
		Postgres struct {
			DSN string `yaml:"dsn"`
		} `yaml:"postgres"`
		S3 struct {
			Endpoint  string `yaml:"endpoint"`
			AccessKey string `yaml:"accessKey"`
			SecretKey string `yaml:"secretKey"`
			Bucket    string `yaml:"bucket"`
			Prefix    string `yaml:"prefix"`
			UseSSL    bool   `yaml:"useSSL"`
		} `yaml:"s3"`
	} `yaml:"storage"`

	Telegram struct {
		Token          string  `yaml:"token"`
		AllowedUserIDs []int64 `yaml:"allowedUserIDs"`
		NotifyChatID   int64   `yaml:"notifyChatID"`
		WebhookMode    bool    `yaml:"webhookMode"`
		WebhookURL     string  `yaml:"webhookURL"`
	} `yaml:"telegram"`
}

// LoadFile reads a YAML config file.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config: %w", err)
	}
	return fc, nil
}

// LoadFromEnv loads configuration from environment variables, on top of
// the YAML file named by MYBOOKS_CONFIG when set
func LoadFromEnv() (*Config, error) {
	var fc FileConfig
	if path := os.Getenv("MYBOOKS_CONFIG"); path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		fc = loaded
	}
	return build(fc)
}

func build(fc FileConfig) (*Config, error) {
	config := &Config{}

	config.Port = stringVar("PORT", fc.Port, "8080")
	config.LogLevel = stringVar("LOG_LEVEL", fc.LogLevel, "info")
	config.LogFormat = stringVar("LOG_FORMAT", fc.LogFormat, "json")

	variant, err := routes.ParseVariant(stringVar("ROUTE_VARIANT", fc.RouteVariant, ""))
	if err != nil {
		return nil, fmt.Errorf("invalid ROUTE_VARIANT: %w", err)
	}
	config.RouteVariant = variant

	config.Location = time.Local
	if tz := stringVar("TIMEZONE", fc.Timezone, ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
		}
		config.Location = loc
	}

	if err := loadStorage(config, fc); err != nil {
		return nil, err
	}
	if err := loadTelegram(config, fc); err != nil {
		return nil, err
	}
	return config, nil
}

func loadStorage(config *Config, fc FileConfig) error {
	fs := fc.Storage

	defaultBackend := BackendFile
	// USE_MOCK_DB predates STORAGE_BACKEND and is still honoured
	if os.Getenv("USE_MOCK_DB") == "true" {
		defaultBackend = BackendMemory
	}
	config.StorageBackend = strings.ToLower(stringVar("STORAGE_BACKEND", fs.Backend, defaultBackend))
	config.StorageKey = stringVar("STORAGE_KEY", fs.Key, "mybooks")
	config.DataDir = stringVar("DATA_DIR", fs.DataDir, "data")

	var err error
	switch config.StorageBackend {
	case BackendMemory, BackendNone, BackendFile:

	case BackendSQLite:
		config.SQLitePath = stringVar("SQLITE_PATH", fs.SQLite.Path, filepath.Join(config.DataDir, "mybooks.db"))

	case BackendRedis:
		config.RedisAddr = stringVar("REDIS_ADDR", fs.Redis.Addr, "localhost:6379")
		config.RedisPassword = stringVar("REDIS_PASSWORD", fs.Redis.Password, "")
		config.RedisPrefix = stringVar("REDIS_PREFIX", fs.Redis.Prefix, "")
		if config.RedisDB, err = intVar("REDIS_DB", fs.Redis.DB); err != nil {
			return err
		}

	case BackendClickHouse:
		ch := fs.ClickHouse
		config.ClickHouseHost = stringVar("CLICKHOUSE_HOST", ch.Host, "")
		if config.ClickHouseHost == "" {
			return fmt.Errorf("CLICKHOUSE_HOST is required when STORAGE_BACKEND is clickhouse")
		}
		port := ch.Port
		if port == 0 {
			port = 9000 // Default ClickHouse native port
		}
		if config.ClickHousePort, err = intVar("CLICKHOUSE_PORT", port); err != nil {
			return err
		}
		config.ClickHouseDatabase = stringVar("CLICKHOUSE_DATABASE", ch.Database, "default")
		config.ClickHouseUser = stringVar("CLICKHOUSE_USER", ch.User, "default")
		config.ClickHousePassword = stringVar("CLICKHOUSE_PASSWORD", ch.Password, "")
		config.ClickHouseUseTLS = boolVar("CLICKHOUSE_USE_TLS", ch.UseTLS)

	case BackendPostgres:
		config.PostgresDSN = stringVar("POSTGRES_DSN", fs.Postgres.DSN, "")
		if config.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STORAGE_BACKEND is postgres")
		}

	case BackendS3:
		s3 := fs.S3
		config.S3Endpoint = stringVar("S3_ENDPOINT", s3.Endpoint, "")
		config.S3AccessKey = stringVar("S3_ACCESS_KEY", s3.AccessKey, "")
		config.S3SecretKey = stringVar("S3_SECRET_KEY", s3.SecretKey, "")
		config.S3Bucket = stringVar("S3_BUCKET", s3.Bucket, "")
		config.S3Prefix = stringVar("S3_PREFIX", s3.Prefix, "")
		config.S3UseSSL = boolVar("S3_USE_SSL", s3.UseSSL)
		if config.S3Endpoint == "" {
			return fmt.Errorf("S3_ENDPOINT is required when STORAGE_BACKEND is s3")
		}
		if config.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND is s3")
		}

	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", config.StorageBackend)
	}
	return nil
}

func loadTelegram(config *Config, fc FileConfig) error {
	tg := fc.Telegram

	config.TelegramToken = stringVar("TELEGRAM_BOT_TOKEN", tg.Token, "")
	if config.TelegramToken == "" {
		return nil
	}

	// Allowed User IDs (required with a token)
	if allowedIDsStr := os.Getenv("ALLOWED_USER_IDS"); allowedIDsStr != "" {
		for _, idStr := range strings.Split(allowedIDsStr, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user ID in ALLOWED_USER_IDS: %s", idStr)
			}
			config.AllowedUserIDs = append(config.AllowedUserIDs, id)
		}
	} else {
		config.AllowedUserIDs = tg.AllowedUserIDs
	}
	if len(config.AllowedUserIDs) == 0 {
		return fmt.Errorf("ALLOWED_USER_IDS is required (comma-separated list of Telegram user IDs)")
	}

	if v := os.Getenv("NOTIFY_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid NOTIFY_CHAT_ID: %w", err)
		}
		config.NotifyChatID = id
	} else {
		config.NotifyChatID = tg.NotifyChatID
	}

	config.WebhookMode = boolVar("WEBHOOK_MODE", tg.WebhookMode)
	if config.WebhookMode {
		config.WebhookURL = stringVar("WEBHOOK_URL", tg.WebhookURL, "")
		if config.WebhookURL == "" {
			return fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
	}
	return nil
}

// stringVar returns the environment value, else the file value, else def
func stringVar(key, fileValue, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if fileValue != "" {
		return fileValue
	}
	return def
}

func intVar(key string, fileValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fileValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolVar(key string, fileValue bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true"
	}
	return fileValue
}
