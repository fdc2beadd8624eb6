package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mybooks/internal/routes"
)

var envKeys = []string{
	"MYBOOKS_CONFIG", "PORT", "LOG_LEVEL", "LOG_FORMAT", "ROUTE_VARIANT", "TIMEZONE",
	"USE_MOCK_DB", "STORAGE_BACKEND", "STORAGE_KEY", "DATA_DIR", "SQLITE_PATH",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_PREFIX",
	"CLICKHOUSE_HOST", "CLICKHOUSE_PORT", "CLICKHOUSE_DATABASE", "CLICKHOUSE_USER",
	"CLICKHOUSE_PASSWORD", "CLICKHOUSE_USE_TLS", "POSTGRES_DSN",
	"S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_BUCKET", "S3_PREFIX", "S3_USE_SSL",
	"TELEGRAM_BOT_TOKEN", "ALLOWED_USER_IDS", "NOTIFY_CHAT_ID", "WEBHOOK_MODE", "WEBHOOK_URL",
}

// clearEnv blanks every variable the loader reads so the host environment
// does not leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, routes.VariantStatus, cfg.RouteVariant)
	assert.Equal(t, BackendFile, cfg.StorageBackend)
	assert.Equal(t, "mybooks", cfg.StorageKey)
	assert.Equal(t, "data", cfg.DataDir)
	assert.False(t, cfg.BotEnabled())
	assert.Empty(t, cfg.AllowedUserIDs)
}

func TestLoadFromEnv_MockDB(t *testing.T) {
	clearEnv(t)
	t.Setenv("USE_MOCK_DB", "true")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StorageBackend)

	t.Setenv("STORAGE_BACKEND", "none")
	cfg, err = LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendNone, cfg.StorageBackend)
}

func TestLoadFromEnv_Backends(t *testing.T) {
	testCases := []struct {
		name    string
		env     map[string]string
		wantErr string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "sqlite default path",
			env:  map[string]string{"STORAGE_BACKEND": "sqlite", "DATA_DIR": "/var/lib/mybooks"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, filepath.Join("/var/lib/mybooks", "mybooks.db"), cfg.SQLitePath)
			},
		},
		{
			name: "redis",
			env:  map[string]string{"STORAGE_BACKEND": "REDIS", "REDIS_DB": "3", "REDIS_PREFIX": "home:"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, BackendRedis, cfg.StorageBackend)
				assert.Equal(t, "localhost:6379", cfg.RedisAddr)
				assert.Equal(t, 3, cfg.RedisDB)
				assert.Equal(t, "home:", cfg.RedisPrefix)
			},
		},
		{
			name:    "redis bad db",
			env:     map[string]string{"STORAGE_BACKEND": "redis", "REDIS_DB": "x"},
			wantErr: "invalid REDIS_DB",
		},
		{
			name: "clickhouse",
			env:  map[string]string{"STORAGE_BACKEND": "clickhouse", "CLICKHOUSE_HOST": "ch", "CLICKHOUSE_USE_TLS": "true"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "ch", cfg.ClickHouseHost)
				assert.Equal(t, 9000, cfg.ClickHousePort)
				assert.Equal(t, "default", cfg.ClickHouseDatabase)
				assert.Equal(t, "default", cfg.ClickHouseUser)
				assert.True(t, cfg.ClickHouseUseTLS)
			},
		},
		{
			name:    "clickhouse without host",
			env:     map[string]string{"STORAGE_BACKEND": "clickhouse"},
			wantErr: "CLICKHOUSE_HOST is required",
		},
		{
			name:    "postgres without dsn",
			env:     map[string]string{"STORAGE_BACKEND": "postgres"},
			wantErr: "POSTGRES_DSN is required",
		},
		{
			name:    "s3 without bucket",
			env:     map[string]string{"STORAGE_BACKEND": "s3", "S3_ENDPOINT": "localhost:9000"},
			wantErr: "S3_BUCKET is required",
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"STORAGE_BACKEND": "floppy"},
			wantErr: `unknown STORAGE_BACKEND "floppy"`,
		},
		{
			name:    "bad route variant",
			env:     map[string]string{"ROUTE_VARIANT": "tabs"},
			wantErr: "invalid ROUTE_VARIANT",
		},
		{
			name:    "bad timezone",
			env:     map[string]string{"TIMEZONE": "Mars/Olympus"},
			wantErr: "invalid TIMEZONE",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadFromEnv()
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}

func TestLoadFromEnv_Telegram(t *testing.T) {
	t.Run("token requires allowed users", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

		_, err := LoadFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ALLOWED_USER_IDS is required")
	})

	t.Run("invalid user id", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
		t.Setenv("ALLOWED_USER_IDS", "1,two")

		_, err := LoadFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid user ID")
	})

	t.Run("webhook requires url", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
		t.Setenv("ALLOWED_USER_IDS", "1")
		t.Setenv("WEBHOOK_MODE", "true")

		_, err := LoadFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "WEBHOOK_URL is required")
	})

	t.Run("full", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
		t.Setenv("ALLOWED_USER_IDS", "1, 22 ,333")
		t.Setenv("NOTIFY_CHAT_ID", "-100")
		t.Setenv("WEBHOOK_MODE", "true")
		t.Setenv("WEBHOOK_URL", "https://books.example.com")

		cfg, err := LoadFromEnv()
		require.NoError(t, err)
		assert.True(t, cfg.BotEnabled())
		assert.Equal(t, []int64{1, 22, 333}, cfg.AllowedUserIDs)
		assert.Equal(t, int64(-100), cfg.NotifyChatID)
		assert.True(t, cfg.WebhookMode)
		assert.Equal(t, "https://books.example.com", cfg.WebhookURL)
	})
}

func TestLoadFromEnv_FileOverlay(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "mybooks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
routeVariant: flags
storage:
  backend: redis
  key: shelf
  redis:
    addr: redis:6379
    db: 2
telegram:
  token: "123:abc"
  allowedUserIDs: [7, 8]
`), 0o644))
	t.Setenv("MYBOOKS_CONFIG", path)
	t.Setenv("PORT", "7070")
	t.Setenv("REDIS_DB", "5")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port, "env wins over file")
	assert.Equal(t, routes.VariantFlags, cfg.RouteVariant)
	assert.Equal(t, BackendRedis, cfg.StorageBackend)
	assert.Equal(t, "shelf", cfg.StorageKey)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 5, cfg.RedisDB)
	assert.Equal(t, []int64{7, 8}, cfg.AllowedUserIDs)
}

func TestLoadFromEnv_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("MYBOOKS_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
