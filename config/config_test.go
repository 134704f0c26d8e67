package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_YAMLWithDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
store:
  driver: memory
auth:
  jwt_secret: a-very-long-dev-secret
  admin_emails: [ops@foodbank.org]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, []string{"ops@foodbank.org"}, cfg.Auth.AdminEmails)
	assert.Equal(t, "rescue-engine", cfg.Auth.JWTIssuer)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 10, cfg.RateLimit.SubmitPerMinute)
	assert.False(t, cfg.RateLimitEnabled())
	assert.True(t, cfg.DigestEnabled())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
auth:
  jwt_secret: a-very-long-dev-secret
`)
	t.Setenv("PORT", "7000")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/rescue.db")
	t.Setenv("ADMIN_EMAILS", "a@x.org, B@x.org ,")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.test/abc")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SUBMIT_RATE_LIMIT_PER_MINUTE", "3")
	t.Setenv("DIGEST_SCHEDULE", "off")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "/tmp/rescue.db", cfg.Store.SQLitePath)
	assert.Equal(t, []string{"a@x.org", "B@x.org"}, cfg.Auth.AdminEmails)
	assert.Equal(t, "https://hooks.slack.test/abc", cfg.Notify.SlackWebhookURL)
	assert.Equal(t, int64(-1001), cfg.Notify.TelegramChatID)
	assert.True(t, cfg.RateLimitEnabled())
	assert.Equal(t, 3, cfg.RateLimit.SubmitPerMinute)
	assert.False(t, cfg.DigestEnabled())
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "a-very-long-dev-secret")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad port env", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "a-very-long-dev-secret")
		t.Setenv("PORT", "eighty")
		_, err := Load("")
		assert.ErrorContains(t, err, "PORT")
	})
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Auth: AuthConfig{JWTSecret: "a-very-long-dev-secret"}}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "rescue.db", cfg.Store.SQLitePath)

	cases := map[string]func(*Config){
		"no auth":          func(c *Config) { c.Auth.JWTSecret = "" },
		"short secret":     func(c *Config) { c.Auth.JWTSecret = "short" },
		"bad port":         func(c *Config) { c.Server.Port = 70000 },
		"unknown driver":   func(c *Config) { c.Store.Driver = "postgres" },
		"mongo no uri":     func(c *Config) { c.Store.Driver = DriverMongo },
		"telegram no chat": func(c *Config) { c.Notify.TelegramBotToken = "123:abc" },
		"negative limit":   func(c *Config) { c.RateLimit.SubmitPerMinute = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("firebase without secret", func(t *testing.T) {
		cfg := Config{Auth: AuthConfig{FirebaseProjectID: "rescue-prod"}}
		assert.NoError(t, cfg.Validate())
	})
}
