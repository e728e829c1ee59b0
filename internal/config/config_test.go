package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	path := filepath.Join(t.TempDir(), "fence.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 300*time.Second, cfg.Stripe.Tolerance)
	assert.Equal(t, "https://api.resend.com", cfg.Mail.APIBase)
	assert.True(t, cfg.Queue.Enabled)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 4000

[database]
driver = "sqlite"
url = "file:fence.db"

[license]
secret_key = "from-file"
webhook_secret = "issuer"

[stripe]
webhook_secret = "whsec_test"
tolerance = "120s"
`)
	t.Setenv("FENCE_LICENSE_SECRET_KEY", "from-env")
	t.Setenv("FENCE_TRIAL_TIMEZONE", "America/New_York")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "from-env", cfg.License.SecretKey, "env overrides the file")
	assert.Equal(t, "issuer", cfg.License.WebhookSecret)
	assert.Equal(t, 120*time.Second, cfg.Stripe.Tolerance)
	assert.Equal(t, "America/New_York", cfg.Trial.Timezone)
	require.NoError(t, Validate(cfg))
}

func TestLoadConfig_LegacyEnv(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("DATABASE_URL", "postgres://legacy")
	t.Setenv("PORT", "8081")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://legacy", cfg.Database.URL)
	assert.Equal(t, 8081, cfg.Server.Port)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "license.secret_key is required")
	assert.Contains(t, err.Error(), "stripe.webhook_secret is required")
	assert.Contains(t, err.Error(), "database.url is required")

	cfg.License.SecretKey = "s"
	cfg.License.WebhookSecret = "w"
	cfg.Stripe.WebhookSecret = "whsec"
	cfg.Database.URL = "postgres://x"
	assert.NoError(t, Validate(cfg))

	cfg.Database.Driver = "mysql"
	assert.ErrorContains(t, Validate(cfg), "unsupported database.driver")

	cfg.Database.Driver = "sqlite"
	cfg.Trial.Timezone = "Mars/Olympus"
	assert.ErrorContains(t, Validate(cfg), "invalid trial.timezone")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "license.secret_key", envKey("FENCE_LICENSE_SECRET_KEY"))
	assert.Equal(t, "server.port", envKey("FENCE_SERVER_PORT"))
	assert.Equal(t, "mail.api_base", envKey("FENCE_MAIL_API_BASE"))
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fence.toml")
	require.NoError(t, InitConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "change-me", cfg.License.SecretKey)

	assert.Error(t, InitConfig(path), "refuses to overwrite")
}
