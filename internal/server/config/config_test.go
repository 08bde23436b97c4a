package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/flagx"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

// isolate keeps the developer's environment out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(flagx.ConfigEnvVar, "")
	t.Setenv(DotEnvVar, filepath.Join(t.TempDir(), "missing.env"))
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, "GOPHGUARD_") {
			t.Setenv(name, "")
			require.NoError(t, os.Unsetenv(name))
		}
	}
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guard.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, time.Hour, c.SessionTokenTTL)
	assert.Equal(t, 24*time.Hour, c.VerificationTokenTTL)
	assert.Equal(t, 15*time.Minute, c.ResetTokenTTL)
	assert.Equal(t, 72*time.Hour, c.MFACodeTTL)
	assert.Equal(t, 72*time.Hour, c.MFATrustWindow)
	assert.Equal(t, 3, c.LockoutThreshold)
	assert.Equal(t, 5*time.Minute, c.TemporaryLockDuration)
	assert.Equal(t, NotifierLog, c.Notifier)
	require.NoError(t, c.Validate())
}

func TestLoad_DefaultsOnly(t *testing.T) {
	isolate(t)

	c, err := load(nil)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(defaults(), c))
}

func TestLoad_JSONOverlay(t *testing.T) {
	isolate(t)

	path := writeTempJSON(t, map[string]any{
		"endpoint_addr_grpc": "127.0.0.1:7000",
		"database_dsn":       "memory",
		"secret_key":         "from-json",
		"mfa_trust_window":   "48h",
		"lockout_threshold":  5,
		"admin_emails":       []string{" Root@Example.com "},
		"public_base_url":    "https://guard.example/",
		"notifier":           "kafka",
		"kafka":              map[string]any{"brokers": []string{"k1:9092"}, "topic": "mail"},
	})

	c, err := load([]string{"-c", path})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", c.EndpointAddrGRPC)
	assert.Equal(t, MemoryDSN, c.DatabaseDSN)
	assert.Equal(t, "from-json", c.SecretKey)
	assert.Equal(t, 48*time.Hour, c.MFATrustWindow)
	assert.Equal(t, 5, c.LockoutThreshold)
	assert.Equal(t, []string{"root@example.com"}, c.AdminEmails)
	assert.Equal(t, "https://guard.example", c.PublicBaseURL)
	assert.Equal(t, NotifierKafka, c.Notifier)
	assert.Equal(t, []string{"k1:9092"}, c.KafkaBrokers)
	assert.Equal(t, "mail", c.KafkaTopic)

	// untouched keys keep their defaults
	assert.Equal(t, 15*time.Minute, c.ResetTokenTTL)
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)

	path := writeTempJSON(t, map[string]any{
		"secret_key":        "from-json",
		"session_token_ttl": "2h",
		"log_level":         "warn",
	})

	t.Setenv("GOPHGUARD_SECRET_KEY", "from-env")
	t.Setenv("GOPHGUARD_SESSION_TOKEN_TTL", "30m")
	t.Setenv("GOPHGUARD_ADMIN_EMAILS", "a@x.com,b@x.com")

	c, err := load([]string{"-config=" + path, "-t", "10m"})
	require.NoError(t, err)

	assert.Equal(t, "from-env", c.SecretKey)
	assert.Equal(t, 10*time.Minute, c.SessionTokenTTL)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, c.AdminEmails)
}

func TestLoad_DotEnvFile(t *testing.T) {
	isolate(t)

	envFile := filepath.Join(t.TempDir(), "guard.env")
	require.NoError(t, os.WriteFile(envFile, []byte("GOPHGUARD_RATE_LIMIT_PER_MINUTE=5\nGOPHGUARD_REDIS_ADDR=redis:6379\n"), 0o600))
	t.Setenv(DotEnvVar, envFile)
	t.Cleanup(func() {
		_ = os.Unsetenv("GOPHGUARD_RATE_LIMIT_PER_MINUTE")
		_ = os.Unsetenv("GOPHGUARD_REDIS_ADDR")
	})

	c, err := load(nil)
	require.NoError(t, err)
	assert.Equal(t, 5, c.RateLimitPerMinute)
	assert.Equal(t, "redis:6379", c.RedisAddr)
}

func TestParseFlags(t *testing.T) {
	c := defaults()
	err := parseFlags(c, []string{
		"-c", "ignored.json",
		"-a", "127.0.0.1:9090", "-m", "", "-d", "db", "-s", "secret", "-t", "45m",
		"-n", "smtp", "-r", "localhost:6379", "-l", "debug", "-u", "https://x", "-admins", "root@x.com",
	})
	require.NoError(t, err)

	want := defaults()
	want.EndpointAddrGRPC = "127.0.0.1:9090"
	want.MetricsAddr = ""
	want.DatabaseDSN = "db"
	want.SecretKey = "secret"
	want.SessionTokenTTL = 45 * time.Minute
	want.Notifier = NotifierSMTP
	want.RedisAddr = "localhost:6379"
	want.LogLevel = "debug"
	want.PublicBaseURL = "https://x"
	want.AdminEmails = []string{"root@x.com"}

	assert.Empty(t, cmp.Diff(want, c))
}

func TestParseFlags_BadDuration(t *testing.T) {
	assert.Error(t, parseFlags(defaults(), []string{"-t", "soon"}))
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		isolate(t)
		_, err := load([]string{"-c", filepath.Join(t.TempDir(), "nope.json")})
		assert.Error(t, err)
	})

	t.Run("broken json", func(t *testing.T) {
		isolate(t)
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
		_, err := load([]string{"-c", path})
		assert.Error(t, err)
	})

	t.Run("invalid settings", func(t *testing.T) {
		isolate(t)
		_, err := load([]string{"-n", "pigeon", "-s", ""})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown notifier")
		assert.Contains(t, err.Error(), "secret key is empty")
	})
}

func TestValidate_NotifierRequirements(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"smtp without host", func(c *Config) { c.Notifier = NotifierSMTP }, false},
		{"smtp complete", func(c *Config) { c.Notifier = NotifierSMTP; c.SMTPHost = "mx"; c.SMTPFrom = "no-reply@x" }, true},
		{"kafka without brokers", func(c *Config) { c.Notifier = NotifierKafka }, false},
		{"s3 without bucket", func(c *Config) { c.Notifier = NotifierS3 }, false},
		{"s3 complete", func(c *Config) { c.Notifier = NotifierS3; c.S3Bucket = "outbox" }, true},
		{"zero threshold", func(c *Config) { c.LockoutThreshold = 0 }, false},
		{"negative window", func(c *Config) { c.MFATrustWindow = -time.Second }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			tt.mutate(c)
			if tt.ok {
				assert.NoError(t, c.Validate())
			} else {
				assert.Error(t, c.Validate())
			}
		})
	}
}

func TestIsAdminEmail(t *testing.T) {
	c := defaults()
	c.AdminEmails = []string{"root@example.com"}
	assert.True(t, c.IsAdminEmail(" ROOT@example.com"))
	assert.False(t, c.IsAdminEmail("user@example.com"))
}
