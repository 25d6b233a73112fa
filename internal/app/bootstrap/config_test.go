package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simran251393/fraud-detection-system/internal/application"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
service:
  environment: staging
dependencies:
  store_driver: memory
otp:
  ttl: 90s
  return_to_client: false
admin:
  stats_cache_ttl: 0s
policy:
  block_threshold: 5
`)
	t.Setenv("OTP_TTL", "2m")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("ADMIN_API_KEY", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 2*time.Minute, cfg.OTPTTL)
	assert.False(t, cfg.OTPReturnToClient)
	assert.Equal(t, time.Duration(0), cfg.StatsCacheTTL)
	assert.Equal(t, 5, cfg.BlockThreshold)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "from-env", cfg.AdminAPIKey)
	assert.Equal(t, 5*time.Minute, cfg.PendingTTL)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "risk-auth-service", cfg.ServiceID)
	assert.Equal(t, float64(30), cfg.RiskLowThreshold)
	assert.Equal(t, float64(60), cfg.RiskMediumThreshold)
	assert.Equal(t, 3, cfg.OTPMaxAttempts)
}

func TestLoadConfigRejectsCodeEchoInProduction(t *testing.T) {
	path := writeConfig(t, `
service:
  environment: production
dependencies:
  store_driver: memory
otp:
  return_to_client: true
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "production")

	t.Setenv("OTP_RETURN_TO_CLIENT", "false")
	_, err = LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp host")

	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "no-reply@example.com")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	base := defaultConfig()
	base.StoreDriver = StoreDriverMemory

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "memory defaults", mutate: func(*Config) {}},
		{name: "postgres needs url", mutate: func(c *Config) { c.StoreDriver = StoreDriverPostgres }, wantErr: "DB_URL"},
		{name: "postgres needs redis", mutate: func(c *Config) {
			c.StoreDriver = StoreDriverPostgres
			c.DatabaseURL = "postgres://localhost/riskauth"
		}, wantErr: "REDIS_URL"},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "sqlite" }, wantErr: "unknown store driver"},
		{name: "inverted thresholds", mutate: func(c *Config) { c.RiskLowThreshold = 70 }, wantErr: "thresholds"},
		{name: "short otp", mutate: func(c *Config) { c.OTPLength = 3 }, wantErr: "otp length"},
		{name: "keys required", mutate: func(c *Config) { c.AllowEphemeralJWT = false }, wantErr: "JWT_PRIVATE_KEY_PEM"},
		{name: "smtp needs sender", mutate: func(c *Config) { c.SMTPHost = "smtp.example.com" }, wantErr: "smtp from"},
		{name: "production needs smtp", mutate: func(c *Config) { c.Environment = "production" }, wantErr: "smtp host"},
		{name: "production with smtp", mutate: func(c *Config) {
			c.Environment = "production"
			c.SMTPHost = "smtp.example.com"
			c.SMTPFrom = "no-reply@example.com"
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestBuildMemoryRuntime(t *testing.T) {
	cfg := defaultConfig()
	cfg.StoreDriver = StoreDriverMemory
	cfg.LogLevel = "error"
	cfg.AdminAPIKey = "k"

	rt, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(rt.Close)

	rec := httptest.NewRecorder()
	rt.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	rt.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	res, err := rt.Service().Register(context.Background(), application.RegisterRequest{Name: "Runtime", Email: "runtime@example.com"}, application.RequestContext{
		IPAddress:  "127.0.0.1",
		DeviceInfo: "bootstrap-test",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Auth)
	require.NotNil(t, res.Auth.RiskData)
	assert.Equal(t, "Local", res.Auth.RiskData.Location.Country)

	stats, err := rt.Service().Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalUsers)
}
