package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config is the resolved runtime configuration.
type Config struct {
	ServiceID   string
	Environment string
	LogLevel    string

	HTTPPort int
	GRPCPort int

	StoreDriver string
	DatabaseURL string
	MaxDBConns  int32
	RedisURL    string

	RiskLowThreshold    float64
	RiskMediumThreshold float64

	OTPLength         int
	OTPTTL            time.Duration
	OTPMaxAttempts    int
	OTPBcryptCost     int
	OTPReturnToClient bool
	PendingTTL        time.Duration

	TokenTTL          time.Duration
	JWTPrivateKeyPEM  string
	JWTPublicKeyPEM   string
	JWTKeyID          string
	AllowEphemeralJWT bool

	BlockThreshold  int
	BlockWindow     time.Duration
	CheckRateLimit  int
	CheckRateWindow time.Duration

	StatsCacheTTL       time.Duration
	AttemptsListLimit   int
	RecentAttemptsLimit int

	GeoIPDBPath string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPTLSMode  string

	KafkaBrokers []string
	KafkaTopic   string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int

	AdminAPIKey string
}

// configFile mirrors configs/default.yaml.
type configFile struct {
	Service struct {
		ID          string `yaml:"id"`
		Environment string `yaml:"environment"`
		LogLevel    string `yaml:"log_level"`
		HTTPPort    int    `yaml:"http_port"`
		GRPCPort    int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		StoreDriver string `yaml:"store_driver"`
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
		GeoIPDBPath string `yaml:"geoip_db_path"`
		Kafka       struct {
			Brokers []string `yaml:"brokers"`
			Topic   string   `yaml:"topic"`
		} `yaml:"kafka"`
		SMTP struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Username string `yaml:"username"`
			From     string `yaml:"from"`
			TLSMode  string `yaml:"tls_mode"`
		} `yaml:"smtp"`
	} `yaml:"dependencies"`
	Risk struct {
		LowThreshold    float64 `yaml:"low_threshold"`
		MediumThreshold float64 `yaml:"medium_threshold"`
	} `yaml:"risk"`
	OTP struct {
		Length         int           `yaml:"length"`
		TTL            time.Duration `yaml:"ttl"`
		MaxAttempts    int           `yaml:"max_attempts"`
		BcryptCost     int           `yaml:"bcrypt_cost"`
		ReturnToClient *bool         `yaml:"return_to_client"`
	} `yaml:"otp"`
	Pending struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"pending"`
	Session struct {
		TokenTTL       time.Duration `yaml:"token_ttl"`
		KeyID          string        `yaml:"key_id"`
		AllowEphemeral *bool         `yaml:"allow_ephemeral"`
	} `yaml:"session"`
	Policy struct {
		BlockThreshold  int           `yaml:"block_threshold"`
		BlockWindow     time.Duration `yaml:"block_window"`
		CheckRateLimit  int           `yaml:"check_rate_limit"`
		CheckRateWindow time.Duration `yaml:"check_rate_window"`
	} `yaml:"policy"`
	Admin struct {
		StatsCacheTTL       *time.Duration `yaml:"stats_cache_ttl"`
		AttemptsListLimit   int            `yaml:"attempts_list_limit"`
		RecentAttemptsLimit int            `yaml:"recent_attempts_limit"`
	} `yaml:"admin"`
	Outbox struct {
		PollInterval time.Duration `yaml:"poll_interval"`
		BatchSize    int           `yaml:"batch_size"`
		ClaimTTL     time.Duration `yaml:"claim_ttl"`
		MaxRetries   int           `yaml:"max_retries"`
	} `yaml:"outbox"`
}

func defaultConfig() Config {
	return Config{
		ServiceID:           "risk-auth-service",
		Environment:         "development",
		LogLevel:            "info",
		HTTPPort:            8080,
		GRPCPort:            9090,
		StoreDriver:         StoreDriverPostgres,
		MaxDBConns:          20,
		RiskLowThreshold:    30,
		RiskMediumThreshold: 60,
		OTPLength:           6,
		OTPTTL:              5 * time.Minute,
		OTPMaxAttempts:      3,
		OTPBcryptCost:       4,
		PendingTTL:          5 * time.Minute,
		TokenTTL:            24 * time.Hour,
		JWTKeyID:            "risk-auth-key-1",
		AllowEphemeralJWT:   true,
		BlockThreshold:      3,
		BlockWindow:         24 * time.Hour,
		CheckRateLimit:      30,
		CheckRateWindow:     time.Minute,
		StatsCacheTTL:       5 * time.Second,
		AttemptsListLimit:   50,
		RecentAttemptsLimit: 10,
		SMTPPort:            587,
		SMTPTLSMode:         "auto",
		KafkaTopic:          "risk-auth.events",
		OutboxPollInterval:  2 * time.Second,
		OutboxBatchSize:     100,
		OutboxClaimTTL:      30 * time.Second,
		OutboxMaxRetries:    5,
	}
}

// LoadConfig resolves configuration in priority order: defaults, file, env.
// A .env file in the working directory is loaded into the environment first.
func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			var f configFile
			if err := yaml.Unmarshal(raw, &f); err != nil {
				return Config{}, fmt.Errorf("parse config file: %w", err)
			}
			applyFile(&cfg, f)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) {
	setString(&cfg.ServiceID, f.Service.ID)
	setString(&cfg.Environment, f.Service.Environment)
	setString(&cfg.LogLevel, f.Service.LogLevel)
	setInt(&cfg.HTTPPort, f.Service.HTTPPort)
	setInt(&cfg.GRPCPort, f.Service.GRPCPort)

	setString(&cfg.StoreDriver, f.Dependencies.StoreDriver)
	setString(&cfg.DatabaseURL, f.Dependencies.PostgresURL)
	setString(&cfg.RedisURL, f.Dependencies.RedisURL)
	setString(&cfg.GeoIPDBPath, f.Dependencies.GeoIPDBPath)
	if len(f.Dependencies.Kafka.Brokers) > 0 {
		cfg.KafkaBrokers = f.Dependencies.Kafka.Brokers
	}
	setString(&cfg.KafkaTopic, f.Dependencies.Kafka.Topic)
	setString(&cfg.SMTPHost, f.Dependencies.SMTP.Host)
	setInt(&cfg.SMTPPort, f.Dependencies.SMTP.Port)
	setString(&cfg.SMTPUsername, f.Dependencies.SMTP.Username)
	setString(&cfg.SMTPFrom, f.Dependencies.SMTP.From)
	setString(&cfg.SMTPTLSMode, f.Dependencies.SMTP.TLSMode)

	if f.Risk.LowThreshold > 0 {
		cfg.RiskLowThreshold = f.Risk.LowThreshold
	}
	if f.Risk.MediumThreshold > 0 {
		cfg.RiskMediumThreshold = f.Risk.MediumThreshold
	}

	setInt(&cfg.OTPLength, f.OTP.Length)
	setDuration(&cfg.OTPTTL, f.OTP.TTL)
	setInt(&cfg.OTPMaxAttempts, f.OTP.MaxAttempts)
	setInt(&cfg.OTPBcryptCost, f.OTP.BcryptCost)
	if f.OTP.ReturnToClient != nil {
		cfg.OTPReturnToClient = *f.OTP.ReturnToClient
	}
	setDuration(&cfg.PendingTTL, f.Pending.TTL)

	setDuration(&cfg.TokenTTL, f.Session.TokenTTL)
	setString(&cfg.JWTKeyID, f.Session.KeyID)
	if f.Session.AllowEphemeral != nil {
		cfg.AllowEphemeralJWT = *f.Session.AllowEphemeral
	}

	setInt(&cfg.BlockThreshold, f.Policy.BlockThreshold)
	setDuration(&cfg.BlockWindow, f.Policy.BlockWindow)
	setInt(&cfg.CheckRateLimit, f.Policy.CheckRateLimit)
	setDuration(&cfg.CheckRateWindow, f.Policy.CheckRateWindow)

	if f.Admin.StatsCacheTTL != nil {
		cfg.StatsCacheTTL = *f.Admin.StatsCacheTTL
	}
	setInt(&cfg.AttemptsListLimit, f.Admin.AttemptsListLimit)
	setInt(&cfg.RecentAttemptsLimit, f.Admin.RecentAttemptsLimit)

	setDuration(&cfg.OutboxPollInterval, f.Outbox.PollInterval)
	setInt(&cfg.OutboxBatchSize, f.Outbox.BatchSize)
	setDuration(&cfg.OutboxClaimTTL, f.Outbox.ClaimTTL)
	setInt(&cfg.OutboxMaxRetries, f.Outbox.MaxRetries)
}

func applyEnv(cfg *Config) {
	cfg.ServiceID = envOrDefault("SERVICE_ID", cfg.ServiceID)
	cfg.Environment = strings.ToLower(envOrDefault("APP_ENV", cfg.Environment))
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)

	cfg.StoreDriver = strings.ToLower(envOrDefault("STORE_DRIVER", cfg.StoreDriver))
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)

	cfg.RiskLowThreshold = envFloat("RISK_LOW_THRESHOLD", cfg.RiskLowThreshold)
	cfg.RiskMediumThreshold = envFloat("RISK_MEDIUM_THRESHOLD", cfg.RiskMediumThreshold)

	cfg.OTPLength = envInt("OTP_LENGTH", cfg.OTPLength)
	cfg.OTPTTL = envDuration("OTP_TTL", cfg.OTPTTL)
	cfg.OTPMaxAttempts = envInt("OTP_MAX_ATTEMPTS", cfg.OTPMaxAttempts)
	cfg.OTPBcryptCost = envInt("OTP_BCRYPT_COST", cfg.OTPBcryptCost)
	cfg.OTPReturnToClient = envBool("OTP_RETURN_TO_CLIENT", cfg.OTPReturnToClient)
	cfg.PendingTTL = envDuration("PENDING_TTL", cfg.PendingTTL)

	cfg.TokenTTL = envDuration("TOKEN_TTL", cfg.TokenTTL)
	cfg.JWTPrivateKeyPEM = envOrDefault("JWT_PRIVATE_KEY_PEM", cfg.JWTPrivateKeyPEM)
	cfg.JWTPublicKeyPEM = envOrDefault("JWT_PUBLIC_KEY_PEM", cfg.JWTPublicKeyPEM)
	cfg.JWTKeyID = envOrDefault("JWT_KEY_ID", cfg.JWTKeyID)
	cfg.AllowEphemeralJWT = envBool("JWT_ALLOW_EPHEMERAL", cfg.AllowEphemeralJWT)

	cfg.BlockThreshold = envInt("BLOCK_THRESHOLD", cfg.BlockThreshold)
	cfg.BlockWindow = envDuration("BLOCK_WINDOW", cfg.BlockWindow)
	cfg.CheckRateLimit = envInt("CHECK_RATE_LIMIT", cfg.CheckRateLimit)
	cfg.CheckRateWindow = envDuration("CHECK_RATE_WINDOW", cfg.CheckRateWindow)

	cfg.StatsCacheTTL = envDuration("STATS_CACHE_TTL", cfg.StatsCacheTTL)
	cfg.AttemptsListLimit = envInt("ATTEMPTS_LIST_LIMIT", cfg.AttemptsListLimit)
	cfg.RecentAttemptsLimit = envInt("RECENT_ATTEMPTS_LIMIT", cfg.RecentAttemptsLimit)

	cfg.GeoIPDBPath = envOrDefault("GEOIP_DB_PATH", cfg.GeoIPDBPath)

	cfg.SMTPHost = envOrDefault("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = envInt("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUsername = envOrDefault("SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = envOrDefault("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.SMTPFrom = envOrDefault("SMTP_FROM", cfg.SMTPFrom)
	cfg.SMTPTLSMode = strings.ToLower(envOrDefault("SMTP_TLS_MODE", cfg.SMTPTLSMode))

	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = envOrDefault("KAFKA_TOPIC", cfg.KafkaTopic)

	cfg.OutboxPollInterval = envDuration("OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = envDuration("OUTBOX_CLAIM_TTL", cfg.OutboxClaimTTL)
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	cfg.AdminAPIKey = envOrDefault("ADMIN_API_KEY", cfg.AdminAPIKey)
}

// IsProduction reports whether the service runs in a production environment.
func (c Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

func (c Config) Validate() error {
	if c.IsProduction() && c.OTPReturnToClient {
		return errors.New("otp return_to_client must be disabled in production")
	}
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("missing DB_URL/POSTGRES_URL")
		}
		if c.RedisURL == "" {
			return errors.New("missing REDIS_URL")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.RiskLowThreshold <= 0 || c.RiskLowThreshold > c.RiskMediumThreshold || c.RiskMediumThreshold > 100 {
		return fmt.Errorf("invalid risk thresholds low=%v medium=%v", c.RiskLowThreshold, c.RiskMediumThreshold)
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		return fmt.Errorf("otp length must be between 4 and 10, got %d", c.OTPLength)
	}
	if (c.JWTPrivateKeyPEM == "" || c.JWTPublicKeyPEM == "") && !c.AllowEphemeralJWT {
		return errors.New("missing JWT_PRIVATE_KEY_PEM or JWT_PUBLIC_KEY_PEM")
	}
	if c.IsProduction() && c.SMTPHost == "" {
		return errors.New("smtp host is required in production; otp codes have no other delivery channel")
	}
	if c.SMTPHost != "" && c.SMTPFrom == "" {
		return errors.New("smtp from address is required when smtp host is set")
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

// envDuration accepts Go duration strings such as "90s" or "5m".
func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
