package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo MongoConfig
	Redis RedisConfig
	Auth  AuthConfig
	Risk  RiskConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=talentbridge_auth"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type AuthConfig struct {
	TokenTTL         time.Duration `env:"TOKEN_TTL,            default=24h"`
	ExtendedTokenTTL time.Duration `env:"EXTENDED_TOKEN_TTL,   default=720h"`
	ResetTokenTTL    time.Duration `env:"RESET_TOKEN_TTL,      default=1h"`
	MaxLoginAttempts int           `env:"MAX_LOGIN_ATTEMPTS,   default=5"`
	LockDuration     time.Duration `env:"LOCK_DURATION,        default=15m"`
	MaxSessions      int           `env:"MAX_SESSIONS,         default=10"`
	SessionWindow    time.Duration `env:"SESSION_ACTIVE_WINDOW, default=24h"`
	// RequireSessionOnRefresh closes the stateless-refresh gap for hardened
	// deployments: a revoked session's token is then no longer refreshable.
	RequireSessionOnRefresh bool          `env:"AUTH_REQUIRE_SESSION_ON_REFRESH, default=false"`
	LoginRateLimit          int           `env:"LOGIN_RATE_LIMIT,   default=20"`
	LoginRateWindow         time.Duration `env:"LOGIN_RATE_WINDOW,  default=1m"`
}

type RiskConfig struct {
	Window              time.Duration `env:"RISK_WINDOW,               default=24h"`
	ReportWindow        time.Duration `env:"ANALYTICS_REPORT_WINDOW,   default=720h"`
	SuspiciousWindow    time.Duration `env:"ANALYTICS_SUSPICIOUS_WINDOW, default=168h"`
	MaxNetworks         int           `env:"RISK_MAX_NETWORKS,         default=3"`
	MaxDevices          int           `env:"RISK_MAX_DEVICES,          default=2"`
	SuspiciousThreshold int           `env:"RISK_SUSPICIOUS_THRESHOLD, default=50"`
}

// Load reads configuration from environment variables and validates it.
// Validation happens here, at process start, so a missing signing secret
// kills the process before it can serve a single request.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the settings that have no safe default.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	return nil
}
