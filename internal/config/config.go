package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	JWTSecret      string        `env:"JWT_SECRET,required,notEmpty"`
	MaxDeviceCount int           `env:"MAX_DEVICE_COUNT" envDefault:"3"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"0s"`

	ResetTokenTTL        time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`
	ResetLinkBaseURL     string        `env:"RESET_LINK_BASE_URL" envDefault:"http://localhost:8080"`
	ResetRevokesSessions bool          `env:"RESET_REVOKES_SESSIONS" envDefault:"false"`

	AllowOrigins    []string `env:"ALLOW_ORIGINS" envDefault:"*" envSeparator:","`
	LogFormat       string   `env:"LOG_FORMAT" envDefault:"json"`
	LogstashTCPAddr string   `env:"LOGSTASH_TCP_ADDR"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`

	GoogleAudience string `env:"GOOGLE_AUDIENCE"`
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn(".env file not loaded", "error", err)
	}
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.AllowOrigins = trimAll(cfg.AllowOrigins)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StorePostgres, StoreMemory, c.StoreDriver))
	}
	if c.MaxDeviceCount <= 0 {
		errs = append(errs, fmt.Errorf("MAX_DEVICE_COUNT must be positive, got %d", c.MaxDeviceCount))
	}
	if c.SessionTTL < 0 || c.ResetTokenTTL < 0 {
		errs = append(errs, errors.New("token TTLs must not be negative"))
	}
	return errors.Join(errs...)
}

func (c Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
