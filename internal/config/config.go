package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultPublicBaseURL   = "http://127.0.0.1:8080"
	DefaultJWTExpiresIn    = "24h"
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "courier"
	DefaultPGSSLMode       = "disable"
	DefaultGraphBaseURL    = "https://graph.facebook.com"
	DefaultGraphAPIVersion = "v19.0"
	DefaultFetchTimeout    = "30s"
	DefaultDataRoot        = "data"
	DefaultSignedURLTTL    = "24h"
	DefaultSweepSchedule   = "17 * * * *"
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Postgres PostgresConfig `toml:"postgres"`
	Provider ProviderConfig `toml:"provider"`
	Storage  StorageConfig  `toml:"storage"`
	Sweep    SweepConfig    `toml:"sweep"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
	// PublicBaseURL is the externally reachable base used to mint signed
	// media URLs (scheme + host, no trailing slash).
	PublicBaseURL string `toml:"public_base_url" validate:"required,url"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret" validate:"required"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// DSN renders the pgx connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// ProviderConfig points at the upstream messaging provider's Graph API.
type ProviderConfig struct {
	BaseURL      string `toml:"base_url" validate:"required,url"`
	APIVersion   string `toml:"api_version"`
	FetchTimeout string `toml:"fetch_timeout"`
}

// FetchTimeoutDuration parses the configured media fetch timeout.
func (c ProviderConfig) FetchTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.FetchTimeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultFetchTimeout)
	}
	return d
}

type StorageConfig struct {
	DataRoot     string `toml:"data_root"`
	SignedURLTTL string `toml:"signed_url_ttl"`
}

// SignedURLTTLDuration parses the signed URL lifetime.
func (c StorageConfig) SignedURLTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.SignedURLTTL)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultSignedURLTTL)
	}
	return d
}

// SweepConfig controls the background signed-URL refresh job.
type SweepConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"`
	// MaxURLAge marks descriptors whose URL is older than this for re-signing.
	MaxURLAge string `toml:"max_url_age"`
}

// MaxURLAgeDuration parses the re-sign threshold. Defaults to 23h so URLs
// are renewed before the 24h signature expires.
func (c SweepConfig) MaxURLAgeDuration() time.Duration {
	d, err := time.ParseDuration(c.MaxURLAge)
	if err != nil || d <= 0 {
		return 23 * time.Hour
	}
	return d
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:          DefaultHTTPAddr,
			PublicBaseURL: DefaultPublicBaseURL,
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Provider: ProviderConfig{
			BaseURL:      DefaultGraphBaseURL,
			APIVersion:   DefaultGraphAPIVersion,
			FetchTimeout: DefaultFetchTimeout,
		},
		Storage: StorageConfig{
			DataRoot:     DefaultDataRoot,
			SignedURLTTL: DefaultSignedURLTTL,
		},
		Sweep: SweepConfig{
			Schedule: DefaultSweepSchedule,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the fields the pipeline cannot run without.
func (c Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := v.Struct(c.Auth); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}
	if err := v.Struct(c.Provider); err != nil {
		return fmt.Errorf("provider config: %w", err)
	}
	return nil
}
