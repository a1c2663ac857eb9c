package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Transport values for ServiceConfig.Transport.
const (
	TransportSync  = "sync"
	TransportAsync = "async"
)

// Archive providers for ArchiveConfig.Provider.
const (
	ArchiveNoop = "noop"
	ArchiveS3   = "s3"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Service ServiceConfig
	CORS    CORSConfig
	Archive ArchiveConfig
	History HistoryConfig
}

// ServerConfig holds desk HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`

	// SessionIdleTimeout closes sessions with no requests and no event
	// stream for this long. Zero disables expiry.
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
}

// ServiceConfig points the client at the remote analysis service.
type ServiceConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Transport    string        `mapstructure:"transport"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ArchiveConfig holds settings for the saved-example snapshot archive.
type ArchiveConfig struct {
	Provider      string `mapstructure:"provider"`
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Prefix        string `mapstructure:"prefix"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// HistoryConfig holds intake history listing settings.
type HistoryConfig struct {
	Limit int `mapstructure:"limit"`
}

// Load reads configuration from environment variables with the SCANDESK_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCANDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8088")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.session_idle_timeout", "30m")

	// Analysis service defaults
	v.SetDefault("service.base_url", "http://127.0.0.1:8000")
	v.SetDefault("service.transport", TransportSync)
	v.SetDefault("service.poll_interval", "2s")

	// CORS defaults (local UI dev servers)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Archive defaults
	v.SetDefault("archive.provider", ArchiveNoop)
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.bucket", "scandesk-samples")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.prefix", "cv_samples")
	v.SetDefault("archive.presign_expiry", 3600)

	// History defaults
	v.SetDefault("history.limit", 50)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                 "SCANDESK_SERVER_PORT",
		"server.read_timeout":         "SCANDESK_SERVER_READ_TIMEOUT",
		"server.write_timeout":        "SCANDESK_SERVER_WRITE_TIMEOUT",
		"server.environment":          "SCANDESK_SERVER_ENVIRONMENT",
		"server.session_idle_timeout": "SCANDESK_SERVER_SESSION_IDLE_TIMEOUT",
		"service.base_url":            "SCANDESK_SERVICE_BASE_URL",
		"service.transport":           "SCANDESK_SERVICE_TRANSPORT",
		"service.poll_interval":       "SCANDESK_SERVICE_POLL_INTERVAL",
		"cors.allowed_origins":        "SCANDESK_CORS_ALLOWED_ORIGINS",
		"archive.provider":            "SCANDESK_ARCHIVE_PROVIDER",
		"archive.region":              "SCANDESK_ARCHIVE_REGION",
		"archive.bucket":              "SCANDESK_ARCHIVE_BUCKET",
		"archive.endpoint":            "SCANDESK_ARCHIVE_ENDPOINT",
		"archive.access_key":          "SCANDESK_ARCHIVE_ACCESS_KEY",
		"archive.secret_key":          "SCANDESK_ARCHIVE_SECRET_KEY",
		"archive.prefix":              "SCANDESK_ARCHIVE_PREFIX",
		"archive.presign_expiry":      "SCANDESK_ARCHIVE_PRESIGN_EXPIRY",
		"history.limit":               "SCANDESK_HISTORY_LIMIT",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Hosting platforms set a PORT env var. Use it if SCANDESK_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("SCANDESK_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),

		SessionIdleTimeout: v.GetDuration("server.session_idle_timeout"),
	}
	if cfg.Server.SessionIdleTimeout < 0 {
		return nil, fmt.Errorf("server.session_idle_timeout must not be negative")
	}

	cfg.Service = ServiceConfig{
		BaseURL:      strings.TrimRight(v.GetString("service.base_url"), "/"),
		Transport:    strings.ToLower(v.GetString("service.transport")),
		PollInterval: v.GetDuration("service.poll_interval"),
	}
	if cfg.Service.BaseURL == "" {
		return nil, fmt.Errorf("service.base_url must not be empty")
	}
	if cfg.Service.Transport != TransportSync && cfg.Service.Transport != TransportAsync {
		return nil, fmt.Errorf("service.transport must be %q or %q, got %q", TransportSync, TransportAsync, cfg.Service.Transport)
	}
	if cfg.Service.PollInterval <= 0 {
		return nil, fmt.Errorf("service.poll_interval must be positive")
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Archive = ArchiveConfig{
		Provider:      strings.ToLower(v.GetString("archive.provider")),
		Region:        v.GetString("archive.region"),
		Bucket:        v.GetString("archive.bucket"),
		Endpoint:      v.GetString("archive.endpoint"),
		AccessKey:     v.GetString("archive.access_key"),
		SecretKey:     v.GetString("archive.secret_key"),
		Prefix:        strings.Trim(v.GetString("archive.prefix"), "/"),
		PresignExpiry: v.GetInt64("archive.presign_expiry"),
	}
	if cfg.Archive.Provider != ArchiveNoop && cfg.Archive.Provider != ArchiveS3 {
		return nil, fmt.Errorf("archive.provider must be %q or %q, got %q", ArchiveNoop, ArchiveS3, cfg.Archive.Provider)
	}

	cfg.History = HistoryConfig{
		Limit: v.GetInt("history.limit"),
	}
	if cfg.History.Limit <= 0 {
		cfg.History.Limit = 50
	}

	return cfg, nil
}
