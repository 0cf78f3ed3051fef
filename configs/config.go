package configs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/i2y/switchboard-mcp/internal/domain"
)

// EnvPrefix is the prefix of every environment variable read into Config.
const EnvPrefix = "switchboard"

// Transport modes.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)

// FileConfig defines the structure loaded from the YAML or TOML configuration file.
// Durations are strings ("30s") so both formats decode them the same way.
type FileConfig struct {
	Transport            string `yaml:"transport" toml:"transport"`
	ListenAddr           string `yaml:"listen_addr" toml:"listen_addr"`
	BaseURL              string `yaml:"base_url" toml:"base_url"`
	CatalogFile          string `yaml:"catalog_file" toml:"catalog_file"`
	HTTPClientTimeout    string `yaml:"http_client_timeout" toml:"http_client_timeout"`
	ShutdownTimeout      string `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	LogLevel             string `yaml:"log_level" toml:"log_level"`
	LogFile              string `yaml:"log_file" toml:"log_file"`
	StrictUpstreamStatus *bool  `yaml:"strict_upstream_status" toml:"strict_upstream_status"`

	Otel struct {
		Endpoint string `yaml:"endpoint" toml:"endpoint"`
		Insecure *bool  `yaml:"insecure" toml:"insecure"`
	} `yaml:"otel" toml:"otel"`

	// Credentials are keyed by security scheme name.
	Credentials map[string]domain.SchemeCredentials `yaml:"credentials" toml:"credentials"`
}

// Config holds the final application configuration, merged from defaults, the
// config file and environment variables (prefix "SWITCHBOARD_"), in that order.
//
// Fields carry no envconfig defaults: envconfig leaves a field untouched when
// its variable is unset, which lets file values survive the second env pass.
type Config struct {
	ConfigFilePath string `envconfig:"CONFIG_FILE"`

	Transport            string        `envconfig:"TRANSPORT"`
	ListenAddr           string        `envconfig:"LISTEN_ADDR"`
	BaseURL              string        `envconfig:"BASE_URL"`
	CatalogFile          string        `envconfig:"CATALOG_FILE"`
	HTTPClientTimeout    time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT"`
	ShutdownTimeout      time.Duration `envconfig:"SHUTDOWN_TIMEOUT"`
	LogLevel             string        `envconfig:"LOG_LEVEL"`
	LogFile              string        `envconfig:"LOG_FILE"`
	StrictUpstreamStatus bool          `envconfig:"STRICT_UPSTREAM_STATUS"`

	OtelExporterOtlpEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE"`

	BasicUsername string `envconfig:"BASIC_USERNAME_HTTPBASIC"`
	BasicPassword string `envconfig:"BASIC_PASSWORD_HTTPBASIC"`

	// File only.
	Credentials map[string]domain.SchemeCredentials `ignored:"true"`
}

// Defaults returns the configuration used when neither file nor env set a value.
func Defaults() Config {
	return Config{
		Transport:                TransportStdio,
		ListenAddr:               ":3000",
		ShutdownTimeout:          5 * time.Second,
		LogLevel:                 "info",
		OtelExporterOtlpInsecure: true,
	}
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// BaseCredentials returns the file credentials plus the shared basic pair,
// ready to be overlaid with per-scheme environment variables.
func (c *Config) BaseCredentials() domain.Credentials {
	creds := domain.Credentials{Schemes: c.Credentials}
	if c.BasicUsername != "" || c.BasicPassword != "" {
		creds.SharedBasic = &domain.BasicCredentials{Username: c.BasicUsername, Password: c.BasicPassword}
	}
	return creds
}

// Validate checks values that cannot be repaired with a default.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportStdio, TransportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport %q (want %s or %s)", c.Transport, TransportStdio, TransportStreamableHTTP)
	}
	if c.HTTPClientTimeout < 0 {
		return fmt.Errorf("http client timeout must not be negative, got %s", c.HTTPClientTimeout)
	}
	return nil
}

// Load builds the configuration: defaults, then the config file named by
// configFile (or SWITCHBOARD_CONFIG_FILE when empty), then environment
// variables, which override file settings.
func Load(configFile string) (*Config, error) {
	cfg := Defaults()

	// 1. Load env first, primarily to find the config file.
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process initial environment variables: %w", err)
	}
	if configFile != "" {
		cfg.ConfigFilePath = configFile
	}

	// 2. Overlay the file, if any.
	if cfg.ConfigFilePath != "" {
		fileCfg, err := readFile(cfg.ConfigFilePath)
		if err != nil {
			return nil, err
		}
		if err := fileCfg.applyTo(&cfg); err != nil {
			return nil, fmt.Errorf("invalid config file '%s': %w", cfg.ConfigFilePath, err)
		}
		slog.Debug("Loaded configuration from file.", "path", cfg.ConfigFilePath)
	}

	// 3. Process environment variables AGAIN so they win over the file.
	path := cfg.ConfigFilePath
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process overriding environment variables: %w", err)
	}
	cfg.ConfigFilePath = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var fileCfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&fileCfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", path, err)
		}
	case ".yaml", ".yml", "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fileCfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
	return &fileCfg, nil
}

func (f *FileConfig) applyTo(cfg *Config) error {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&cfg.Transport, f.Transport)
	setString(&cfg.ListenAddr, f.ListenAddr)
	setString(&cfg.BaseURL, f.BaseURL)
	setString(&cfg.CatalogFile, f.CatalogFile)
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.LogFile, f.LogFile)
	setString(&cfg.OtelExporterOtlpEndpoint, f.Otel.Endpoint)

	if f.StrictUpstreamStatus != nil {
		cfg.StrictUpstreamStatus = *f.StrictUpstreamStatus
	}
	if f.Otel.Insecure != nil {
		cfg.OtelExporterOtlpInsecure = *f.Otel.Insecure
	}

	if f.HTTPClientTimeout != "" {
		d, err := time.ParseDuration(f.HTTPClientTimeout)
		if err != nil {
			return fmt.Errorf("http_client_timeout: %w", err)
		}
		cfg.HTTPClientTimeout = d
	}
	if f.ShutdownTimeout != "" {
		d, err := time.ParseDuration(f.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("shutdown_timeout: %w", err)
		}
		cfg.ShutdownTimeout = d
	}

	if len(f.Credentials) > 0 {
		cfg.Credentials = f.Credentials
	}
	return nil
}
