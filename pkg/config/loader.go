package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// ServerConfig configures the demo host in examples/keycloak.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `mapstructure:"addr"`
	// BaseURL is the externally reachable URL of the host.
	BaseURL string `mapstructure:"base_url"`
	// PlatformBaseURLs maps a platform ID to its own external URL.
	PlatformBaseURLs map[string]string `mapstructure:"platform_base_urls"`
	Log              LogConfig         `mapstructure:"log"`
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NewLogger builds a zerolog logger writing to w. Format "console" or
// "pretty" selects human readable output; anything else writes JSON.
func (c LogConfig) NewLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || c.Level == "" {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	switch strings.ToLower(c.Format) {
	case "console", "pretty":
		zl = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
	default:
		zl = zerolog.New(w)
	}
	return zl.Level(level).With().Timestamp().Logger()
}

// ApplyDefaults fills zero-valued fields.
func (c *ServerConfig) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks required fields.
func (c *ServerConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	return nil
}

// LoaderConfig holds optional file overrides for Load.
type LoaderConfig struct {
	ConfigFile string
	EnvFile    string
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithConfigFile sets an explicit YAML config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load reads the optional .env and YAML files, binds the environment and
// returns a viper instance. Environment variables win over the YAML file;
// nested keys map to UPPER_SNAKE names (log.level -> LOG_LEVEL).
func Load(opts ...LoaderOption) (*viper.Viper, error) {
	lc := LoaderConfig{EnvFile: ".env"}
	for _, opt := range opts {
		opt(&lc)
	}

	if lc.EnvFile != "" {
		if err := godotenv.Load(lc.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", lc.EnvFile, err)
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if lc.ConfigFile != "" {
		if _, err := os.Stat(lc.ConfigFile); err != nil {
			return nil, fmt.Errorf("config file %s: %w", lc.ConfigFile, err)
		}
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", lc.ConfigFile, err)
		}
	}

	return v, nil
}

// LoadServerConfig unmarshals the demo host configuration from v.
func LoadServerConfig(v *viper.Viper) (*ServerConfig, error) {
	// Unmarshal only sees env values for keys viper already knows about.
	for _, key := range []string{"addr", "base_url", "log.level", "log.format"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal server config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
