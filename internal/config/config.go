package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "PRINT_GATEWAY"

// Printer backends.
const (
	BackendLP      = "lp"
	BackendSpooler = "spooler"
)

// Conversion modes.
const (
	ConvertAuto = "auto"
	ConvertEMF  = "emf"
	ConvertNone = "none"
)

type Config struct {
	Server struct {
		Host         string        `mapstructure:"host"`
		Port         int           `mapstructure:"port"`
		Mode         string        `mapstructure:"mode"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"server"`

	Auth struct {
		Secret   string `mapstructure:"secret"`
		Security bool   `mapstructure:"security"`
	} `mapstructure:"auth"`

	Redis struct {
		URL      string `mapstructure:"url"`
		PoolSize int    `mapstructure:"pool_size"`
	} `mapstructure:"redis"`

	Printing struct {
		Backend string `mapstructure:"backend"`
		Convert string `mapstructure:"convert"`
		LP      struct {
			LPBin     string `mapstructure:"lp_bin"`
			LPStatBin string `mapstructure:"lpstat_bin"`
		} `mapstructure:"lp"`
		ImageMagick struct {
			Bin     string `mapstructure:"bin"`
			Density int    `mapstructure:"density"`
		} `mapstructure:"imagemagick"`
		Spooler struct {
			BaseURL string        `mapstructure:"base_url"`
			Token   string        `mapstructure:"token"`
			Timeout time.Duration `mapstructure:"timeout"`
		} `mapstructure:"spooler"`
	} `mapstructure:"printing"`

	Observability struct {
		TraceEnabled       bool   `mapstructure:"trace_enabled"`
		TracingEndpointURL string `mapstructure:"tracing_endpoint_url"`
		LogLevel           string `mapstructure:"log_level"`
		Format             string `mapstructure:"log_format"`
		LogSource          bool   `mapstructure:"log_source"`
	} `mapstructure:"observability"`
}

// Addr is the listen address built from host and port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.security", false)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("printing.backend", BackendLP)
	v.SetDefault("printing.convert", ConvertAuto)
	v.SetDefault("printing.lp.lp_bin", "lp")
	v.SetDefault("printing.lp.lpstat_bin", "lpstat")
	v.SetDefault("printing.imagemagick.bin", "magick")
	v.SetDefault("printing.imagemagick.density", 300)
	v.SetDefault("printing.spooler.base_url", "")
	v.SetDefault("printing.spooler.token", "")
	v.SetDefault("printing.spooler.timeout", time.Minute)

	v.SetDefault("observability.trace_enabled", false)
	v.SetDefault("observability.tracing_endpoint_url", "")
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "json")
	v.SetDefault("observability.log_source", false)
}

// Load reads config.yaml from ./config or the working directory, merges an
// optional config.<APP_ENV>.yaml overlay and applies PRINT_GATEWAY_* env
// overrides. A missing base file is tolerated so the service can run from
// environment variables alone.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	logger := slog.Default()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logger.Info("No config file found, using defaults and environment")
	}

	if env := os.Getenv("APP_ENV"); env != "" {
		v.SetConfigName(fmt.Sprintf("config.%s", env))
		if err := v.MergeInConfig(); err != nil {
			logger.Info("No environment-specific config (optional)", slog.String("env", env))
		} else {
			logger.Info("Environment-specific config loaded", slog.String("env", env))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		slog.Default().Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Auth.Secret == "" {
		return errors.New("auth.secret is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	switch c.Printing.Backend {
	case BackendLP:
	case BackendSpooler:
		if c.Printing.Spooler.BaseURL == "" {
			return errors.New("printing.spooler.base_url is required for the spooler backend")
		}
	default:
		return fmt.Errorf("printing.backend must be %q or %q, got %q", BackendLP, BackendSpooler, c.Printing.Backend)
	}

	switch c.Printing.Convert {
	case ConvertAuto, ConvertEMF, ConvertNone:
	default:
		return fmt.Errorf("printing.convert must be auto, emf or none, got %q", c.Printing.Convert)
	}

	return nil
}
