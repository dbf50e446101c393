package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`

	Port string `mapstructure:"port" yaml:"port"`
}

type DownloadConfig struct {
	OutDir         string            `mapstructure:"out_dir" yaml:"out_dir"`
	Concurrency    int               `mapstructure:"concurrency" yaml:"concurrency"`
	MaxRedirects   int               `mapstructure:"max_redirects" yaml:"max_redirects"`
	RequestTimeout time.Duration     `mapstructure:"request_timeout" yaml:"request_timeout"`
	Proxy          string            `mapstructure:"proxy" yaml:"proxy"`
	UserAgent      string            `mapstructure:"user_agent" yaml:"user_agent"`
	Headers        map[string]string `mapstructure:"headers" yaml:"headers"`
	RateLimit      float64           `mapstructure:"rate_limit" yaml:"rate_limit"`
	SavePlaylist   bool              `mapstructure:"save_playlist" yaml:"save_playlist"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

type StoreConfig struct {
	Driver      string `mapstructure:"driver" yaml:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"out-dir":       "download.out_dir",
	"concurrency":   "download.concurrency",
	"max-redirects": "download.max_redirects",
	"timeout":       "download.request_timeout",
	"proxy":         "download.proxy",
	"user-agent":    "download.user_agent",
	"rate-limit":    "download.rate_limit",
	"save-playlist": "download.save_playlist",
	"log-level":     "log.level",
	"log-path":      "log.path",
	"store":         "store.driver",
	"port":          "port",
}

// Load reads the YAML file at path (optional when empty), then GOHLS_* env vars,
// then any flags from flags that were explicitly set.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	path, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// Support Environment Variables
	v.SetEnvPrefix("GOHLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("download.out_dir", "./data")
	v.SetDefault("download.concurrency", 8)
	v.SetDefault("download.max_redirects", 10)
	v.SetDefault("download.request_timeout", "0s")
	v.SetDefault("download.proxy", "")
	v.SetDefault("download.user_agent", "gohls/1.0")
	v.SetDefault("download.rate_limit", 0)
	v.SetDefault("download.save_playlist", true)
	v.SetDefault("log.path", "gohls.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "./data/gohls.db")
	v.SetDefault("store.postgres_dsn", "")
}

// resolvePath returns "" when no file should be read. An explicit path must exist.
func resolvePath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file not found: %s", path)
		}
		return path, nil
	}

	// FALLBACK: local config.yaml, then the Docker mount point
	for _, candidate := range []string{"config.yaml", "/config/config.yaml"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", nil
}

func (c *Config) validate() error {
	if c.Download.Concurrency < 1 {
		return fmt.Errorf("download.concurrency must be at least 1, got %d", c.Download.Concurrency)
	}

	if c.Download.MaxRedirects < 0 {
		return errors.New("download.max_redirects cannot be negative")
	}

	if c.Download.RequestTimeout < 0 {
		return errors.New("download.request_timeout cannot be negative")
	}

	if c.Download.RateLimit < 0 {
		return errors.New("download.rate_limit cannot be negative")
	}

	if c.Download.Proxy != "" {
		u, err := url.Parse(c.Download.Proxy)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("download.proxy is not a valid url: %q", c.Download.Proxy)
		}
	}

	if c.Download.OutDir == "" {
		c.Download.OutDir = "./data"
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return errors.New("store.postgres_dsn is required for the postgres driver")
		}
	case "none", "":
		c.Store.Driver = "none"
	default:
		return fmt.Errorf("unknown store.driver %q (expected sqlite, postgres or none)", c.Store.Driver)
	}

	return nil
}
