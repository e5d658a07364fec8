// Package config loads settings for the trgovina binaries.
//
// Priority, highest first:
//  1. command-line flags bound with FlagKey
//  2. environment variables with the TRGOVINA_ prefix (TRGOVINA_JWT_SECRET)
//  3. .env in the working directory
//  4. trgovina.yaml in ., the user config dir or /etc/trgovina
//  5. built-in defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/erazemk/trgovina/internal/logging"
)

// Config is the full configuration surface of both binaries.
type Config struct {
	Server    ServerConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Scheduler SchedulerConfig
	Log       logging.Config
	Client    ClientConfig
	Scanner   ScannerConfig
	POS       POSConfig
}

type ServerConfig struct {
	Addr      string
	DB        string
	AdminUser string
}

// JWTConfig holds token settings. An empty secret makes the server use the
// one stored in its database.
type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthConfig limits login attempts per client IP.
type AuthConfig struct {
	LoginRate  float64 // attempts per second
	LoginBurst int
}

type SchedulerConfig struct {
	Enabled   bool
	StockSpec string
}

type ClientConfig struct {
	BaseURL     string
	Timeout     time.Duration
	SessionFile string
}

type ScannerConfig struct {
	MaxKeyInterval time.Duration
	MinLength      int
}

type POSConfig struct {
	SearchDebounce time.Duration
}

// FlagKey binds a command-line flag to a config key.
type FlagKey struct {
	Flag string
	Key  string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.db", "trgovina.sqlite3")
	v.SetDefault("server.admin_user", "admin")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)

	v.SetDefault("auth.login_rate", 0.2)
	v.SetDefault("auth.login_burst", 5)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.stock_spec", "@every 15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("client.base_url", "http://localhost:8080/api")
	v.SetDefault("client.timeout", 15*time.Second)
	v.SetDefault("client.session_file", "")

	v.SetDefault("scanner.max_key_interval", 50*time.Millisecond)
	v.SetDefault("scanner.min_length", 4)

	v.SetDefault("pos.search_debounce", 300*time.Millisecond)
}

// Load reads the configuration. file, when set, replaces the config file
// search. fs may be nil.
func Load(file string, fs *pflag.FlagSet, flags ...FlagKey) (*Config, error) {
	// A missing .env is fine; configuration may come from the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("trgovina")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "trgovina"))
		}
		v.AddConfigPath("/etc/trgovina")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("TRGOVINA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for _, fk := range flags {
			f := fs.Lookup(fk.Flag)
			if f == nil {
				return nil, fmt.Errorf("unknown flag %q", fk.Flag)
			}
			if err := v.BindPFlag(fk.Key, f); err != nil {
				return nil, fmt.Errorf("binding flag %q: %w", fk.Flag, err)
			}
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:      v.GetString("server.addr"),
			DB:        v.GetString("server.db"),
			AdminUser: v.GetString("server.admin_user"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			AccessTTL:  v.GetDuration("jwt.access_ttl"),
			RefreshTTL: v.GetDuration("jwt.refresh_ttl"),
		},
		Auth: AuthConfig{
			LoginRate:  v.GetFloat64("auth.login_rate"),
			LoginBurst: v.GetInt("auth.login_burst"),
		},
		Scheduler: SchedulerConfig{
			Enabled:   v.GetBool("scheduler.enabled"),
			StockSpec: v.GetString("scheduler.stock_spec"),
		},
		Log: logging.Config{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   v.GetString("log.file"),
		},
		Client: ClientConfig{
			BaseURL:     v.GetString("client.base_url"),
			Timeout:     v.GetDuration("client.timeout"),
			SessionFile: v.GetString("client.session_file"),
		},
		Scanner: ScannerConfig{
			MaxKeyInterval: v.GetDuration("scanner.max_key_interval"),
			MinLength:      v.GetInt("scanner.min_length"),
		},
		POS: POSConfig{
			SearchDebounce: v.GetDuration("pos.search_debounce"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later and obscurely.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("jwt.access_ttl must be positive")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("jwt.refresh_ttl must be longer than jwt.access_ttl")
	}
	if c.Auth.LoginRate <= 0 || c.Auth.LoginBurst < 1 {
		return errors.New("auth.login_rate and auth.login_burst must be positive")
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Scanner.MaxKeyInterval <= 0 || c.Scanner.MinLength < 1 {
		return errors.New("scanner.max_key_interval and scanner.min_length must be positive")
	}
	if c.POS.SearchDebounce < 0 {
		return errors.New("pos.search_debounce cannot be negative")
	}
	if c.Client.BaseURL == "" {
		return errors.New("client.base_url must be set")
	}
	return nil
}
