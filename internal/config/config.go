package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"
)

const defaultConfigPath = "config.yaml"

type OIDCProviderConfig struct {
	Id           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	IssuerURL    string   `yaml:"issuer_url"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
}

type StorageConfig struct {
	// Driver is one of bolt, sqlite, postgres or memory.
	Driver string `yaml:"driver"`
	// Path is the database file for bolt and sqlite.
	Path string `yaml:"path"`
	DSN  string `yaml:"dsn"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type NudgeConfig struct {
	ResendAPIKey string `yaml:"resend_api_key"`
	Email        string `yaml:"email"`
	From         string `yaml:"from"`
	// Schedule is a cron expression used by `habits nudge --schedule`.
	Schedule string `yaml:"schedule"`
}

type Config struct {
	ListenAddr    string               `yaml:"listen_addr"`
	APIBaseURL    string               `yaml:"api_base_url"`
	AuthEnabled   bool                 `yaml:"auth_enabled"`
	JWTSecret     string               `yaml:"jwt_secret"`
	OIDCProviders []OIDCProviderConfig `yaml:"oidc_providers"`
	Storage       StorageConfig        `yaml:"storage"`
	CORS          CORSConfig           `yaml:"cors"`
	Log           LogConfig            `yaml:"log"`
	LookbackDays  int                  `yaml:"lookback_days"`
	// Timezone names the location whose calendar defines the logical day.
	Timezone string      `yaml:"timezone"`
	Nudge    NudgeConfig `yaml:"nudge"`

	// AuthToken is the CLI's bearer token when none is in the keyring.
	AuthToken string `yaml:"-"`
}

func defaults() Config {
	return Config{
		ListenAddr:   ":8080",
		APIBaseURL:   "http://localhost:8080",
		Storage:      StorageConfig{Driver: "bolt", Path: "habits.db"},
		Log:          LogConfig{Level: "info", Format: "text"},
		LookbackDays: 30,
		Timezone:     "UTC",
		Nudge:        NudgeConfig{Schedule: "0 20 * * *"},
	}
}

// Load reads the YAML file named by HABITS_CONFIG (default config.yaml),
// then applies HABITS_* environment overrides. A .env file in the working
// directory is loaded first when present. Naming a config file that does
// not exist is an error; a missing default file is not.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := defaults()

	path, explicit := os.LookupEnv("HABITS_CONFIG")
	if !explicit || path == "" {
		path = defaultConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// fillDefaults restores defaults for fields a config file set to empty.
func (c *Config) fillDefaults() {
	def := defaults()
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = def.APIBaseURL
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = def.Storage.Driver
	}
	if c.Storage.Path == "" && c.Storage.Driver == def.Storage.Driver {
		c.Storage.Path = def.Storage.Path
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.LookbackDays == 0 {
		c.LookbackDays = def.LookbackDays
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.Nudge.Schedule == "" {
		c.Nudge.Schedule = def.Nudge.Schedule
	}
}

func applyEnv(cfg *Config) error {
	cfg.ListenAddr = getenv("HABITS_LISTEN_ADDR", cfg.ListenAddr)
	cfg.APIBaseURL = getenv("HABITS_API_BASE", cfg.APIBaseURL)
	cfg.AuthToken = getenv("HABITS_AUTH_TOKEN", cfg.AuthToken)
	cfg.JWTSecret = getenv("HABITS_JWT_SECRET", cfg.JWTSecret)
	cfg.Storage.Driver = getenv("HABITS_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Path = getenv("HABITS_DB_PATH", cfg.Storage.Path)
	cfg.Storage.DSN = getenv("HABITS_DATABASE_URL", cfg.Storage.DSN)
	cfg.Log.Level = getenv("HABITS_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenv("HABITS_LOG_FORMAT", cfg.Log.Format)
	cfg.Log.File = getenv("HABITS_LOG_FILE", cfg.Log.File)
	cfg.Timezone = getenv("HABITS_TIMEZONE", cfg.Timezone)
	cfg.Nudge.ResendAPIKey = getenv("RESEND_API_KEY", cfg.Nudge.ResendAPIKey)
	cfg.Nudge.Email = getenv("HABITS_NUDGE_EMAIL", cfg.Nudge.Email)
	cfg.Nudge.From = getenv("HABITS_NUDGE_FROM", cfg.Nudge.From)
	cfg.Nudge.Schedule = getenv("HABITS_NUDGE_SCHEDULE", cfg.Nudge.Schedule)

	if v := os.Getenv("HABITS_CORS_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("HABITS_AUTH_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid HABITS_AUTH_ENABLED: %w", err)
		}
		cfg.AuthEnabled = b
	}
	if v := os.Getenv("HABITS_LOOKBACK_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HABITS_LOOKBACK_DAYS: %w", err)
		}
		cfg.LookbackDays = n
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "bolt", "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the %s driver", c.Storage.Driver)
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	if c.LookbackDays < 0 {
		return errors.New("lookback_days must not be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	seen := make(map[string]bool, len(c.OIDCProviders))
	for _, p := range c.OIDCProviders {
		if p.Id == "" || p.IssuerURL == "" {
			return errors.New("oidc providers need an id and issuer_url")
		}
		if seen[p.Id] {
			return fmt.Errorf("duplicate oidc provider %q", p.Id)
		}
		seen[p.Id] = true
	}
	return nil
}

// Location returns the timezone the logical day is taken in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
