// Package daemon manages the tally configuration and service lifecycle.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/tutu-network/tally/internal/app/engagement"
	"github.com/tutu-network/tally/internal/domain"
	"github.com/tutu-network/tally/internal/infra/logging"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all daemon configuration.
type Config struct {
	Storage       StorageConfig             `toml:"storage"`
	API           APIConfig                 `toml:"api"`
	Scoring       ScoringConfig             `toml:"scoring"`
	Notifications domain.NotificationPolicy `toml:"notifications"`
	Telemetry     TelemetryConfig           `toml:"telemetry"`
	Logging       logging.Config            `toml:"logging"`
}

// StorageConfig selects and locates the store.
type StorageConfig struct {
	Driver      string `toml:"driver"` // sqlite or postgres
	Dir         string `toml:"dir"`
	PostgresDSN string `toml:"postgres_dsn"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host      string   `toml:"host"`
	Port      int      `toml:"port"`
	RateLimit float64  `toml:"rate_limit"` // mutating requests per second, 0 disables
	RateBurst int      `toml:"rate_burst"`
	CORS      []string `toml:"cors_origins"`
}

// ScoringConfig tunes point awards.
type ScoringConfig struct {
	BonusCategories []string `toml:"bonus_categories"`
}

// TelemetryConfig controls the metrics endpoint.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	home := tallyHome()
	return Config{
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Dir:    home,
		},
		API: APIConfig{
			Host:      "127.0.0.1",
			Port:      7077,
			RateLimit: 10,
			RateBurst: 20,
			CORS:      []string{"*"},
		},
		Scoring: ScoringConfig{
			BonusCategories: append([]string(nil), engagement.DefaultBonusCategories...),
		},
		Notifications: domain.DefaultNotificationPolicy(),
		Telemetry:     TelemetryConfig{Prometheus: true},
		Logging:       logging.DefaultConfig(home),
	}
}

// Validate rejects configurations the daemon cannot start with.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Dir == "" {
			return errors.New("storage.dir is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// LoadConfig reads $TALLY_HOME/config.toml, falling back to defaults, and
// applies .env files and TALLY_* environment overrides.
func LoadConfig() (Config, error) {
	loadDotEnv()
	return LoadConfigFile(ConfigPath())
}

// LoadConfigFile reads the config at path. A missing file yields defaults.
// Environment overrides are applied either way.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("stat config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// SaveConfig writes cfg to $TALLY_HOME/config.toml.
func SaveConfig(cfg Config) error {
	return SaveConfigFile(ConfigPath(), cfg)
}

// SaveConfigFile writes cfg to path, creating parent directories.
func SaveConfigFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// loadDotEnv loads $TALLY_HOME/.env and ./.env. Variables already set in
// the environment win, and missing files are ignored.
func loadDotEnv() {
	for _, p := range []string{filepath.Join(tallyHome(), ".env"), ".env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// applyEnv overlays TALLY_* variables on cfg.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("TALLY_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("TALLY_DATABASE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("TALLY_POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("TALLY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if debug, _ := strconv.ParseBool(os.Getenv("TALLY_DEBUG")); debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Console = true
	}
	if v := os.Getenv("TALLY_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TALLY_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}
	return nil
}

// ConfigPath returns the location of config.toml.
func ConfigPath() string {
	return filepath.Join(tallyHome(), "config.toml")
}

// tallyHome returns the tally data directory.
func tallyHome() string {
	if env := os.Getenv("TALLY_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tally")
}

// Home is exported for use by other packages.
func Home() string {
	return tallyHome()
}
