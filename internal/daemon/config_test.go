package daemon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("TALLY_HOME", t.TempDir())
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 7077 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 7077)
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("Storage.Driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if len(cfg.Scoring.BonusCategories) != 3 {
		t.Errorf("BonusCategories = %v", cfg.Scoring.BonusCategories)
	}
	if cfg.Notifications.MaxPerDay != 5 {
		t.Errorf("Notifications.MaxPerDay = %d, want 5", cfg.Notifications.MaxPerDay)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = DriverPostgres }, "postgres_dsn"},
		{"postgres with dsn", func(c *Config) {
			c.Storage.Driver = DriverPostgres
			c.Storage.PostgresDSN = "postgres://localhost/tally"
		}, ""},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mysql" }, "unknown storage driver"},
		{"bad port", func(c *Config) { c.API.Port = 70000 }, "out of range"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "unknown log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TALLY_HOME", t.TempDir())
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errSub == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("err = %v, want containing %q", err, tt.errSub)
			}
		})
	}
}

func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("TALLY_HOME", home)

	cfg := DefaultConfig()
	cfg.API.Port = 9100
	cfg.Scoring.BonusCategories = []string{"Study"}
	cfg.Notifications.QuietStart = "22:00"
	cfg.Notifications.QuietEnd = "07:30"
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "config.toml")); err != nil {
		t.Fatalf("config.toml not written: %v", err)
	}

	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.API.Port != 9100 {
		t.Errorf("API.Port = %d, want 9100", got.API.Port)
	}
	if len(got.Scoring.BonusCategories) != 1 || got.Scoring.BonusCategories[0] != "Study" {
		t.Errorf("BonusCategories = %v", got.Scoring.BonusCategories)
	}
	if got.Notifications.QuietEnd != "07:30" {
		t.Errorf("QuietEnd = %q", got.Notifications.QuietEnd)
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	t.Setenv("TALLY_HOME", t.TempDir())
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("missing file should yield defaults, got port %d", cfg.API.Port)
	}
}

func TestLoadConfigFile_Malformed(t *testing.T) {
	t.Setenv("TALLY_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[api\nport = "), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFile(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Errorf("err = %v, want parse error", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TALLY_HOME", t.TempDir())
	t.Setenv("TALLY_STORAGE_DRIVER", "POSTGRES")
	t.Setenv("TALLY_POSTGRES_DSN", "postgres://db/tally")
	t.Setenv("TALLY_API_PORT", "8088")
	t.Setenv("TALLY_DEBUG", "true")

	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Storage.Driver != DriverPostgres || cfg.Storage.PostgresDSN != "postgres://db/tally" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.API.Port != 8088 {
		t.Errorf("port = %d, want 8088", cfg.API.Port)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Errorf("logging = %+v, want debug on console", cfg.Logging)
	}
}

func TestEnvOverrides_BadPort(t *testing.T) {
	t.Setenv("TALLY_HOME", t.TempDir())
	t.Setenv("TALLY_API_PORT", "http")
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "config.toml")); err == nil {
		t.Error("expected error for non-numeric TALLY_API_PORT")
	}
}

func TestDotEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("TALLY_HOME", home)
	t.Setenv("TALLY_API_PORT", "")
	if err := os.WriteFile(filepath.Join(home, ".env"), []byte("TALLY_LOG_LEVEL=warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("TALLY_LOG_LEVEL") })

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q, want warn from .env", cfg.Logging.Level)
	}
}
