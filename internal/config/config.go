package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ehr/records/internal/domain/location"
	"github.com/ehr/records/internal/platform/db"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	Locale      string `mapstructure:"LOCALE"`

	Zones location.Zones `mapstructure:",squash"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "STORE_DRIVER", "SQLITE_PATH", "DATABASE_URL",
	"DB_MAX_CONNS", "DB_MIN_CONNS", "LOCALE",
	"ZONE_TRIAGE_UUID", "ZONE_SUSPECT_UUID", "ZONE_PROBABLE_UUID", "ZONE_CONFIRMED_UUID",
	"ZONE_MORGUE_UUID", "ZONE_OUTSIDE_UUID", "ZONE_DISCHARGED_UUID",
}

// Load reads configuration from the environment, falling back to a .env file
// in the working directory.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	zones := location.DefaultZones()
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", db.DriverSQLite)
	v.SetDefault("SQLITE_PATH", "records.db")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("ZONE_TRIAGE_UUID", zones.Triage)
	v.SetDefault("ZONE_SUSPECT_UUID", zones.Suspect)
	v.SetDefault("ZONE_PROBABLE_UUID", zones.Probable)
	v.SetDefault("ZONE_CONFIRMED_UUID", zones.Confirmed)
	v.SetDefault("ZONE_MORGUE_UUID", zones.Morgue)
	v.SetDefault("ZONE_OUTSIDE_UUID", zones.Outside)
	v.SetDefault("ZONE_DISCHARGED_UUID", zones.Discharged)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// A missing .env file is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Level parses LOG_LEVEL, defaulting to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Validate rejects settings the store or filters cannot run with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case db.DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER is %q", db.DriverSQLite)
		}
	case db.DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", db.DriverPostgres)
		}
		if c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", db.DriverSQLite, db.DriverPostgres, c.StoreDriver)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if err := c.Zones.Validate(); err != nil {
		return err
	}
	return nil
}
