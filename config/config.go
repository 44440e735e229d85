// Package config loads the server configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	Port          int      `yaml:"port"`
	DBPath        string   `yaml:"db_path"`
	PaymentSecret string   `yaml:"payment_secret"`
	AuthSecret    string   `yaml:"auth_secret"`
	CORSOrigins   []string `yaml:"cors_origins"`

	// SignupBonus is credited to every new wallet. Zero disables it.
	SignupBonus int64 `yaml:"signup_bonus"`

	// Timezone is the local zone for the once-daily spin rule
	// (calendar-day comparison, not a rolling 24h window).
	Timezone string `yaml:"timezone"`

	LogLevel string `yaml:"log_level"`
}

func defaultConfig() *Config {
	return &Config{
		Port:        8080,
		DBPath:      "coin-engine.db",
		CORSOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		Timezone:    "Asia/Kolkata",
		LogLevel:    "info",
	}
}

// Load reads path (if it exists), then applies environment overrides:
// PORT, DB_PATH, PAYMENT_SECRET, AUTH_SECRET, TIMEZONE, LOG_LEVEL.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// File is optional; env and defaults apply.
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = p
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("PAYMENT_SECRET"); v != "" {
		cfg.PaymentSecret = v
	}
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		cfg.AuthSecret = v
	}
	if v := os.Getenv("SIGNUP_BONUS"); v != "" {
		b, err := strconv.ParseInt(v, 10, 64)
		if err != nil || b < 0 {
			return nil, fmt.Errorf("invalid SIGNUP_BONUS %q", v)
		}
		cfg.SignupBonus = b
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
