package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is everything a clinic install can tune. Values come from
// defaults, an optional .env file next to the binary, and MUELITA_*
// environment variables, in that order of precedence.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Clinic     ClinicConfig     `mapstructure:"clinic"`
	Clinical   ClinicalConfig   `mapstructure:"clinical"`
	Migrations MigrationsConfig `mapstructure:"migrations"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type AuthConfig struct {
	Mode      string        `mapstructure:"mode"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type ClinicConfig struct {
	Name    string `mapstructure:"name"`
	Country string `mapstructure:"country"`
}

type ClinicalConfig struct {
	DefaultScheme    string `mapstructure:"default_scheme"`
	PerioLayout      string `mapstructure:"perio_layout"`
	ExtendedStatuses bool   `mapstructure:"extended_statuses"`
	IdentifierFormat string `mapstructure:"identifier_format"`
}

type MigrationsConfig struct {
	Dir string `mapstructure:"dir"`
}

// configKeys is the full key set; every key is env-bound so Unmarshal
// picks up MUELITA_* overrides.
var configKeys = []string{
	"server.host", "server.port", "server.shutdown_timeout",
	"database.url", "database.max_conns", "database.min_conns",
	"log.level", "log.format", "log.file",
	"log.max_size_mb", "log.max_backups", "log.max_age_days",
	"auth.mode", "auth.jwt_secret", "auth.token_ttl",
	"clinic.name", "clinic.country",
	"clinical.default_scheme", "clinical.perio_layout",
	"clinical.extended_statuses", "clinical.identifier_format",
	"migrations.dir",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetEnvPrefix("muelita")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults: loopback server, console logs, dev auth, Argentine clinic.
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.max_conns", 8)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.max_size_mb", 20)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 90)
	v.SetDefault("auth.mode", "dev")
	v.SetDefault("auth.token_ttl", "12h")
	v.SetDefault("clinic.country", "AR")
	v.SetDefault("clinical.default_scheme", "permanent")
	v.SetDefault("clinical.perio_layout", "six_site")
	v.SetDefault("clinical.extended_statuses", false)
	v.SetDefault("clinical.identifier_format", "digits")
	v.SetDefault("migrations.dir", "./migrations")

	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	// Try reading .env, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

var loopbackHosts = map[string]bool{
	"127.0.0.1": true, "localhost": true, "::1": true,
}

// Validate checks that the configuration can run a server. It refuses the
// one genuinely unsafe combination: an ungated API on a non-loopback
// address.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be \"console\" or \"json\", got %q", c.Log.Format)
	}

	switch c.Auth.Mode {
	case "dev":
		if !loopbackHosts[c.Server.Host] {
			return fmt.Errorf(
				"auth.mode=dev serves an ungated API and requires a loopback server.host, got %q; "+
					"set auth.mode=token to expose the server", c.Server.Host)
		}
	case "token":
		if len(c.Auth.JWTSecret) < 16 {
			return fmt.Errorf("auth.jwt_secret must be at least 16 characters in auth.mode=token")
		}
	default:
		return fmt.Errorf("auth.mode must be \"dev\" or \"token\", got %q", c.Auth.Mode)
	}

	if len(c.Clinic.Country) != 2 {
		return fmt.Errorf("clinic.country must be a two-letter region code, got %q", c.Clinic.Country)
	}
	if c.Clinical.DefaultScheme != "permanent" && c.Clinical.DefaultScheme != "primary" {
		return fmt.Errorf("clinical.default_scheme must be \"permanent\" or \"primary\", got %q", c.Clinical.DefaultScheme)
	}
	if c.Clinical.PerioLayout != "six_site" && c.Clinical.PerioLayout != "two_face" {
		return fmt.Errorf("clinical.perio_layout must be \"six_site\" or \"two_face\", got %q", c.Clinical.PerioLayout)
	}
	if c.Clinical.IdentifierFormat != "digits" && c.Clinical.IdentifierFormat != "alphanumeric" {
		return fmt.Errorf("clinical.identifier_format must be \"digits\" or \"alphanumeric\", got %q", c.Clinical.IdentifierFormat)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
