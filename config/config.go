package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/BurntSushi/toml"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// TomlDatabase represents database configuration from TOML
type TomlDatabase struct {
	Driver   string `toml:"driver"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	// Path is the database file when driver is sqlite
	Path string `toml:"path"`
}

// TomlServer represents HTTP server configuration from TOML
type TomlServer struct {
	Hostname string `toml:"hostname"`
	Port     int    `toml:"port"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Database TomlDatabase `toml:"database"`
	Server   TomlServer   `toml:"server"`
}

// Default returns the configuration used when no config file is given.
func Default() *TomlConfig {
	return &TomlConfig{
		Database: TomlDatabase{
			Driver:   DriverPostgres,
			Host:     "localhost",
			Port:     5432,
			User:     "hivefeed",
			Password: "hivefeed",
			Name:     "hivefeed",
			Path:     "hivefeed.db",
		},
		Server: TomlServer{
			// Empty hostname binds all interfaces
			Hostname: "",
			Port:     8080,
		},
	}
}

func LoadConfig(path string) (*TomlConfig, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}

// DatabaseURL returns the migration-style URL for the configured database.
func (c *TomlConfig) DatabaseURL() string {
	if c.Database.Driver == DriverSQLite {
		return "sqlite://" + c.Database.Path
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(c.Database.User),
		url.QueryEscape(c.Database.Password),
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}
