// Package config loads the service configuration from a YAML file plus
// MUSEX_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "MUSEX"

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// GraphConfig holds the graph-view tunables.
type GraphConfig struct {
	ZoomLevels       int           `mapstructure:"zoom_levels"`
	MaxRadius        float64       `mapstructure:"max_radius"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	DefaultNodeLimit int           `mapstructure:"default_node_limit"`
}

// LogConfig holds logging tunables.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Graph    GraphConfig    `mapstructure:"graph"`
	Log      LogConfig      `mapstructure:"log"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

// setDefaults registers every known key; registration also makes the keys
// visible to the environment binding.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "musex")
	v.SetDefault("database.password", "")
	v.SetDefault("database.db_name", "musex")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("graph.zoom_levels", 5)
	v.SetDefault("graph.max_radius", 0.1)
	v.SetDefault("graph.session_ttl", 30*time.Minute)
	v.SetDefault("graph.default_node_limit", 1000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads the YAML file at path, merges MUSEX_* environment overrides,
// applies defaults and validates the result.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	return finalize(v)
}

// LoadFromEnv builds a Config from MUSEX_* environment variables alone, for
// containerized deployments with no config file.
func LoadFromEnv() (*Config, error) {
	return finalize(newViper())
}

func finalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Graph.ZoomLevels < 2 {
		return fmt.Errorf("graph.zoom_levels must be at least 2, got %d", c.Graph.ZoomLevels)
	}
	if c.Graph.MaxRadius <= 0 || c.Graph.MaxRadius > 1 {
		return fmt.Errorf("graph.max_radius must be in (0, 1], got %g", c.Graph.MaxRadius)
	}
	if c.Graph.SessionTTL <= 0 {
		return fmt.Errorf("graph.session_ttl must be positive, got %s", c.Graph.SessionTTL)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q not recognized", c.Log.Level)
	}
	return nil
}
