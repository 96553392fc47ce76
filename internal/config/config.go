// Package config provides configuration management for FireEdge.
//
// This package handles loading configuration from multiple sources:
//   - YAML configuration files
//   - Environment variables (with FE_ prefix)
//   - .env files
//   - Default values
//
// # Configuration Sources Priority
//
// Configuration is loaded in the following order (later sources override earlier ones):
//  1. Default values (hardcoded)
//  2. Configuration files (./configs/config.yaml, ~/.fireedge/config.yaml, /etc/one/fireedge/config.yaml)
//  3. .env files
//  4. Environment variables (FE_ prefix)
//
// # Usage Example
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
//
// # Environment Variables
//
// Environment variables override all other configuration sources.
// Use FE_ prefix and underscores for nested keys:
//   - FE_SERVER_PORT=2616
//   - FE_OPENNEBULA_RPC=http://localhost:2633/RPC2
//   - FE_HOOKS_ENABLED=true
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure for FireEdge.
type Config struct {
	// Server contains HTTP server configuration
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// OpenNebula contains the XML-RPC daemon, zone and OneFlow settings
	OpenNebula OpenNebulaConfig `mapstructure:"opennebula" yaml:"opennebula"`

	// Hooks contains the WebSocket event relay settings
	Hooks HooksConfig `mapstructure:"hooks" yaml:"hooks"`

	// Logging contains logging and observability settings
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Security contains security and rate limiting settings
	Security SecurityConfig `mapstructure:"security" yaml:"security"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Host is the server bind address (default: 0.0.0.0)
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the server listen port (default: 2616)
	Port int `mapstructure:"port" yaml:"port"`

	// ReadTimeout is the maximum duration for reading requests
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing responses
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// ShutdownTimeout is the maximum duration for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// Debug exposes internal error details in API responses
	Debug bool `mapstructure:"debug" yaml:"debug"`

	// TLSEnabled enables HTTPS
	TLSEnabled bool `mapstructure:"tls_enabled" yaml:"tls_enabled"`

	// TLSCert is the path to the TLS certificate file
	TLSCert string `mapstructure:"tls_cert" yaml:"tls_cert"`

	// TLSKey is the path to the TLS private key file
	TLSKey string `mapstructure:"tls_key" yaml:"tls_key"`
}

// OpenNebulaConfig contains the settings used to reach oned and OneFlow.
type OpenNebulaConfig struct {
	// RPC is the XML-RPC endpoint of the default zone
	RPC string `mapstructure:"rpc" yaml:"rpc"`

	// ZeroMQ is the hook publisher endpoint of the default zone
	ZeroMQ string `mapstructure:"zeromq" yaml:"zeromq"`

	// ZeroMQPort is used to derive publisher endpoints for zones discovered through oned
	ZeroMQPort int `mapstructure:"zeromq_port" yaml:"zeromq_port"`

	// Timeout bounds every XML-RPC call
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// DefaultZone is the zone used when a request does not name one
	DefaultZone string `mapstructure:"default_zone" yaml:"default_zone"`

	// Zones are statically known federation zones
	Zones []ZoneConfig `mapstructure:"zones" yaml:"zones"`

	// ZoneCacheSize is the number of zones discovered through oned kept in memory
	ZoneCacheSize int `mapstructure:"zone_cache_size" yaml:"zone_cache_size"`

	// ZoneCacheTTL is how long a discovered zone stays cached
	ZoneCacheTTL time.Duration `mapstructure:"zone_cache_ttl" yaml:"zone_cache_ttl"`

	// OneFlow is the OneFlow REST server URL; empty disables the service routes
	OneFlow string `mapstructure:"oneflow" yaml:"oneflow"`
}

// ZoneConfig describes one federation zone.
type ZoneConfig struct {
	ID     string `mapstructure:"id" yaml:"id"`
	Name   string `mapstructure:"name" yaml:"name"`
	RPC    string `mapstructure:"rpc" yaml:"rpc"`
	ZeroMQ string `mapstructure:"zeromq" yaml:"zeromq"`
}

// HooksConfig contains the WebSocket relay settings.
type HooksConfig struct {
	// Enabled exposes the /ws/hooks endpoint
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// SendBuffer is the number of events queued per connection before new ones are dropped
	SendBuffer int `mapstructure:"send_buffer" yaml:"send_buffer"`

	// AllowedOrigins restricts WebSocket upgrades; empty or "*" allows all
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error)
	Level string `mapstructure:"level" yaml:"level"`

	// Format is the log format (json, console)
	Format string `mapstructure:"format" yaml:"format"`

	// Output is the log output destination (stdout, stderr or a file path)
	Output string `mapstructure:"output" yaml:"output"`
}

// SecurityConfig contains security and rate limiting settings.
type SecurityConfig struct {
	// RateLimit is the maximum requests per second per client
	RateLimit int `mapstructure:"rate_limit" yaml:"rate_limit"`

	// AllowedOrigins are the CORS allowed origins
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	// JWTSecret is the secret key for signing JWT tokens
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`

	// JWTExpiration is the JWT token expiration duration (default: 3h)
	JWTExpiration time.Duration `mapstructure:"jwt_expiration" yaml:"jwt_expiration"`

	// JWTMaxExpiration caps the expiration a client may request at login (default: 30 days)
	JWTMaxExpiration time.Duration `mapstructure:"jwt_max_expiration" yaml:"jwt_max_expiration"`
}

var cfg *Config

// Load reads configuration from a file and environment variables.
// If cfgFile is empty, it searches for config.yaml in standard locations.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FE_ prefix)
//  2. .env file
//  3. Configuration file
//  4. Default values
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.fireedge")
		v.AddConfigPath("/etc/one/fireedge")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			// An explicit but missing file falls back to defaults
			if !isFileNotFoundError(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.MergeInConfig() // Ignore error if .env file doesn't exist

	v.SetEnvPrefix("FE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 2616)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.tls_enabled", false)

	v.SetDefault("opennebula.rpc", "http://localhost:2633/RPC2")
	v.SetDefault("opennebula.zeromq", "tcp://localhost:2101")
	v.SetDefault("opennebula.zeromq_port", 2101)
	v.SetDefault("opennebula.timeout", "30s")
	v.SetDefault("opennebula.default_zone", "0")
	v.SetDefault("opennebula.zone_cache_size", 32)
	v.SetDefault("opennebula.zone_cache_ttl", "5m")
	v.SetDefault("opennebula.oneflow", "http://localhost:2474")

	v.SetDefault("hooks.enabled", true)
	v.SetDefault("hooks.send_buffer", 256)
	v.SetDefault("hooks.allowed_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("security.rate_limit", 100)
	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.jwt_secret", "change-me-in-production")
	v.SetDefault("security.jwt_expiration", "3h")
	v.SetDefault("security.jwt_max_expiration", "720h")
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.OpenNebula.RPC == "" {
		return fmt.Errorf("opennebula rpc endpoint is required")
	}
	if _, err := url.ParseRequestURI(cfg.OpenNebula.RPC); err != nil {
		return fmt.Errorf("invalid opennebula rpc endpoint: %w", err)
	}

	if cfg.OpenNebula.DefaultZone == "" {
		return fmt.Errorf("opennebula default_zone is required")
	}

	seen := make(map[string]bool, len(cfg.OpenNebula.Zones))
	for _, z := range cfg.OpenNebula.Zones {
		if z.ID == "" {
			return fmt.Errorf("zone id is required")
		}
		if seen[z.ID] {
			return fmt.Errorf("duplicate zone id: %s", z.ID)
		}
		seen[z.ID] = true
		if z.RPC == "" {
			return fmt.Errorf("zone %s: rpc endpoint is required", z.ID)
		}
	}

	if cfg.Hooks.SendBuffer < 1 {
		return fmt.Errorf("hooks send_buffer must be positive: %d", cfg.Hooks.SendBuffer)
	}

	if cfg.Security.JWTSecret == "" {
		return fmt.Errorf("security jwt_secret is required")
	}

	return nil
}

// Get returns the configuration loaded by the last successful Load call.
func Get() *Config {
	return cfg
}

// DefaultZoneConfig returns the zone entry the gateway uses when a request names none.
// The top-level rpc/zeromq endpoints describe it unless a zones entry overrides it.
func (c *OpenNebulaConfig) DefaultZoneConfig() ZoneConfig {
	for _, z := range c.Zones {
		if z.ID == c.DefaultZone {
			return z
		}
	}
	return ZoneConfig{
		ID:     c.DefaultZone,
		RPC:    c.RPC,
		ZeroMQ: c.ZeroMQ,
	}
}

// isFileNotFoundError checks if an error is a file not found error.
func isFileNotFoundError(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr, os.ErrNotExist)
	}
	return false
}
