package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig                   `mapstructure:"server"`
	Database  DatabaseConfig                 `mapstructure:"database"`
	Cache     CacheConfig                    `mapstructure:"cache"`
	Audit     AuditConfig                    `mapstructure:"audit"`
	Auth      AuthConfig                     `mapstructure:"auth"`
	Services  ServicesConfig                 `mapstructure:"services"`
	Roles     map[string]map[string][]string `mapstructure:"roles"`
	JWTSecret string                         `mapstructure:"jwt_secret"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
}

type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
	MaxBytes   int `mapstructure:"max_bytes"`
}

type AuditConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	BufferSize      int  `mapstructure:"buffer_size"`
	FlushIntervalMs int  `mapstructure:"flush_interval_ms"`
}

type AuthConfig struct {
	AccessTokenTTLMin int `mapstructure:"access_token_ttl_min"`
}

// ServicesConfig points at the sibling microservices the engine calls when
// expanding remote references.
type ServicesConfig struct {
	BaseURLs map[string]string `mapstructure:"base_urls"`
	TokenURL string            `mapstructure:"token_url"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
}

// ConnString returns the PostgreSQL connection string.
func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// AllowedRoles returns the allow-list for a (resource, verb) pair. The
// default when unconfigured is admin-only.
func (c *Config) AllowedRoles(resource, verb string) []string {
	if byVerb, ok := c.Roles[resource]; ok {
		if roles, ok := byVerb[verb]; ok && len(roles) > 0 {
			return roles
		}
	}
	return []string{"admin"}
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../..")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.name", "slaughter_erp")
	viper.SetDefault("database.pool_size", 10)
	viper.SetDefault("cache.ttl_seconds", 300)
	viper.SetDefault("cache.max_bytes", 32*1024*1024)
	viper.SetDefault("audit.enabled", true)
	viper.SetDefault("audit.buffer_size", 500)
	viper.SetDefault("audit.flush_interval_ms", 100)
	viper.SetDefault("auth.access_token_ttl_min", 60)
	viper.SetDefault("jwt_secret", "changeme-secret")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
