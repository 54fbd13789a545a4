// Package config holds the runtime configuration for the user API: the HTTP
// listener, the relational store, the Redis cluster adapter tuning knobs,
// logging and metrics. Values come from an optional YAML file (CONFIG_FILE)
// overridden by environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/santoshpalla27/user-app-redis-mysql/envloader"
)

// Config is the root configuration.
type Config struct {
	Port int `yaml:"port" env:"PORT" envDefault:"3000"`

	SQL     SQLConfig     `yaml:"sql"`
	Redis   RedisConfig   `yaml:"redis"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SQLConfig describes the relational store connection. Driver selects the
// dialect: "mysql" (default) or "postgres".
type SQLConfig struct {
	Driver       string `yaml:"driver" env:"SQL_DRIVER" envDefault:"mysql"`
	Host         string `yaml:"host" env:"MYSQL_HOST" envDefault:"localhost"`
	Port         int    `yaml:"port" env:"MYSQL_PORT" envDefault:"3306"`
	User         string `yaml:"user" env:"MYSQL_USER" envDefault:"root"`
	Password     string `yaml:"password" env:"MYSQL_PASSWORD"`
	Database     string `yaml:"database" env:"MYSQL_DATABASE"`
	TLS          bool   `yaml:"tls" env:"MYSQL_TLS" envDefault:"false"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"MYSQL_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int    `yaml:"max_idle_conns" env:"MYSQL_MAX_IDLE_CONNS" envDefault:"5"`
}

// RedisConfig describes the cluster seeds and the adapter's readiness and
// retry tuning. A single seed entry is treated as a one-endpoint cluster.
type RedisConfig struct {
	Nodes    []string `yaml:"nodes" env:"REDIS_CLUSTER_NODES" envDefault:"127.0.0.1:6379"`
	Password string   `yaml:"password" env:"REDIS_PASSWORD"`
	TLS      bool     `yaml:"tls" env:"REDIS_TLS" envDefault:"false"`

	DiscoveryTimeout  time.Duration `yaml:"discovery_timeout" env:"REDIS_DISCOVERY_TIMEOUT" envDefault:"90s"`
	DiscoveryInterval time.Duration `yaml:"discovery_interval" env:"REDIS_DISCOVERY_INTERVAL" envDefault:"3s"`
	StabilityChecks   int           `yaml:"stability_checks" env:"REDIS_STABILITY_CHECKS" envDefault:"3"`
	StabilityInterval time.Duration `yaml:"stability_interval" env:"REDIS_STABILITY_INTERVAL" envDefault:"500ms"`
	MaxRetries        int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" envDefault:"5"`
	RetryBase         time.Duration `yaml:"retry_base" env:"REDIS_RETRY_BASE" envDefault:"500ms"`
	OpTimeout         time.Duration `yaml:"op_timeout" env:"REDIS_OP_TIMEOUT" envDefault:"5s"`
	ScanBatch         int64         `yaml:"scan_batch" env:"REDIS_SCAN_BATCH" envDefault:"100"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" envDefault:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" envDefault:"json"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"METRICS_ENABLED" envDefault:"false"`
	AgentAddr string `yaml:"agent_addr" env:"DD_AGENT_ADDR" envDefault:"127.0.0.1:8125"`
	Namespace string `yaml:"namespace" env:"DD_NAMESPACE" envDefault:"userapp."`
}

// Load builds the configuration: YAML file first (when CONFIG_FILE points at
// one), then environment variables on top.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := envloader.Load(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the adapters cannot start with.
func (c *Config) Validate() error {
	switch c.SQL.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("config: unsupported sql driver %q", c.SQL.Driver)
	}
	if c.SQL.Database == "" {
		return fmt.Errorf("config: MYSQL_DATABASE is required")
	}
	if c.SQL.User == "" {
		return fmt.Errorf("config: MYSQL_USER is required")
	}
	if len(c.Redis.Nodes) == 0 {
		return fmt.Errorf("config: REDIS_CLUSTER_NODES must list at least one seed")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	return nil
}
