package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. NETPROBE_REDIS_ADDR.
const EnvPrefix = "NETPROBE"

// Config holds every setting of the CLI and the API service.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Redis  RedisConfig  `mapstructure:"redis"`
	API    APIConfig    `mapstructure:"api"`
	Scan   ScanConfig   `mapstructure:"scan"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// RedisConfig selects the task store. An empty Addr keeps tasks in memory.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type APIConfig struct {
	// Key enables bearer authentication when non-empty.
	Key        string        `mapstructure:"key"`
	RateLimit  int64         `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`
	Workers    int           `mapstructure:"workers"`
}

type ScanConfig struct {
	Threads   int `mapstructure:"threads"`
	TimeoutMs int `mapstructure:"timeout_ms"`
	// MaxSockets bounds the summed thread count of scans running at once in the API.
	MaxSockets int `mapstructure:"max_sockets"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Timeout returns the per-probe budget as a duration.
func (s ScanConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("api.key", "")
	v.SetDefault("api.rate_limit", 60)
	v.SetDefault("api.rate_window", time.Minute)
	v.SetDefault("api.workers", 2)
	v.SetDefault("scan.threads", 100)
	v.SetDefault("scan.timeout_ms", 1000)
	v.SetDefault("scan.max_sockets", 1024)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
}

// Load reads .env (if present), then defaults, the optional YAML file at
// path and NETPROBE_* environment variables, in increasing priority.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values the scanner and API cannot run without.
func (c *Config) Validate() error {
	if c.Scan.Threads < 1 {
		return fmt.Errorf("scan.threads must be positive, got %d", c.Scan.Threads)
	}
	if c.Scan.TimeoutMs < 1 {
		return fmt.Errorf("scan.timeout_ms must be positive, got %d", c.Scan.TimeoutMs)
	}
	if c.Scan.MaxSockets < 1 {
		return fmt.Errorf("scan.max_sockets must be positive, got %d", c.Scan.MaxSockets)
	}
	if c.API.Workers < 1 {
		return fmt.Errorf("api.workers must be positive, got %d", c.API.Workers)
	}
	return nil
}
