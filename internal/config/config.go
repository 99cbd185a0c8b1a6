package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"projecthub/pkg/config"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// DirectoryConfig 员工目录服务配置
type DirectoryConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	// 只缓存"存在"的结果，需要 redis.addr
	CacheEnabled bool          `yaml:"cache_enabled"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // postgres | memory
}

type Config struct {
	Server    config.ServerConfig `yaml:"server"`
	DB        config.DBConfig     `yaml:"db"`
	Redis     config.RedisConfig  `yaml:"redis"`
	MQ        config.MQConfig     `yaml:"mq"`
	JWT       config.JWTConfig    `yaml:"jwt"`
	Otel      config.OtelConfig   `yaml:"otel"`
	Directory DirectoryConfig     `yaml:"directory"`
	Store     StoreConfig         `yaml:"store"`
}

// Load 使用统一配置中心加载 <dir>/base.yaml + <dir>/<env>.yaml，环境变量优先级最高
func Load(env, dir string) (*Config, error) {
	cfgMap, err := config.LoadConfig(env, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := Default()
	if err := config.Decode(cfgMap, cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖（优先级最高）
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideOtelFromEnv(&cfg.Otel)
	overrideDirectoryFromEnv(&cfg.Directory)
	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		cfg.Store.Driver = driver
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default 返回本地开发可用的默认值，yaml 中出现的字段会覆盖它们
func Default() *Config {
	return &Config{
		Server: config.ServerConfig{
			Port:            ":8080",
			ShutdownTimeout: 30 * time.Second,
		},
		DB: config.DBConfig{
			Host:               "localhost",
			Port:               5432,
			SlowQueryThreshold: 200 * time.Millisecond,
		},
		Otel: config.OtelConfig{
			ServiceName: "projecthub",
		},
		Directory: DirectoryConfig{
			URL:      "https://employee-api.szut.dev",
			Timeout:  5 * time.Second,
			CacheTTL: 5 * time.Minute,
		},
		Store: StoreConfig{
			Driver: StoreDriverPostgres,
		},
	}
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Directory.URL == "" {
		return fmt.Errorf("directory.url is required")
	}
	if c.Directory.CacheEnabled && c.Redis.Addr == "" {
		return fmt.Errorf("directory.cache_enabled requires redis.addr")
	}
	return nil
}

func overrideDirectoryFromEnv(cfg *DirectoryConfig) {
	if url := os.Getenv("DIRECTORY_URL"); url != "" {
		cfg.URL = url
	}
	if timeout := os.Getenv("DIRECTORY_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if enabled := os.Getenv("DIRECTORY_CACHE_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			cfg.CacheEnabled = b
		}
	}
}
