package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了网关运行所需的全部配置项。
type Config struct {
	App        AppConfig                 `mapstructure:"app"`
	Server     ServerConfig              `mapstructure:"server"`
	Aggregator AggregatorConfig          `mapstructure:"aggregator"`
	Exchanges  map[string]ExchangeConfig `mapstructure:"exchanges"`
	Retry      RetryConfig               `mapstructure:"retry"`
	Cache      CacheConfig               `mapstructure:"cache"`
	Database   DatabaseConfig            `mapstructure:"database"`
	Logging    LoggingConfig             `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// ServerConfig 描述 HTTP 服务参数。
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AggregatorConfig 控制订单聚合行为。
type AggregatorConfig struct {
	ExchangeTimeout time.Duration `mapstructure:"exchange_timeout"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	SortByDatetime  bool          `mapstructure:"sort_by_datetime"`
}

// ExchangeConfig 覆盖单个交易所的内置配置，键为交易所 ID（小写）。
type ExchangeConfig struct {
	Name       string         `mapstructure:"name"`
	ClientID   string         `mapstructure:"client_id"`
	FetchMode  string         `mapstructure:"fetch_mode"`
	UseSandbox bool           `mapstructure:"use_sandbox"`
	Disabled   bool           `mapstructure:"disabled"`
	Options    []OptionConfig `mapstructure:"options"`
	Headers    []HeaderConfig `mapstructure:"headers"`
}

// OptionConfig 为透传给 ccxt 的 options 项。
// viper 会把 map 键转为小写，所以用键值对列表保留大小写。
type OptionConfig struct {
	Key   string `mapstructure:"key"`
	Value string `mapstructure:"value"`
}

// HeaderConfig 把凭证中的额外字段映射为请求头。
type HeaderConfig struct {
	Field    string `mapstructure:"field"`
	Header   string `mapstructure:"header"`
	Required bool   `mapstructure:"required"`
}

// RetryConfig 统一控制交易所调用的重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// CacheConfig 控制市场列表缓存。
type CacheConfig struct {
	Driver string        `mapstructure:"driver"`
	TTL    time.Duration `mapstructure:"ttl"`
	Redis  RedisConfig   `mapstructure:"redis"`
}

// RedisConfig 描述 Redis 连接。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

const (
	CacheDriverNone   = "none"
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"

	FetchModeSplit = "split"
	FetchModeAll   = "all"
)

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		err = multierr.Append(err, errors.New("server.port 必须位于[1,65535]"))
	}
	if c.Server.RequestTimeout <= 0 {
		err = multierr.Append(err, errors.New("server.request_timeout 必须大于0"))
	}
	if c.Server.ShutdownTimeout < 0 {
		err = multierr.Append(err, errors.New("server.shutdown_timeout 不能为负"))
	}
	if c.Aggregator.ExchangeTimeout <= 0 {
		err = multierr.Append(err, errors.New("aggregator.exchange_timeout 必须大于0"))
	}
	if c.Aggregator.ExchangeTimeout > c.Server.RequestTimeout && c.Server.RequestTimeout > 0 {
		err = multierr.Append(err, errors.New("aggregator.exchange_timeout 不应大于 server.request_timeout"))
	}
	if c.Aggregator.MaxConcurrency < 0 {
		err = multierr.Append(err, errors.New("aggregator.max_concurrency 不能为负"))
	}
	for id, ex := range c.Exchanges {
		switch strings.ToLower(ex.FetchMode) {
		case "", FetchModeSplit, FetchModeAll:
		default:
			err = multierr.Append(err, fmt.Errorf("exchanges.%s.fetch_mode 仅支持 split/all", id))
		}
		for i, h := range ex.Headers {
			if h.Field == "" || h.Header == "" {
				err = multierr.Append(err, fmt.Errorf("exchanges.%s.headers[%d] 需要 field 与 header", id, i))
			}
		}
		for i, o := range ex.Options {
			if o.Key == "" {
				err = multierr.Append(err, fmt.Errorf("exchanges.%s.options[%d].key 不能为空", id, i))
			}
		}
	}
	if c.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("retry.max_attempts 必须大于0"))
	}
	if c.Retry.MinDelay <= 0 || c.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("retry.delay 必须为正"))
	}
	if c.Retry.MinDelay > c.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("retry.min_delay 不能大于 max_delay"))
	}
	switch c.Cache.Driver {
	case CacheDriverNone, CacheDriverMemory:
	case CacheDriverRedis:
		if c.Cache.Redis.Addr == "" {
			err = multierr.Append(err, errors.New("cache.redis.addr 不能为空"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("cache.driver 不支持 %q", c.Cache.Driver))
	}
	if c.Cache.Driver != CacheDriverNone && c.Cache.TTL <= 0 {
		err = multierr.Append(err, errors.New("cache.ttl 必须大于0"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
