package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nemanja-m/gomandel/internal/scheduler/core"
)

const (
	CancelTargeted = "targeted"
	CancelClearAll = "clear_all"
)

// ServerConfig contains all configuration for the tile server.
type ServerConfig struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	GRPC    GRPCConfig    `mapstructure:"grpc"`
	Pool    PoolConfig    `mapstructure:"pool"`
	Render  RenderConfig  `mapstructure:"render"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Stats   StatsConfig   `mapstructure:"stats"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// HTTPConfig contains REST API server configuration.
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// GRPCConfig contains gRPC tile service configuration.
type GRPCConfig struct {
	Addr             string        `mapstructure:"addr"`
	KeepaliveMinTime time.Duration `mapstructure:"keepalive_min_time"`
}

// PoolConfig sizes the worker pool.
type PoolConfig struct {
	Workers  int  `mapstructure:"workers"`
	FastPath bool `mapstructure:"fast_path"`
}

// RenderConfig contains rendering defaults and the cancellation policy.
type RenderConfig struct {
	TileSize     int    `mapstructure:"tile_size"`
	Iterations   int    `mapstructure:"iterations"`
	Palette      string `mapstructure:"palette"`
	CancelPolicy string `mapstructure:"cancel_policy"`
	AutoFrame    bool   `mapstructure:"auto_frame"`
	CanvasWidth  int    `mapstructure:"canvas_width"`
	CanvasHeight int    `mapstructure:"canvas_height"`
}

// CacheConfig sizes the tile cache. Size 0 disables caching.
type CacheConfig struct {
	Size int `mapstructure:"size"`
}

type StatsConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LoadServer loads the server configuration from the given path.
// If configPath is empty, it looks for server.yaml in the config/ directory.
// Environment variables with GOMANDEL_ prefix override config file values.
func LoadServer(configPath string) (*ServerConfig, error) {
	v := viper.New()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 60*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("grpc.addr", ":9090")
	v.SetDefault("grpc.keepalive_min_time", 30*time.Second)
	v.SetDefault("pool.workers", 4)
	v.SetDefault("pool.fast_path", true)
	v.SetDefault("render.tile_size", core.BaseTileSize)
	v.SetDefault("render.iterations", 64)
	v.SetDefault("render.palette", "hsl")
	v.SetDefault("render.cancel_policy", CancelTargeted)
	v.SetDefault("render.auto_frame", false)
	v.SetDefault("render.canvas_width", 1024)
	v.SetDefault("render.canvas_height", 768)
	v.SetDefault("cache.size", 1024)
	v.SetDefault("stats.interval", time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("server")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("GOMANDEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *ServerConfig) Validate() error {
	var errs []error
	if c.Pool.Workers < 1 {
		errs = append(errs, fmt.Errorf("pool.workers must be at least 1, got %d", c.Pool.Workers))
	}
	if c.Render.TileSize != core.BaseTileSize {
		errs = append(errs, fmt.Errorf("render.tile_size must be %d to match the plane scale, got %d", core.BaseTileSize, c.Render.TileSize))
	}
	if c.Render.Iterations < 1 {
		errs = append(errs, fmt.Errorf("render.iterations must be positive, got %d", c.Render.Iterations))
	}
	if c.Render.CanvasWidth < 1 || c.Render.CanvasHeight < 1 {
		errs = append(errs, fmt.Errorf("render canvas must be positive, got %dx%d", c.Render.CanvasWidth, c.Render.CanvasHeight))
	}
	switch c.Render.CancelPolicy {
	case CancelTargeted, CancelClearAll:
	default:
		errs = append(errs, fmt.Errorf("render.cancel_policy must be %q or %q, got %q", CancelTargeted, CancelClearAll, c.Render.CancelPolicy))
	}
	if c.Cache.Size < 0 {
		errs = append(errs, fmt.Errorf("cache.size must not be negative, got %d", c.Cache.Size))
	}
	if c.Stats.Interval < 0 {
		errs = append(errs, fmt.Errorf("stats.interval must not be negative, got %s", c.Stats.Interval))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
