// Package config loads stimconv settings from an optional YAML file, a .env
// file and the environment, in increasing order of precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/HugeFrog24/stimconv/cache"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "stimconv.yaml"

// Cache backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Environment variables overriding the file.
const (
	EnvCacheBackend = "STIMCONV_CACHE_BACKEND"
	EnvCacheDir     = "STIMCONV_CACHE_DIR"
	EnvRedisAddr    = "STIMCONV_REDIS_ADDR"
	EnvLogLevel     = "STIMCONV_LOG_LEVEL"
)

type Config struct {
	Cache   CacheConfig   `yaml:"cache"`
	TmpDir  string        `yaml:"tmp_dir"`
	Whisper WhisperConfig `yaml:"whisper"`
	Log     LogConfig     `yaml:"log"`
}

type CacheConfig struct {
	// Backend is one of memory, badger or redis.
	Backend     string `yaml:"backend"`
	Dir         string `yaml:"dir"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
}

type WhisperConfig struct {
	MaxDuration time.Duration `yaml:"max_duration"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Format is console or json.
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Backend:     BackendMemory,
			Dir:         ".cache",
			RedisAddr:   "localhost:6379",
			RedisPrefix: cache.DefaultRedisPrefix,
		},
		TmpDir:  ".tmp",
		Whisper: WhisperConfig{MaxDuration: 5 * time.Minute},
		Log:     LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads .env, then the YAML file at path, then environment overrides.
// A missing .env is fine. A missing file at DefaultPath or an empty path is
// fine too; any other missing path is an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := Default()
	explicit := path != "" && path != DefaultPath
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvCacheBackend); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	d := Default()
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = d.Cache.Backend
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = d.Cache.Dir
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = d.Cache.RedisAddr
	}
	if c.Cache.RedisPrefix == "" {
		c.Cache.RedisPrefix = d.Cache.RedisPrefix
	}
	if c.TmpDir == "" {
		c.TmpDir = d.TmpDir
	}
	if c.Whisper.MaxDuration <= 0 {
		c.Whisper.MaxDuration = d.Whisper.MaxDuration
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendMemory, BackendBadger, BackendRedis:
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log level: %w", err)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// NewLogger builds a zap logger from the log settings. verbose forces the
// debug level.
func NewLogger(cfg LogConfig, verbose bool) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	var enc zapcore.EncoderConfig
	if cfg.Format == "json" {
		enc = zap.NewProductionEncoderConfig()
		enc.TimeKey = "timestamp"
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		enc = zap.NewDevelopmentEncoderConfig()
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format != "json",
		Encoding:         cfg.Format,
		EncoderConfig:    enc,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

// OpenStore opens the configured cache backend. Redis is pinged so that a
// wrong address fails here rather than on the first lookup.
func OpenStore(ctx context.Context, cfg CacheConfig, logger *zap.Logger) (cache.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case BackendMemory, "":
		return cache.NewMemory(), nil

	case BackendBadger:
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("config: create cache dir: %w", err)
		}
		logger.Debug("opening badger cache", zap.String("dir", cfg.Dir))
		return cache.NewBadger(cache.BadgerOptions{Dir: cfg.Dir, Logger: logger})

	case BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("config: redis %s: %w", cfg.RedisAddr, err)
		}
		logger.Debug("connected to redis cache", zap.String("addr", cfg.RedisAddr), zap.String("prefix", cfg.RedisPrefix))
		return cache.NewRedis(rdb, cfg.RedisPrefix), nil
	}
	return nil, fmt.Errorf("config: unknown cache backend %q", cfg.Backend)
}
