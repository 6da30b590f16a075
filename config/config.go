// Package config loads the YAML configuration of a tagcache deployment and
// builds the store stack from it.
package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/tagcache"
	rb "github.com/unkn0wn-root/tagcache/backend/redis"
	"github.com/unkn0wn-root/tagcache/codec"
	"github.com/unkn0wn-root/tagcache/journal"
	tczap "github.com/unkn0wn-root/tagcache/log/zap"
)

type Config struct {
	Redis   Redis   `yaml:"redis"`
	Storage Storage `yaml:"storage"`
	Journal Journal `yaml:"journal"`
	Codec   Codec   `yaml:"codec"`
	Log     Log     `yaml:"log"`
}

type Redis struct {
	Addr         string        `yaml:"addr" validate:"required,hostname_port"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db" validate:"gte=0"`
	DialTimeout  time.Duration `yaml:"dial_timeout" validate:"gte=0"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`
	PoolSize     int           `yaml:"pool_size" validate:"gte=0"`
}

type Storage struct {
	Namespace string `yaml:"namespace" validate:"required"`
	MaxDepth  int    `yaml:"max_depth" validate:"gte=1,lte=1024"`
}

type Journal struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace" validate:"required_if=Enabled true"`
}

type Codec struct {
	Format      string `yaml:"format" validate:"oneof=json msgpack cbor raw"`
	Compression string `yaml:"compression" validate:"oneof=none snappy brotli"`
	MinSize     int    `yaml:"min_size" validate:"gte=0"`
	MaxDecode   int    `yaml:"max_decode" validate:"gte=0"`
	Level       int    `yaml:"level" validate:"gte=0,lte=11"` // brotli quality
}

type Log struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func Defaults() *Config {
	return &Config{
		Redis: Redis{
			Addr:         "localhost:6379",
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Storage: Storage{
			Namespace: tagcache.DefaultNamespace,
			MaxDepth:  tagcache.DefaultMaxDepth,
		},
		Journal: Journal{
			Enabled:   true,
			Namespace: journal.DefaultNamespace,
		},
		Codec: Codec{
			Format:      "json",
			Compression: "none",
			MinSize:     1024,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads the YAML file at path over Defaults and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: no path given")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: validation failed: %w", err)
	}
	return nil
}

func (c *Config) RedisOptions() *goredis.Options {
	return &goredis.Options{
		Addr:         c.Redis.Addr,
		Username:     c.Redis.Username,
		Password:     c.Redis.Password,
		DB:           c.Redis.DB,
		DialTimeout:  c.Redis.DialTimeout,
		ReadTimeout:  c.Redis.ReadTimeout,
		WriteTimeout: c.Redis.WriteTimeout,
		PoolSize:     c.Redis.PoolSize,
	}
}

// Logger builds a zap logger at the configured level.
func (c *Config) Logger() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// BytesCodec reads and writes payloads in their serialized form: compression
// is applied and removed, the configured format is left to the caller (see
// Render).
func (c *Config) BytesCodec() codec.Codec[[]byte] {
	cc := codec.Compressed[[]byte]{
		Inner:     codec.Bytes{},
		Algorithm: codec.Algorithm(c.Codec.Compression),
		MinSize:   c.Codec.MinSize,
		Level:     c.Codec.Level,
	}
	if c.Codec.Compression == "none" {
		// still decompress annotated records written elsewhere
		cc.Algorithm = codec.Snappy
		cc.MinSize = math.MaxInt
	}
	return codec.Limit[[]byte]{Inner: cc, MaxDecode: c.Codec.MaxDecode}
}

// Open connects to Redis and builds a store of serialized payloads. Closing
// the store closes the client.
func (c *Config) Open(l *zap.Logger) (tagcache.Storage[[]byte], error) {
	be, err := rb.New(rb.Config{
		Client:      goredis.NewClient(c.RedisOptions()),
		CloseClient: true,
	})
	if err != nil {
		return nil, err
	}

	logger := tczap.New(l)
	opts := tagcache.Options[[]byte]{
		Backend:   be,
		Codec:     c.BytesCodec(),
		Logger:    logger,
		Namespace: c.Storage.Namespace,
		MaxDepth:  c.Storage.MaxDepth,
	}
	if c.Journal.Enabled {
		opts.Journal = journal.New(be, journal.Options{Namespace: c.Journal.Namespace, Logger: logger})
	}
	s, err := tagcache.New[[]byte](opts)
	if err != nil {
		_ = be.Close(context.Background())
		return nil, err
	}
	return s, nil
}
