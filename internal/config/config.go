// Package config loads service settings: built-in defaults, then an optional YAML file,
// then environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Game      GameConfig      `yaml:"game"`
	Auth      AuthConfig      `yaml:"auth"`
	Historian HistorianConfig `yaml:"historian"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	DB          int           `yaml:"db"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`
}

type DatabaseConfig struct {
	// URL is a pgx connection string. Empty disables Postgres.
	URL string `yaml:"url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type GameConfig struct {
	TurnLockScope     string        `yaml:"turn_lock_scope"` // room or actor
	TurnLockMaxAge    time.Duration `yaml:"turn_lock_max_age"`
	AllowDebugActions bool          `yaml:"allow_debug_actions"`
	PersistTimeout    time.Duration `yaml:"persist_timeout"`
}

type AuthConfig struct {
	// TokenExpire follows TOKEN_EXPIRE_TIME: a duration, or "never".
	TokenExpire    string `yaml:"token_expire"`
	PrivateKeyPath string `yaml:"private_key_path"`
}

type HistorianConfig struct {
	QueueName     string        `yaml:"queue_name"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Inactivity    time.Duration `yaml:"inactivity"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			SnapshotTTL: 2 * time.Hour,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Game: GameConfig{
			TurnLockScope:  "room",
			TurnLockMaxAge: 30 * time.Second,
			PersistTimeout: 5 * time.Second,
		},
		Auth: AuthConfig{TokenExpire: "72h"},
		Historian: HistorianConfig{
			QueueName:     "heartboard_actions",
			BatchSize:     20,
			FlushInterval: 500 * time.Millisecond,
			Inactivity:    10 * time.Minute,
		},
	}
}

// Load starts from Default, overlays the YAML file at path if path is non-empty, then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv is Load with the path taken from HEARTBOARD_CONFIG.
func FromEnv() (*Config, error) {
	return Load(os.Getenv("HEARTBOARD_CONFIG"))
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Server.Port)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("DATABASE_URL", &c.Database.URL)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("TURN_LOCK_SCOPE", &c.Game.TurnLockScope)
	str("TOKEN_EXPIRE_TIME", &c.Auth.TokenExpire)
	str("JWT_PRIVATE_KEY_PATH", &c.Auth.PrivateKeyPath)
	str("HISTORIAN_QUEUE_NAME", &c.Historian.QueueName)

	ints := []struct {
		key string
		dst *int
	}{
		{"REDIS_DB", &c.Redis.DB},
		{"HISTORIAN_BATCH_SIZE", &c.Historian.BatchSize},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
		*e.dst = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"TURN_LOCK_MAX_AGE", &c.Game.TurnLockMaxAge},
		{"PERSIST_TIMEOUT", &c.Game.PersistTimeout},
		{"ROOM_SNAPSHOT_TTL", &c.Redis.SnapshotTTL},
		{"HISTORIAN_FLUSH_INTERVAL", &c.Historian.FlushInterval},
		{"HISTORIAN_INACTIVITY", &c.Historian.Inactivity},
	}
	for _, e := range durations {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
		*e.dst = d
	}

	if v := os.Getenv("ALLOW_DEBUG_ACTIONS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ALLOW_DEBUG_ACTIONS: %w", err)
		}
		c.Game.AllowDebugActions = b
	}
	return nil
}
