// Package config resolves client settings. Every getter follows the same
// priority: VEMPAT_* env var > ~/.config/vempat/config.json > default.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Remote kinds.
const (
	KindHTTP   = "http"
	KindRedis  = "redis"
	KindMemory = "memory"
)

const (
	defaultRemoteURL     = "http://localhost:8080"
	defaultRedisAddr     = "localhost:6379"
	defaultMaxAttempts   = 6
	defaultBaseDelay     = time.Second
	defaultMaxBackoff    = time.Hour
	defaultDrainInterval = 5 * time.Second
	defaultProbeInterval = 10 * time.Second
)

// RemoteConfig selects and addresses the remote document store.
type RemoteConfig struct {
	Kind      string `json:"kind,omitempty"`
	URL       string `json:"url,omitempty"`
	RedisAddr string `json:"redis_addr,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
}

// SyncConfig holds queue and scheduler tuning. Durations are strings.
type SyncConfig struct {
	MaxAttempts   *int   `json:"max_attempts,omitempty"`
	BaseDelay     string `json:"base_delay,omitempty"`
	MaxBackoff    string `json:"max_backoff,omitempty"`
	Interval      string `json:"interval,omitempty"`
	ProbeInterval string `json:"probe_interval,omitempty"`
}

// Config is the global config stored at ~/.config/vempat/config.json.
type Config struct {
	DataDir string       `json:"data_dir,omitempty"`
	Remote  RemoteConfig `json:"remote"`
	Sync    SyncConfig   `json:"sync"`
}

// Dir returns ~/.config/vempat, creating it if necessary.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "vempat")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// LoadDotEnv loads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the global config. A missing file yields an empty config.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config.json: %w", err)
	}
	return &cfg, nil
}

// Save writes cfg using an atomic temp file + rename.
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, "config.json"), data, 0644)
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func loadOrEmpty() *Config {
	cfg, err := Load()
	if err != nil {
		return &Config{}
	}
	return cfg
}

func stringSetting(env, fromFile, def string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	if fromFile != "" {
		return fromFile
	}
	return def
}

func durationSetting(env, fromFile string, def time.Duration) time.Duration {
	if v := os.Getenv(env); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	if fromFile != "" {
		if d, err := time.ParseDuration(fromFile); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// DataDir returns the directory holding the local database.
// Priority: VEMPAT_DATA_DIR env > config.json data_dir > ~/.local/share/vempat
func DataDir() string {
	def := ".vempat"
	if home, err := os.UserHomeDir(); err == nil {
		def = filepath.Join(home, ".local", "share", "vempat")
	}
	return stringSetting("VEMPAT_DATA_DIR", loadOrEmpty().DataDir, def)
}

// RemoteKind returns http, redis or memory.
// Priority: VEMPAT_REMOTE env > config.json remote.kind > http
func RemoteKind() string {
	return strings.ToLower(stringSetting("VEMPAT_REMOTE", loadOrEmpty().Remote.Kind, KindHTTP))
}

// RemoteURL returns the document server URL.
// Priority: VEMPAT_REMOTE_URL env > config.json remote.url > default
func RemoteURL() string {
	return stringSetting("VEMPAT_REMOTE_URL", loadOrEmpty().Remote.URL, defaultRemoteURL)
}

// RedisAddr returns the Redis address used by the redis remote.
func RedisAddr() string {
	return stringSetting("VEMPAT_REDIS_ADDR", loadOrEmpty().Remote.RedisAddr, defaultRedisAddr)
}

// APIKey returns the document server API key, or "".
func APIKey() string {
	return stringSetting("VEMPAT_API_KEY", loadOrEmpty().Remote.APIKey, "")
}

// MaxAttempts returns the failure count at which an entry is quarantined.
// Priority: VEMPAT_MAX_ATTEMPTS env > config.json sync.max_attempts > 6
func MaxAttempts() int {
	if v := os.Getenv("VEMPAT_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	if cfg := loadOrEmpty(); cfg.Sync.MaxAttempts != nil && *cfg.Sync.MaxAttempts > 0 {
		return *cfg.Sync.MaxAttempts
	}
	return defaultMaxAttempts
}

// BaseDelay returns the first retry delay.
func BaseDelay() time.Duration {
	return durationSetting("VEMPAT_BASE_DELAY", loadOrEmpty().Sync.BaseDelay, defaultBaseDelay)
}

// MaxBackoff returns the retry delay ceiling.
func MaxBackoff() time.Duration {
	return durationSetting("VEMPAT_MAX_BACKOFF", loadOrEmpty().Sync.MaxBackoff, defaultMaxBackoff)
}

// DrainInterval returns the scheduler's periodic drain interval.
func DrainInterval() time.Duration {
	return durationSetting("VEMPAT_SYNC_INTERVAL", loadOrEmpty().Sync.Interval, defaultDrainInterval)
}

// ProbeInterval returns the connectivity probe interval.
func ProbeInterval() time.Duration {
	return durationSetting("VEMPAT_PROBE_INTERVAL", loadOrEmpty().Sync.ProbeInterval, defaultProbeInterval)
}

// setting binds a config.json key to its effective value and its field.
type setting struct {
	get func() string
	set func(cfg *Config, v string) error
}

func durationField(field func(cfg *Config) *string) func(cfg *Config, v string) error {
	return func(cfg *Config, v string) error {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return fmt.Errorf("invalid duration %q", v)
		}
		*field(cfg) = v
		return nil
	}
}

var settings = map[string]setting{
	"data_dir": {
		get: DataDir,
		set: func(cfg *Config, v string) error { cfg.DataDir = v; return nil },
	},
	"remote.kind": {
		get: RemoteKind,
		set: func(cfg *Config, v string) error {
			switch v = strings.ToLower(v); v {
			case KindHTTP, KindRedis, KindMemory:
				cfg.Remote.Kind = v
				return nil
			}
			return fmt.Errorf("remote.kind must be %s, %s or %s", KindHTTP, KindRedis, KindMemory)
		},
	},
	"remote.url": {
		get: RemoteURL,
		set: func(cfg *Config, v string) error { cfg.Remote.URL = strings.TrimRight(v, "/"); return nil },
	},
	"remote.redis_addr": {
		get: RedisAddr,
		set: func(cfg *Config, v string) error { cfg.Remote.RedisAddr = v; return nil },
	},
	"remote.api_key": {
		get: func() string {
			if APIKey() == "" {
				return ""
			}
			return "(set)"
		},
		set: func(cfg *Config, v string) error { cfg.Remote.APIKey = v; return nil },
	},
	"sync.max_attempts": {
		get: func() string { return strconv.Itoa(MaxAttempts()) },
		set: func(cfg *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid attempt count %q", v)
			}
			cfg.Sync.MaxAttempts = &n
			return nil
		},
	},
	"sync.base_delay": {
		get: func() string { return BaseDelay().String() },
		set: durationField(func(cfg *Config) *string { return &cfg.Sync.BaseDelay }),
	},
	"sync.max_backoff": {
		get: func() string { return MaxBackoff().String() },
		set: durationField(func(cfg *Config) *string { return &cfg.Sync.MaxBackoff }),
	},
	"sync.interval": {
		get: func() string { return DrainInterval().String() },
		set: durationField(func(cfg *Config) *string { return &cfg.Sync.Interval }),
	},
	"sync.probe_interval": {
		get: func() string { return ProbeInterval().String() },
		set: durationField(func(cfg *Config) *string { return &cfg.Sync.ProbeInterval }),
	},
}

// Keys returns every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Effective returns the resolved value of key after env and file layering.
func Effective(key string) (string, error) {
	s, ok := settings[key]
	if !ok {
		return "", fmt.Errorf("unknown config key %q", key)
	}
	return s.get(), nil
}

// Set validates value and persists it under key in config.json.
func Set(key, value string) error {
	s, ok := settings[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	cfg, err := Load()
	if err != nil {
		return err
	}
	if err := s.set(cfg, strings.TrimSpace(value)); err != nil {
		return err
	}
	return Save(cfg)
}
