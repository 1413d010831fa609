package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	ProviderAWS   = "aws"
	ProviderRedis = "redis"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "EC2NAMER_"

type Config struct {
	Provider string `yaml:"provider"` // "aws" | "redis"

	LogLevel  string `yaml:"log_level"`  // "debug" | "info" | "warn" | "error"
	PrettyLog bool   `yaml:"pretty_log"` // true => zap dev (color), false => zap prod (JSON)

	Timeout    time.Duration `yaml:"timeout"`     // whole run, ex: 2m
	InstanceID string        `yaml:"instance_id"` // optional, overrides instance metadata

	AWS   AWS   `yaml:"aws"`
	Redis Redis `yaml:"redis"`
}

type AWS struct {
	Region           string `yaml:"region"`            // optional, read from instance metadata when empty
	Profile          string `yaml:"profile"`           // optional shared config profile
	MetadataEndpoint string `yaml:"metadata_endpoint"` // optional, ex: "http://[fd00:ec2::254]"
}

type Redis struct {
	Addr           string        `yaml:"addr"`            // ex: "localhost:6379"
	User           string        `yaml:"user"`            // optional
	Password       string        `yaml:"password"`        // optional
	DB             int           `yaml:"db"`              // Redis DB number
	DialTimeout    time.Duration `yaml:"dial_timeout"`    // ex: 5s
	ReadTimeout    time.Duration `yaml:"read_timeout"`    // ex: 3s
	WriteTimeout   time.Duration `yaml:"write_timeout"`   // ex: 3s
	PoolSize       int           `yaml:"pool_size"`       // connection pool size
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // total time to retry connecting (ex: 30s)
	RetryInterval  time.Duration `yaml:"retry_interval"`  // initial wait between retries, grows exponentially
	MaxWait        time.Duration `yaml:"max_wait"`        // max wait between retries
	PingTimeout    time.Duration `yaml:"ping_timeout"`    // timeout of each ping attempt
	WarnThreshold  int           `yaml:"warn_threshold"`  // warn for this many attempts, then error

	KeyPrefix    string        `yaml:"key_prefix"`     // inventory keys, ex: "ec2namer:"
	ZonePrefix   string        `yaml:"zone_prefix"`    // CoreDNS redis plugin "prefix" option
	SlotClaimTTL time.Duration `yaml:"slot_claim_ttl"` // lifetime of a slot claim
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider:  ProviderAWS,
		LogLevel:  "info",
		PrettyLog: false,
		Timeout:   2 * time.Minute,
		Redis: Redis{
			Addr:           "localhost:6379",
			DialTimeout:    5 * time.Second,
			ReadTimeout:    3 * time.Second,
			WriteTimeout:   3 * time.Second,
			PoolSize:       4,
			ConnectTimeout: 30 * time.Second,
			RetryInterval:  2 * time.Second,
			MaxWait:        10 * time.Second,
			PingTimeout:    5 * time.Second,
			WarnThreshold:  3,
			KeyPrefix:      "ec2namer:",
			SlotClaimTTL:   10 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then EC2NAMER_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config yaml: %w", err)
	}
	return nil
}

func (c *Config) loadEnv() {
	c.Provider = getenv("PROVIDER", c.Provider)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	c.PrettyLog = mustBool("PRETTY_LOG", c.PrettyLog)
	c.Timeout = mustDuration("TIMEOUT", c.Timeout)
	c.InstanceID = getenv("INSTANCE_ID", c.InstanceID)

	c.AWS.Region = getenv("AWS_REGION", c.AWS.Region)
	c.AWS.Profile = getenv("AWS_PROFILE", c.AWS.Profile)
	c.AWS.MetadataEndpoint = getenv("AWS_METADATA_ENDPOINT", c.AWS.MetadataEndpoint)

	r := &c.Redis
	r.Addr = getenv("REDIS_ADDR", r.Addr)
	r.User = getenv("REDIS_USERNAME", r.User)
	r.Password = getenv("REDIS_PASSWORD", r.Password)
	r.DB = getenvInt("REDIS_DB", r.DB)
	r.DialTimeout = mustDuration("REDIS_DIAL_TIMEOUT", r.DialTimeout)
	r.ReadTimeout = mustDuration("REDIS_READ_TIMEOUT", r.ReadTimeout)
	r.WriteTimeout = mustDuration("REDIS_WRITE_TIMEOUT", r.WriteTimeout)
	r.PoolSize = getenvInt("REDIS_POOL_SIZE", r.PoolSize)
	r.ConnectTimeout = mustDuration("REDIS_CONNECT_TIMEOUT", r.ConnectTimeout)
	r.RetryInterval = mustDuration("REDIS_RETRY_INTERVAL", r.RetryInterval)
	r.MaxWait = mustDuration("REDIS_MAX_WAIT", r.MaxWait)
	r.PingTimeout = mustDuration("REDIS_PING_TIMEOUT", r.PingTimeout)
	r.WarnThreshold = getenvInt("REDIS_WARN_THRESHOLD", r.WarnThreshold)
	r.KeyPrefix = getenv("REDIS_KEY_PREFIX", r.KeyPrefix)
	r.ZonePrefix = getenv("REDIS_ZONE_PREFIX", r.ZonePrefix)
	r.SlotClaimTTL = mustDuration("REDIS_SLOT_CLAIM_TTL", r.SlotClaimTTL)
}

// Validate checks the settings the selected provider needs.
func (c *Config) Validate() error {
	var errs error

	switch c.Provider {
	case ProviderAWS:
	case ProviderRedis:
		if c.Redis.Addr == "" {
			errs = multierr.Append(errs, fmt.Errorf("redis.addr is required with the redis provider"))
		}
		if c.InstanceID == "" {
			errs = multierr.Append(errs, fmt.Errorf("instance_id is required with the redis provider"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown provider %q (want %q or %q)", c.Provider, ProviderAWS, ProviderRedis))
	}

	if c.Timeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("timeout must be > 0, got %v", c.Timeout))
	}
	return errs
}

// Redacted returns a copy safe to log.
func (c *Config) Redacted() Config {
	out := *c
	if out.Redis.Password != "" {
		out.Redis.Password = "***REDACTED***"
	}
	return out
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
