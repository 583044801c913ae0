package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

type FeedConfig struct {
	DefaultLimit int           `toml:"default_limit"`
	MaxLimit     int           `toml:"max_limit"`
	Concurrency  int           `toml:"concurrency"`
	ItemTimeout  time.Duration `toml:"item_timeout"`
}

type Config struct {
	Port                    string        `toml:"port"`
	Env                     string        `toml:"env"`
	LogLevel                string        `toml:"log_level"`
	Storage                 string        `toml:"storage"`
	MongoURI                string        `toml:"mongo_uri"`
	MongoDatabase           string        `toml:"mongo_database"`
	PostgresUrl             string        `toml:"postgres_url"`
	FirebaseCredentialsPath string        `toml:"firebase_credentials_path"`
	JWTSecret               string        `toml:"jwt_secret"`
	SessionTTL              time.Duration `toml:"session_ttl"`
	MetricsPort             string        `toml:"metrics_port"`
	StoreTimeout            time.Duration `toml:"store_timeout"`
	ProfileTimeout          time.Duration `toml:"profile_timeout"`
	RetryInterval           time.Duration `toml:"retry_interval"`
	ProfileCacheSize        int           `toml:"profile_cache_size"`
	ProfileCacheTTL         time.Duration `toml:"profile_cache_ttl"`
	Feed                    FeedConfig    `toml:"feed"`
}

// DevJWTSecret signs local tokens in development only.
const DevJWTSecret = "supersecretjwtkey"

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Port:             "8080",
		Env:              "development",
		LogLevel:         "info",
		Storage:          StorageMongo,
		MongoURI:         "mongodb://localhost:27017",
		MongoDatabase:    "nest",
		JWTSecret:        DevJWTSecret,
		SessionTTL:       24 * time.Hour,
		MetricsPort:      "9090",
		StoreTimeout:     5 * time.Second,
		ProfileTimeout:   2 * time.Second,
		RetryInterval:    50 * time.Millisecond,
		ProfileCacheSize: 1024,
		ProfileCacheTTL:  5 * time.Minute,
		Feed: FeedConfig{
			DefaultLimit: 20,
			MaxLimit:     50,
			Concurrency:  8,
			ItemTimeout:  2 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, then the TOML file at path (or
// NEST_CONFIG when path is empty), then environment variables. A .env file in the
// working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, assuming environment variables are set.")
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("NEST_CONFIG")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.Env = getEnv("ENV", c.Env)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Storage = getEnv("STORAGE", c.Storage)
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDatabase = getEnv("MONGO_DATABASE", c.MongoDatabase)
	c.PostgresUrl = getEnv("POSTGRES_URL", c.PostgresUrl)
	c.FirebaseCredentialsPath = getEnv("FIREBASE_CREDENTIALS_PATH", c.FirebaseCredentialsPath)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.MetricsPort = getEnv("METRICS_PORT", c.MetricsPort)

	var errs []error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SESSION_TTL", &c.SessionTTL},
		{"STORE_TIMEOUT", &c.StoreTimeout},
		{"PROFILE_TIMEOUT", &c.ProfileTimeout},
		{"RETRY_INTERVAL", &c.RetryInterval},
		{"PROFILE_CACHE_TTL", &c.ProfileCacheTTL},
		{"FEED_ITEM_TIMEOUT", &c.Feed.ItemTimeout},
	}
	for _, d := range durations {
		errs = append(errs, getEnvDuration(d.key, d.dst))
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"PROFILE_CACHE_SIZE", &c.ProfileCacheSize},
		{"FEED_DEFAULT_LIMIT", &c.Feed.DefaultLimit},
		{"FEED_MAX_LIMIT", &c.Feed.MaxLimit},
		{"FEED_CONCURRENCY", &c.Feed.Concurrency},
	}
	for _, i := range ints {
		errs = append(errs, getEnvInt(i.key, i.dst))
	}
	return errors.Join(errs...)
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage {
	case StorageMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("mongo_uri is required when storage is mongo"))
		}
		if c.MongoDatabase == "" {
			errs = append(errs, errors.New("mongo_database is required when storage is mongo"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q, expected %s or %s", c.Storage, StorageMongo, StorageMemory))
	}
	if c.Feed.DefaultLimit < 1 || c.Feed.MaxLimit < c.Feed.DefaultLimit {
		errs = append(errs, fmt.Errorf("feed limits must satisfy 1 <= default_limit (%d) <= max_limit (%d)", c.Feed.DefaultLimit, c.Feed.MaxLimit))
	}
	if c.Feed.Concurrency < 1 {
		errs = append(errs, errors.New("feed.concurrency must be positive"))
	}
	if c.ProfileCacheSize < 0 {
		errs = append(errs, errors.New("profile_cache_size must not be negative"))
	}
	switch {
	case c.JWTSecret == "":
		errs = append(errs, errors.New("jwt_secret is required"))
	case c.IsProduction() && c.JWTSecret == DevJWTSecret:
		errs = append(errs, errors.New("jwt_secret must be set in production; the development default is public"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the server runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, dst *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func getEnvDuration(key string, dst *time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
