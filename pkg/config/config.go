package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Storage, media and cache backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
	MediaDisk       = "disk"
	MediaGridFS     = "gridfs"
	CacheMemory     = "memory"
	CacheRedis      = "redis"
)

type Config struct {
	Port                    string
	Env                     string
	FirebaseCredentialsPath string
	PostgresConnStr         string
	StorageDriver           string
	MongoURI                string
	MongoDatabase           string
	MediaDriver             string
	MediaRoot               string
	CacheDriver             string
	RedisURL                string
	IndexCacheTTL           time.Duration
	JWTSecret               string
	SessionTTL              time.Duration
	MetricsPort             string
}

// Load reads the configuration from the environment, after loading a .env
// file when one is present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		StorageDriver:           getEnv("STORAGE_DRIVER", StoragePostgres),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "yatube"),
		MediaDriver:             getEnv("MEDIA_DRIVER", MediaDisk),
		MediaRoot:               getEnv("MEDIA_ROOT", "./media"),
		CacheDriver:             getEnv("CACHE_DRIVER", CacheMemory),
		RedisURL:                getEnv("REDIS_URL", ""),
		IndexCacheTTL:           getDuration("INDEX_CACHE_TTL", 20*time.Second),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		SessionTTL:              getDuration("SESSION_TTL", 72*time.Hour),
		MetricsPort:             getEnv("METRICS_PORT", "9090"),
	}
}

// Production reports whether the service runs with ENV=production.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET environment variable not set"))
	}

	switch c.StorageDriver {
	case StoragePostgres:
		if c.PostgresConnStr == "" {
			errs = append(errs, errors.New("POSTGRES_CONN_STR environment variable not set"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	switch c.MediaDriver {
	case MediaGridFS:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI environment variable not set"))
		}
	case MediaDisk:
	default:
		errs = append(errs, fmt.Errorf("unknown MEDIA_DRIVER %q", c.MediaDriver))
	}

	switch c.CacheDriver {
	case CacheRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL environment variable not set"))
		}
	case CacheMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_DRIVER %q", c.CacheDriver))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Invalid duration, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return d
}
