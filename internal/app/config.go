package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jordanhubbard/llmdash/internal/settings"
	"github.com/jordanhubbard/llmdash/internal/slot"
)

type Config struct {
	ListenAddr string

	// Logging.
	LogLevel      string
	LogFile       string // optional rotating file sink
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// Key slot persistence.
	SlotBackend   string // file, sqlite, redis, badger, memory
	SlotName      string
	DataDir       string
	SQLiteDSN     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Dashboard derivation.
	TimeZone    string // IANA name or "Local"
	CatalogFile string // optional YAML model catalog

	// Initial display settings.
	Theme       string
	Language    string
	Currency    string
	AutoRefresh bool

	// HTTP hardening.
	CORSOrigins       []string // empty = ["*"]
	RateLimitRPS      int
	RateLimitBurst    int
	IdempotencyTTLSec int

	// OpenTelemetry.
	OTelEnabled     bool
	OTelEndpoint    string
	OTelServiceName string
	OTelSampleRatio float64
}

// LoadDotEnv loads variables from the given .env files without overriding
// anything already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ReloadDotEnv re-reads the given .env files and lets their values replace
// what is currently set, so edits made since startup take effect. Missing
// files are skipped.
func ReloadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Overload(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reload %s: %w", p, err)
		}
	}
	return nil
}

func LoadConfig() (Config, error) {
	d := settings.Defaults()
	cfg := Config{
		ListenAddr: getEnv("LLMDASH_LISTEN_ADDR", ":8080"),

		LogLevel:      getEnv("LLMDASH_LOG_LEVEL", "info"),
		LogFile:       getEnv("LLMDASH_LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LLMDASH_LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: getEnvInt("LLMDASH_LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getEnvInt("LLMDASH_LOG_MAX_AGE_DAYS", 28),

		SlotBackend:   getEnv("LLMDASH_SLOT_BACKEND", "file"),
		SlotName:      getEnv("LLMDASH_SLOT_NAME", slot.DefaultName),
		DataDir:       getEnv("LLMDASH_DATA_DIR", "./data"),
		SQLiteDSN:     getEnv("LLMDASH_SQLITE_DSN", "file:./data/llmdash.sqlite"),
		RedisAddr:     getEnv("LLMDASH_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("LLMDASH_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("LLMDASH_REDIS_DB", 0),

		TimeZone:    getEnv("LLMDASH_TIMEZONE", "Local"),
		CatalogFile: getEnv("LLMDASH_CATALOG_FILE", ""),

		Theme:       getEnv("LLMDASH_THEME", d.Theme),
		Language:    getEnv("LLMDASH_LANGUAGE", d.Language),
		Currency:    getEnv("LLMDASH_CURRENCY", d.Currency),
		AutoRefresh: getEnvBool("LLMDASH_AUTO_REFRESH", d.AutoRefresh),

		CORSOrigins:       getEnvStringSlice("LLMDASH_CORS_ORIGINS", nil),
		RateLimitRPS:      getEnvInt("LLMDASH_RATE_LIMIT_RPS", 20),
		RateLimitBurst:    getEnvInt("LLMDASH_RATE_LIMIT_BURST", 40),
		IdempotencyTTLSec: getEnvInt("LLMDASH_IDEMPOTENCY_TTL_SECS", 600),

		OTelEnabled:     getEnvBool("LLMDASH_OTEL_ENABLED", false),
		OTelEndpoint:    getEnv("LLMDASH_OTEL_ENDPOINT", "localhost:4318"),
		OTelServiceName: getEnv("LLMDASH_OTEL_SERVICE_NAME", "llmdash"),
		OTelSampleRatio: getEnvFloat("LLMDASH_OTEL_SAMPLE_RATIO", 1.0),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks config values for obviously invalid settings.
func (c Config) Validate() error {
	switch strings.ToLower(c.SlotBackend) {
	case "file", "sqlite", "redis", "badger", "memory":
	default:
		return fmt.Errorf("LLMDASH_SLOT_BACKEND must be one of file, sqlite, redis, badger, memory; got %q", c.SlotBackend)
	}
	if c.SlotName == "" {
		return errors.New("LLMDASH_SLOT_NAME must not be empty")
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("LLMDASH_RATE_LIMIT_RPS must be > 0, got %d", c.RateLimitRPS)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("LLMDASH_RATE_LIMIT_BURST must be > 0, got %d", c.RateLimitBurst)
	}
	if c.IdempotencyTTLSec <= 0 {
		return fmt.Errorf("LLMDASH_IDEMPOTENCY_TTL_SECS must be > 0, got %d", c.IdempotencyTTLSec)
	}
	if c.OTelSampleRatio < 0 || c.OTelSampleRatio > 1 {
		return fmt.Errorf("LLMDASH_OTEL_SAMPLE_RATIO must be within [0, 1], got %g", c.OTelSampleRatio)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("LLMDASH_TIMEZONE: %w", err)
	}
	return nil
}

// Location resolves TimeZone for dashboard day labels.
func (c Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

// SlotConfig maps the persistence settings onto the slot package.
func (c Config) SlotConfig() slot.Config {
	return slot.Config{
		Backend:   c.SlotBackend,
		Name:      c.SlotName,
		Dir:       c.DataDir,
		SQLiteDSN: c.SQLiteDSN,
		RedisAddr: c.RedisAddr,
		RedisPass: c.RedisPassword,
		RedisDB:   c.RedisDB,
	}
}

// InitialSettings returns the display settings the server starts with.
func (c Config) InitialSettings() settings.Settings {
	return settings.Settings{
		Theme:       c.Theme,
		Language:    c.Language,
		Currency:    c.Currency,
		AutoRefresh: c.AutoRefresh,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getEnvStringSlice(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		var result []string
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				result = append(result, s)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return def
}
