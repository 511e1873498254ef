package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Browser  BrowserConfig
	Pricing  PricingConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Memcache MemcacheConfig
	Warmer   WarmerConfig
	Logging  LoggingConfig
	API      APIConfig

	SourcesFile string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type BrowserConfig struct {
	Headless        bool
	Timeout         time.Duration
	SelectorTimeout time.Duration
	MaxSessions     int
	UserAgent       string
	ViewportWidth   int
	ViewportHeight  int
	AcceptLanguage  string
	TimezoneID      string
	Locale          string
	ProxyServer     string
	NavMinDelay     time.Duration
	NavMaxDelay     time.Duration
}

type PricingConfig struct {
	Margin        string
	Divisor       string
	MaxAttempts   int
	RetryInterval time.Duration
	RateTimeout   time.Duration
}

type CacheConfig struct {
	Backend  string
	Window   time.Duration
	MaxItems int64
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MemcacheConfig struct {
	Addr string
}

type WarmerConfig struct {
	Interval time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type APIConfig struct {
	LegacyKeys   bool
	ProbeRateAPI bool
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("PORT", "5000"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 90*time.Second),
			RequestTimeout:  getDurationOrDefault("SERVER_REQUEST_TIMEOUT", 75*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", []string{"*"}),
		},
		Browser: BrowserConfig{
			Headless:        getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:         getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			SelectorTimeout: getDurationOrDefault("BROWSER_SELECTOR_TIMEOUT", 20*time.Second),
			MaxSessions:     getIntOrDefault("BROWSER_MAX_SESSIONS", 4),
			UserAgent:       getEnvOrDefault("BROWSER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
			ViewportWidth:   getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight:  getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage:  getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			TimezoneID:      getEnvOrDefault("BROWSER_TIMEZONE", "UTC"),
			Locale:          getEnvOrDefault("BROWSER_LOCALE", "en-US"),
			ProxyServer:     getEnvOrDefault("BROWSER_PROXY", ""),
			NavMinDelay:     getDurationOrDefault("BROWSER_NAV_MIN_DELAY", 0),
			NavMaxDelay:     getDurationOrDefault("BROWSER_NAV_MAX_DELAY", 0),
		},
		Pricing: PricingConfig{
			Margin:        getEnvOrDefault("PRICE_MARGIN", "0.75"),
			Divisor:       getEnvOrDefault("PRICE_DIVISOR", "1"),
			MaxAttempts:   getIntOrDefault("FETCH_MAX_ATTEMPTS", 1),
			RetryInterval: getDurationOrDefault("FETCH_RETRY_INTERVAL", 2*time.Second),
			RateTimeout:   getDurationOrDefault("RATE_API_TIMEOUT", 10*time.Second),
		},
		Cache: CacheConfig{
			Backend:  getEnvOrDefault("CACHE_BACKEND", "memory"),
			Window:   getDurationOrDefault("CACHE_WINDOW", 5*time.Minute),
			MaxItems: int64(getIntOrDefault("CACHE_MAX_ITEMS", 1024)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Memcache: MemcacheConfig{
			Addr: getEnvOrDefault("MEMCACHE_ADDR", "localhost:11211"),
		},
		Warmer: WarmerConfig{
			Interval: getDurationOrDefault("WARMER_INTERVAL", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		API: APIConfig{
			LegacyKeys:   getBoolOrDefault("API_LEGACY_KEYS", false),
			ProbeRateAPI: getBoolOrDefault("HEALTH_PROBE_RATE_API", true),
		},
		SourcesFile: getEnvOrDefault("SOURCES_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Server.Port)
	}

	if c.Browser.Timeout <= 0 {
		return fmt.Errorf("BROWSER_TIMEOUT must be positive")
	}

	if c.Browser.MaxSessions < 1 {
		return fmt.Errorf("BROWSER_MAX_SESSIONS must be at least 1")
	}

	if c.Browser.NavMinDelay < 0 || c.Browser.NavMaxDelay < c.Browser.NavMinDelay {
		return fmt.Errorf("BROWSER_NAV_MAX_DELAY must be at least BROWSER_NAV_MIN_DELAY")
	}

	if c.Pricing.MaxAttempts < 1 {
		return fmt.Errorf("FETCH_MAX_ATTEMPTS must be at least 1")
	}

	if c.Cache.Window < 0 {
		return fmt.Errorf("CACHE_WINDOW cannot be negative")
	}

	switch c.Cache.Backend {
	case "memory", "redis", "memcache":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}

	if c.Warmer.Interval < 0 {
		return fmt.Errorf("WARMER_INTERVAL cannot be negative")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
