package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Dashboard DashboardConfig
	Sync      SyncConfig
	Ledger    LedgerConfig
	Browser   BrowserConfig
	Loop      LoopConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Logging   LoggingConfig
}

type DashboardConfig struct {
	SignInURL      string
	OrdersURL      string
	Email          string
	Password       string
	CookieFile     string
	ElementTimeout time.Duration
	DetailTimeout  time.Duration
}

type SyncConfig struct {
	Endpoint string
	Timeout  time.Duration
}

type LedgerConfig struct {
	Path string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

type LoopConfig struct {
	Interval time.Duration
	MinSleep time.Duration
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Enabled bool
	Addr    string
	Stream  string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Dashboard: DashboardConfig{
			SignInURL:      getEnvOrDefault("ZYDA_SIGNIN_URL", "https://dash.zyda.com/sign-in"),
			OrdersURL:      getEnvOrDefault("ZYDA_ORDERS_URL", "https://dash.zyda.com/5617/orders/current?branch=all&date=all&driverId=&isManualOrder=false&searchStatus=&searchValue=&sortBy=created_at"),
			Email:          getEnvOrDefault("ZYDA_EMAIL", ""),
			Password:       getEnvOrDefault("ZYDA_PASSWORD", ""),
			CookieFile:     getEnvOrDefault("ZYDA_COOKIE_FILE", "zyda_session_cookies.json"),
			ElementTimeout: getDurationOrDefault("ZYDA_ELEMENT_TIMEOUT", 10*time.Second),
			DetailTimeout:  getDurationOrDefault("ZYDA_DETAIL_TIMEOUT", 5*time.Second),
		},
		Sync: SyncConfig{
			Endpoint: getEnvOrDefault("ZYDA_API_ENDPOINT", "https://advfoodapp.clarastars.com/api/zyda/orders"),
			Timeout:  getDurationOrDefault("ZYDA_API_TIMEOUT", 30*time.Second),
		},
		Ledger: LedgerConfig{
			Path: getEnvOrDefault("ZYDA_LEDGER_FILE", "processed_zyda_phones.json"),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-US,en;q=0.9,ar;q=0.8"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Asia/Riyadh"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-US"),
		},
		Loop: LoopConfig{
			Interval: getDurationOrDefault("LOOP_INTERVAL", 60*time.Second),
			MinSleep: getDurationOrDefault("LOOP_MIN_SLEEP", 10*time.Second),
		},
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolOrDefault("DB_ENABLED", false),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "zyda_sync"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled: getBoolOrDefault("REDIS_ENABLED", false),
			Addr:    getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Stream:  getEnvOrDefault("REDIS_STREAM", "stream:order_sync"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Sync.Endpoint == "" {
		return fmt.Errorf("ZYDA_API_ENDPOINT must not be empty")
	}

	if c.Dashboard.Email == "" || c.Dashboard.Password == "" {
		return fmt.Errorf("ZYDA_EMAIL and ZYDA_PASSWORD are required")
	}

	if c.Loop.MinSleep > c.Loop.Interval {
		return fmt.Errorf("LOOP_MIN_SLEEP cannot be greater than LOOP_INTERVAL")
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
