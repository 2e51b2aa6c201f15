package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Env      string
	LogLevel string

	// Backend gateway
	APIBaseURL     string
	APIToken       string
	RequestTimeout time.Duration

	// Realtime event stream
	RealtimeURL                string
	RealtimeReconnectBaseDelay time.Duration
	RealtimeReconnectMaxDelay  time.Duration

	// Local cache persistence
	CacheDir           string
	CacheBuster        string
	CacheMaxAge        time.Duration
	CacheFlushInterval time.Duration

	// Optional shared snapshot store for kiosk deployments
	RedisAddr     string
	RedisPassword string

	// Diagnostics server
	DiagPort    string
	DiagEnabled bool

	// Device capability overrides (normally auto-detected)
	DeviceMemoryGB      int
	DeviceCores         int
	DeviceConnection    string
	DeviceViewportWidth int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:3000/api"),
		APIToken:       getEnv("API_TOKEN", ""),
		RequestTimeout: getEnvAsDuration("API_REQUEST_TIMEOUT", 15*time.Second),

		RealtimeURL:                getEnv("REALTIME_URL", ""),
		RealtimeReconnectBaseDelay: getEnvAsDuration("REALTIME_RECONNECT_BASE_DELAY", time.Second),
		RealtimeReconnectMaxDelay:  getEnvAsDuration("REALTIME_RECONNECT_MAX_DELAY", 30*time.Second),

		CacheDir:           getEnv("CACHE_DIR", defaultCacheDir()),
		CacheBuster:        getEnv("CACHE_BUSTER", "1.0.0"),
		CacheMaxAge:        getEnvAsDuration("CACHE_MAX_AGE", 7*24*time.Hour),
		CacheFlushInterval: getEnvAsDuration("CACHE_FLUSH_INTERVAL", 30*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		DiagPort:    getEnv("DIAG_PORT", "8099"),
		DiagEnabled: getEnvAsBool("DIAG_ENABLED", true),

		DeviceMemoryGB:      getEnvAsInt("DEVICE_MEMORY_GB", 0),
		DeviceCores:         getEnvAsInt("DEVICE_CORES", 0),
		DeviceConnection:    getEnv("DEVICE_CONNECTION", ""),
		DeviceViewportWidth: getEnvAsInt("DEVICE_VIEWPORT_WIDTH", 0),
	}
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".7pet-cache"
	}
	return home + "/.7pet/query-cache"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
