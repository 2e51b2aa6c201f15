package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Env != "development" {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if cfg.APIBaseURL == "" {
		t.Error("APIBaseURL should have a default")
	}
	if cfg.CacheMaxAge != 7*24*time.Hour {
		t.Errorf("CacheMaxAge = %v, want 168h", cfg.CacheMaxAge)
	}
	if cfg.CacheBuster != "1.0.0" {
		t.Errorf("CacheBuster = %q, want 1.0.0", cfg.CacheBuster)
	}
	if !cfg.DiagEnabled {
		t.Error("DiagEnabled should default to true")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.7pet.test")
	t.Setenv("API_REQUEST_TIMEOUT", "5s")
	t.Setenv("DEVICE_MEMORY_GB", "2")
	t.Setenv("DIAG_ENABLED", "false")

	cfg := Load()

	if cfg.APIBaseURL != "https://api.7pet.test" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
	if cfg.DeviceMemoryGB != 2 {
		t.Errorf("DeviceMemoryGB = %d, want 2", cfg.DeviceMemoryGB)
	}
	if cfg.DiagEnabled {
		t.Error("DiagEnabled should be false")
	}
}

func TestGetEnvAsDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("CACHE_MAX_AGE", "not-a-duration")
	cfg := Load()
	if cfg.CacheMaxAge != 7*24*time.Hour {
		t.Errorf("CacheMaxAge = %v, want default on parse failure", cfg.CacheMaxAge)
	}
}
