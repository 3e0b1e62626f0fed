package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"GOSSIP_ENV_FILE", "GOSSIP_RETRY_THRESHOLD", "GOSSIP_RETRY_INTERVAL", "GOSSIP_ACK_MEMORY_SIZE",
	"GOSSIP_ACK_MEMORY_TTL", "GOSSIP_MAX_LINE_BYTES", "METRICS_ADDR", "SHUTDOWN_TIMEOUT",
	"LOG_LEVEL", "LOG_FORMAT", "LOG_FILE_PATH", "LOG_MAX_SIZE", "LOG_MAX_BACKUPS", "LOG_MAX_AGE", "LOG_COMPRESS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gossip.RetryThreshold != 30*time.Millisecond {
		t.Fatalf("expected 30ms threshold, got %s", cfg.Gossip.RetryThreshold)
	}
	if cfg.Gossip.RetryInterval != 15*time.Millisecond {
		t.Fatalf("expected 15ms interval, got %s", cfg.Gossip.RetryInterval)
	}
	if cfg.Gossip.MaxLineBytes != 1<<20 {
		t.Fatalf("expected 1MiB line limit, got %d", cfg.Gossip.MaxLineBytes)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" || !cfg.Log.Compress {
		t.Fatalf("unexpected log defaults: %+v", cfg.Log)
	}
	if cfg.MetricsAddr != "" {
		t.Fatalf("expected metrics disabled by default, got %q", cfg.MetricsAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOSSIP_RETRY_THRESHOLD", "100ms")
	t.Setenv("GOSSIP_ACK_MEMORY_SIZE", "16")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("METRICS_ADDR", ":9102")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gossip.RetryThreshold != 100*time.Millisecond {
		t.Fatalf("expected 100ms threshold, got %s", cfg.Gossip.RetryThreshold)
	}
	if cfg.Gossip.AckMemorySize != 16 {
		t.Fatalf("expected memory size 16, got %d", cfg.Gossip.AckMemorySize)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.MetricsAddr != ":9102" {
		t.Fatalf("expected metrics addr, got %q", cfg.MetricsAddr)
	}
}

func TestLoadNonPositiveFallsBack(t *testing.T) {
	t.Setenv("GOSSIP_RETRY_INTERVAL", "0s")
	t.Setenv("GOSSIP_MAX_LINE_BYTES", "-1")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gossip.RetryInterval != 15*time.Millisecond {
		t.Fatalf("expected default interval, got %s", cfg.Gossip.RetryInterval)
	}
	if cfg.Gossip.MaxLineBytes != 1<<20 {
		t.Fatalf("expected default line limit, got %d", cfg.Gossip.MaxLineBytes)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"GOSSIP_RETRY_THRESHOLD": "soon",
		"GOSSIP_ACK_MEMORY_SIZE": "lots",
		"LOG_COMPRESS":           "maybe",
		"LOG_FORMAT":             "xml",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, val)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.env")
	if err := os.WriteFile(path, []byte("GOSSIP_RETRY_THRESHOLD=45ms\nLOG_LEVEL=warn\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("GOSSIP_ENV_FILE", path)
	t.Setenv("LOG_LEVEL", "error")
	// godotenv sets this outside of t.Setenv.
	t.Cleanup(func() { os.Unsetenv("GOSSIP_RETRY_THRESHOLD") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gossip.RetryThreshold != 45*time.Millisecond {
		t.Fatalf("expected threshold from env file, got %s", cfg.Gossip.RetryThreshold)
	}
	if cfg.Log.Level != "error" {
		t.Fatalf("expected process env to win over file, got %q", cfg.Log.Level)
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	t.Setenv("GOSSIP_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing env file")
	}
}
