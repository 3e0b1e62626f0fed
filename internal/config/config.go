package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultRetryThreshold  = 30 * time.Millisecond
	defaultRetryInterval   = 15 * time.Millisecond
	defaultAckMemorySize   = 4096
	defaultAckMemoryTTL    = 10 * time.Second
	defaultMaxLineBytes    = 1 << 20
	defaultShutdownTimeout = 5 * time.Second
	defaultLogMaxSize      = 100
	defaultLogMaxBackups   = 10
	defaultLogMaxAge       = 30
)

// Config holds runtime configuration for a gossip node.
type Config struct {
	Gossip struct {
		RetryThreshold time.Duration
		RetryInterval  time.Duration
		AckMemorySize  int
		AckMemoryTTL   time.Duration
		MaxLineBytes   int
	}

	Log struct {
		Level      string
		Format     string
		FilePath   string
		MaxSize    int
		MaxBackups int
		MaxAge     int
		Compress   bool
	}

	MetricsAddr     string
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment, optionally overlaid by the
// dotenv file named in GOSSIP_ENV_FILE. Variables already set win over the file.
func Load() (Config, error) {
	var cfg Config

	if path := strings.TrimSpace(os.Getenv("GOSSIP_ENV_FILE")); path != "" {
		if err := godotenv.Load(path); err != nil {
			return cfg, fmt.Errorf("load GOSSIP_ENV_FILE: %w", err)
		}
	}

	var err error
	if cfg.Gossip.RetryThreshold, err = parseDurationEnv("GOSSIP_RETRY_THRESHOLD", defaultRetryThreshold); err != nil {
		return cfg, err
	}
	if cfg.Gossip.RetryInterval, err = parseDurationEnv("GOSSIP_RETRY_INTERVAL", defaultRetryInterval); err != nil {
		return cfg, err
	}
	if cfg.Gossip.AckMemorySize, err = parseIntEnv("GOSSIP_ACK_MEMORY_SIZE", defaultAckMemorySize); err != nil {
		return cfg, err
	}
	if cfg.Gossip.AckMemoryTTL, err = parseDurationEnv("GOSSIP_ACK_MEMORY_TTL", defaultAckMemoryTTL); err != nil {
		return cfg, err
	}
	if cfg.Gossip.MaxLineBytes, err = parseIntEnv("GOSSIP_MAX_LINE_BYTES", defaultMaxLineBytes); err != nil {
		return cfg, err
	}

	cfg.MetricsAddr = strings.TrimSpace(os.Getenv("METRICS_ADDR"))
	if cfg.ShutdownTimeout, err = parseDurationEnv("SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		return cfg, err
	}

	cfg.Log.Level = strings.ToLower(envWithDefault("LOG_LEVEL", "info"))
	cfg.Log.Format = strings.ToLower(envWithDefault("LOG_FORMAT", "json"))
	if cfg.Log.Format != "json" && cfg.Log.Format != "console" {
		return cfg, fmt.Errorf("LOG_FORMAT must be json or console, got %q", cfg.Log.Format)
	}
	cfg.Log.FilePath = strings.TrimSpace(os.Getenv("LOG_FILE_PATH"))
	if cfg.Log.MaxSize, err = parseIntEnv("LOG_MAX_SIZE", defaultLogMaxSize); err != nil {
		return cfg, err
	}
	if cfg.Log.MaxBackups, err = parseIntEnv("LOG_MAX_BACKUPS", defaultLogMaxBackups); err != nil {
		return cfg, err
	}
	if cfg.Log.MaxAge, err = parseIntEnv("LOG_MAX_AGE", defaultLogMaxAge); err != nil {
		return cfg, err
	}
	if cfg.Log.Compress, err = parseBoolEnv("LOG_COMPRESS", true); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func envWithDefault(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func parseBoolEnv(key string, def bool) (bool, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

// parseDurationEnv falls back to def for unset or non-positive values.
func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// parseIntEnv falls back to def for unset or non-positive values.
func parseIntEnv(key string, def int) (int, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return def, fmt.Errorf("parse %s: %w", key, err)
	}
	if i <= 0 {
		return def, nil
	}
	return i, nil
}
