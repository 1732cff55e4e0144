package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML with environment
// overrides. A missing file is fine; defaults suit a local backend.
type FileConfig struct {
	BackendURL      string `yaml:"backendURL"`
	HTTPTimeout     string `yaml:"httpTimeout"`
	LogLevel        string `yaml:"logLevel"`
	DataDir         string `yaml:"dataDir"`
	RedisAddr       string `yaml:"redisAddr"`
	RedisPassword   string `yaml:"redisPassword"`
	CacheTTL        string `yaml:"cacheTTL"`
	PageSize        int    `yaml:"pageSize"`
	CachePrimeSize  int    `yaml:"cachePrimeSize"`
	DisplayTimezone string `yaml:"displayTimezone"`

	ArchiveEndpoint  string `yaml:"archiveEndpoint"`
	ArchiveAccessKey string `yaml:"archiveAccessKey"`
	ArchiveSecretKey string `yaml:"archiveSecretKey"`
	ArchiveBucket    string `yaml:"archiveBucket"`
	ArchiveUseSSL    bool   `yaml:"archiveUseSSL"`
}

func defaults() FileConfig {
	dataDir := ".neuroscan"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".neuroscan")
	}
	return FileConfig{
		BackendURL:      "http://localhost:8000",
		HTTPTimeout:     "15s",
		LogLevel:        "info",
		DataDir:         dataDir,
		CacheTTL:        "5m",
		PageSize:        5,
		CachePrimeSize:  100,
		DisplayTimezone: "Asia/Kathmandu",
	}
}

// Load reads config from path (defaults to config.yaml); a missing file
// yields the defaults. Environment variables override file values.
func Load(path string) (FileConfig, error) {
	cfg := defaults()
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	if v := os.Getenv("NEUROSCAN_BACKEND_URL"); v != "" {
		cfg.BackendURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("NEUROSCAN_HTTP_TIMEOUT"); v != "" {
		cfg.HTTPTimeout = strings.TrimSpace(v)
	}
	if v := os.Getenv("NEUROSCAN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("NEUROSCAN_DATA_DIR"); v != "" {
		cfg.DataDir = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("NEUROSCAN_CACHE_TTL"); v != "" {
		cfg.CacheTTL = strings.TrimSpace(v)
	}
	if v := os.Getenv("NEUROSCAN_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.PageSize = n
		}
	}
	if v := os.Getenv("NEUROSCAN_CACHE_PRIME_SIZE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.CachePrimeSize = n
		}
	}
	if v := os.Getenv("NEUROSCAN_DISPLAY_TIMEZONE"); v != "" {
		cfg.DisplayTimezone = strings.TrimSpace(v)
	}
	if v := os.Getenv("NEUROSCAN_ARCHIVE_ENDPOINT"); v != "" {
		cfg.ArchiveEndpoint = strings.TrimSpace(v)
	}
	if v := os.Getenv("NEUROSCAN_ARCHIVE_ACCESS_KEY"); v != "" {
		cfg.ArchiveAccessKey = v
	}
	if v := os.Getenv("NEUROSCAN_ARCHIVE_SECRET_KEY"); v != "" {
		cfg.ArchiveSecretKey = v
	}
	if v := os.Getenv("NEUROSCAN_ARCHIVE_BUCKET"); v != "" {
		cfg.ArchiveBucket = strings.TrimSpace(v)
	}
	if v := os.Getenv("NEUROSCAN_ARCHIVE_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.ArchiveUseSSL = b
		}
	}
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.BackendURL) == "" {
		return errors.New("config: backendURL is required (set in config.yaml or NEUROSCAN_BACKEND_URL)")
	}
	if cfg.PageSize <= 0 {
		return errors.New("config: pageSize must be > 0")
	}
	if cfg.CachePrimeSize <= 0 {
		return errors.New("config: cachePrimeSize must be > 0")
	}
	if cfg.ArchiveEndpoint != "" && cfg.ArchiveBucket == "" {
		return errors.New("config: archiveBucket is required when archiveEndpoint is set")
	}
	return nil
}

// ParseHTTPTimeout parses the HTTP timeout duration string.
func ParseHTTPTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 15 * time.Second, nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid httpTimeout duration: %w", err)
	}
	return dur, nil
}

// ParseCacheTTL parses the results-cache TTL duration string.
func ParseCacheTTL(s string) (time.Duration, error) {
	if s == "" {
		return 5 * time.Minute, nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid cacheTTL duration: %w", err)
	}
	return dur, nil
}
