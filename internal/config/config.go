package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Corpus database
	DBPath string `yaml:"db_path"`

	// Clustering
	DefaultCutoff         float64 `yaml:"default_cluster_cutoff"`
	LargeClusterThreshold int     `yaml:"large_cluster_threshold"`
	MaxDocumentChars      int     `yaml:"max_document_chars"`

	// Metadata cache
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	CacheCleanup time.Duration `yaml:"cache_cleanup"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Per-view latency window
	ViewStatsWindow time.Duration `yaml:"view_stats_window"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:                  "8090",
		DBPath:                "clusterdesk.db",
		DefaultCutoff:         0.9,
		LargeClusterThreshold: 1000,
		MaxDocumentChars:      10000,
		CacheTTL:              time.Hour,
		CacheCleanup:          10 * time.Minute,
		MaxUploadBytes:        10 << 20, // 10MB
		ViewStatsWindow:       time.Hour,
		PDFFallbackPdftotext:  true,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CLUSTERDESK_CONFIG if set, then environment variables.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CLUSTERDESK_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.DBPath = envOr("DB_PATH", cfg.DBPath)
	cfg.DefaultCutoff = envFloat("DEFAULT_CLUSTER_CUTOFF", cfg.DefaultCutoff)
	cfg.LargeClusterThreshold = envInt("LARGE_CLUSTER_THRESHOLD", cfg.LargeClusterThreshold)
	cfg.MaxDocumentChars = envInt("MAX_DOCUMENT_CHARS", cfg.MaxDocumentChars)
	cfg.CacheTTL = envDuration("CACHE_TTL", cfg.CacheTTL)
	cfg.CacheCleanup = envDuration("CACHE_CLEANUP", cfg.CacheCleanup)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.ViewStatsWindow = envDuration("VIEW_STATS_WINDOW", cfg.ViewStatsWindow)
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	def := Defaults()
	if cfg.LargeClusterThreshold <= 0 {
		cfg.LargeClusterThreshold = def.LargeClusterThreshold
	}
	if cfg.MaxDocumentChars <= 0 {
		cfg.MaxDocumentChars = def.MaxDocumentChars
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.CacheCleanup <= 0 {
		cfg.CacheCleanup = def.CacheCleanup
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.ViewStatsWindow <= 0 {
		cfg.ViewStatsWindow = def.ViewStatsWindow
	}
	return cfg, nil
}

// mergeFile overlays the non-zero fields of a YAML file onto c.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if math.IsNaN(c.DefaultCutoff) || c.DefaultCutoff < 0 || c.DefaultCutoff > 1 {
		return fmt.Errorf("DEFAULT_CLUSTER_CUTOFF must be within [0, 1], got %v", c.DefaultCutoff)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
