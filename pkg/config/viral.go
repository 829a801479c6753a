package config

import (
	"strings"
	"time"
)

// DefaultWorkerURL is the general-purpose viral worker endpoint used when no
// environment-specific URL applies.
const DefaultWorkerURL = "http://localhost:8787"

// environmentURLs maps deployment environment names to worker endpoints.
// An unrecognized environment keeps the general default.
var environmentURLs = map[string]string{
	"local":       "http://localhost:8787",
	"development": "https://viral-dev-worker.workers.dev",
	"production":  "https://viral-worker.workers.dev",
}

// ViralConfig holds the resolved settings for the viral worker integration.
type ViralConfig struct {
	WorkerURL string

	DefaultMaxImages     int
	DefaultMinEngagement int
	DefaultPlatforms     []string

	RequestTimeout time.Duration
	MaxRetries     int

	ImagesDir         string
	MaxImageSizeMB    int
	AllowedExtensions []string

	EnableFallback  bool
	FallbackMessage string
}

// LoadViralConfig resolves the viral worker configuration from the
// environment. Every setting has a hardcoded default; this never fails.
//
// VIRAL_WORKER_URL overrides the base default, but an explicit entry in the
// per-environment URL table (keyed by ENVIRONMENT) takes precedence over both.
func LoadViralConfig() ViralConfig {
	cfg := ViralConfig{
		WorkerURL:            GetEnv("VIRAL_WORKER_URL", DefaultWorkerURL),
		DefaultMaxImages:     GetEnvInt("VIRAL_MAX_IMAGES", 20),
		DefaultMinEngagement: GetEnvInt("VIRAL_MIN_ENGAGEMENT", 50),
		DefaultPlatforms:     ViralPlatforms(),
		RequestTimeout:       GetEnvDuration("VIRAL_REQUEST_TIMEOUT", 30*time.Second),
		MaxRetries:           GetEnvInt("VIRAL_MAX_RETRIES", 3),
		ImagesDir:            GetEnv("VIRAL_IMAGES_DIR", "analyses_data/viral_images"),
		MaxImageSizeMB:       GetEnvInt("VIRAL_MAX_IMAGE_SIZE_MB", 10),
		AllowedExtensions:    []string{"jpg", "jpeg", "png", "gif", "webp"},
		EnableFallback:       GetEnvBool("VIRAL_ENABLE_FALLBACK", true),
		FallbackMessage:      "Viral worker unavailable - returning fallback result",
	}

	if url, ok := environmentURLs[GetEnv("ENVIRONMENT", "local")]; ok {
		cfg.WorkerURL = url
	}

	return cfg
}

// IsViralEnabled reports whether the viral integration is enabled at all.
func IsViralEnabled() bool {
	return strings.ToLower(GetEnv("ENABLE_VIRAL", "true")) == "true"
}

// ViralPlatforms returns the configured target platforms, parsed from a
// comma-separated VIRAL_PLATFORMS value.
func ViralPlatforms() []string {
	raw := GetEnv("VIRAL_PLATFORMS", "instagram,facebook")
	parts := strings.Split(raw, ",")
	platforms := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			platforms = append(platforms, trimmed)
		}
	}
	return platforms
}
