// Package core provides shared constants and helpers for the Likes CLI.
package core

import (
	"os"
	"path/filepath"
	"time"
)

// API configuration
const (
	APIBaseURL       = "https://my.likes.com.cn/api/open"
	APIKeyEnvVar     = "LIKES_API_KEY"
	ConfigFileEnvVar = "LIKES_CONFIG_FILE"
	CacheDirEnvVar   = "LIKES_CACHE_DIR"
)

// Date formats
const (
	APIDateFmt = "2006-01-02"
)

// Cache windows
const (
	FrozenDays        = 7  // Data older than this is assumed immutable upstream
	ChunkDays         = 30 // Backfill chunk for activities and feedback
	PlanChunkDays     = 42 // Backfill chunk and fallback window for plans
	BackfillEmptyStop = 6  // Consecutive empty chunks that end an unbounded backfill
	BackfillMaxChunks = 999
	DaysPerMonth      = 30
)

// Request limits
const (
	FetchPageLimit  = 100
	MaxPlansPerPush = 200
	MaxPlanTitleLen = 20
)

// Rate limiting defaults
const (
	DefaultCooldown      = 600 * time.Millisecond
	ActivityCooldown     = 121 * time.Second
	DefaultRateLimitWait = 60 * time.Second
	MaxAttempts          = 3
	CooldownNoticeAfter  = 5 * time.Second
)

// CacheRoot returns the default cache directory path, $LIKES_CACHE_DIR when set.
func CacheRoot() string {
	if dir := os.Getenv(CacheDirEnvVar); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cache", "likes-running")
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	if p := os.Getenv(ConfigFileEnvVar); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "likes", "config.yaml")
}

// Version is the current CLI version.
const Version = "0.3.0"
