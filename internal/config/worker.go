// Package config gathers the render worker's environment-derived
// settings into a single struct at boot, the way the teacher's
// internal/config package gathered OAuth provider settings.
package config

import (
	"os"
	"strconv"
	"time"
)

// WorkerConfig is the worker's full runtime configuration, read once
// at startup from the environment (optionally loaded from a local
// .env file via godotenv in cmd/worker).
type WorkerConfig struct {
	// Object storage (spec §4.6 Publisher).
	AWSRegion   string
	AWSBucket   string
	CDNBaseURL  string

	// Database (spec §3).
	DatabaseURL string

	// Engine binaries (spec §4.5).
	FFmpegPath  string
	FFprobePath string

	// TempDir is the root under which the Controller creates one
	// working directory per job (spec §4.2, §5).
	TempDir string

	// Redis queue (spec §4.1). Empty RedisHost disables the queue
	// channel and leaves the database poller as the sole acquisition
	// path.
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// PollInterval is how often the database poller scans for queued
	// jobs when the queue channel isn't healthy (spec §4.1).
	PollInterval time.Duration

	// WorkerSharedSecret, when non-empty, gates POST /render behind a
	// Bearer comparison (spec §6). Empty disables the check.
	WorkerSharedSecret string

	Port string
}

// Load reads WorkerConfig from the environment, applying the same
// defaults the teacher's individual os.Getenv call sites use.
func Load() *WorkerConfig {
	return &WorkerConfig{
		AWSRegion:   getEnvOrDefault("AWS_REGION", "us-east-1"),
		AWSBucket:   os.Getenv("AWS_BUCKET"),
		CDNBaseURL:  os.Getenv("CDN_BASE_URL"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		FFmpegPath:  getEnvOrDefault("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnvOrDefault("FFPROBE_PATH", "ffprobe"),
		TempDir:     getEnvOrDefault("RENDER_TEMP_DIR", "/tmp/render-worker"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		PollInterval: getEnvDurationMS("POLL_INTERVAL_MS", 30*time.Second),

		WorkerSharedSecret: os.Getenv("WORKER_SHARED_SECRET"),

		Port: getEnvOrDefault("PORT", "8787"),
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDurationMS(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
