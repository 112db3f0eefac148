package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearWorkerEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"AWS_REGION", "AWS_BUCKET", "CDN_BASE_URL", "DATABASE_URL",
		"FFMPEG_PATH", "FFPROBE_PATH", "RENDER_TEMP_DIR",
		"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD",
		"POLL_INTERVAL_MS", "WORKER_SHARED_SECRET", "PORT",
	}
	for _, k := range keys {
		orig, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, orig)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearWorkerEnv(t)

	cfg := Load()

	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Equal(t, "/tmp/render-worker", cfg.TempDir)
	assert.Equal(t, "6379", cfg.RedisPort)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, "8787", cfg.Port)
	assert.Empty(t, cfg.RedisHost)
	assert.Empty(t, cfg.WorkerSharedSecret)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	clearWorkerEnv(t)
	os.Setenv("AWS_REGION", "eu-west-1")
	os.Setenv("FFMPEG_PATH", "/usr/local/bin/ffmpeg")
	os.Setenv("POLL_INTERVAL_MS", "5000")
	os.Setenv("PORT", "9999")
	os.Setenv("WORKER_SHARED_SECRET", "shh")

	cfg := Load()

	assert.Equal(t, "eu-west-1", cfg.AWSRegion)
	assert.Equal(t, "/usr/local/bin/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "shh", cfg.WorkerSharedSecret)
}

func TestLoad_PollIntervalIgnoresInvalidValues(t *testing.T) {
	clearWorkerEnv(t)

	os.Setenv("POLL_INTERVAL_MS", "not-a-number")
	assert.Equal(t, 30*time.Second, Load().PollInterval)

	os.Setenv("POLL_INTERVAL_MS", "-100")
	assert.Equal(t, 30*time.Second, Load().PollInterval)

	os.Setenv("POLL_INTERVAL_MS", "0")
	assert.Equal(t, 30*time.Second, Load().PollInterval)
}
