package validation

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/cache"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/database"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/logger"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/storage"
	"go.uber.org/zap"
)

// ServiceValidator handles startup validation of the worker's external
// dependencies: anything the render pipeline would otherwise discover
// is broken only after accepting its first job.
type ServiceValidator struct {
	requiredServices []string
}

// NewServiceValidator creates a new service validator
func NewServiceValidator() *ServiceValidator {
	return &ServiceValidator{
		requiredServices: parseRequiredServices(),
	}
}

// ValidateServices validates all configured services
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.requiredServices) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}

	logger.Log.Info("🔍 Validating required services",
		zap.Strings("services", sv.requiredServices),
	)

	services := sv.getServiceChecks()

	for _, serviceName := range sv.requiredServices {
		serviceChecker, ok := services[serviceName]
		if !ok {
			logger.Log.Warn("Unknown service type in validation",
				zap.String("service", serviceName),
			)
			continue
		}

		logger.Log.Info("Validating service",
			zap.String("service", serviceName),
		)

		timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := serviceChecker(timeoutCtx); err != nil {
			cancel()
			errorMsg := fmt.Sprintf("❌ Required service '%s' validation failed: %v", serviceName, err)
			logger.Log.Error(errorMsg)
			return fmt.Errorf(errorMsg)
		}
		cancel()

		logger.Log.Info("✅ Service validated successfully",
			zap.String("service", serviceName),
		)
	}

	logger.Log.Info("✅ All required services validated successfully")
	return nil
}

// getServiceChecks returns a map of service names to their validation functions
func (sv *ServiceValidator) getServiceChecks() map[string]func(ctx context.Context) error {
	return map[string]func(ctx context.Context) error{
		"postgres": validatePostgres,
		"s3":       validateS3,
		"redis":    validateRedis,
		"ffmpeg":   validateFFmpeg,
	}
}

// validatePostgres checks if the database is reachable
func validatePostgres(ctx context.Context) error {
	if err := database.Health(); err != nil {
		return fmt.Errorf("database is not reachable: %w", err)
	}
	return nil
}

// validateS3 checks if the output bucket is accessible
func validateS3(ctx context.Context) error {
	region := os.Getenv("AWS_REGION")
	bucket := os.Getenv("AWS_BUCKET")
	accessKeyID := os.Getenv("AWS_ACCESS_KEY_ID")
	secretAccessKey := os.Getenv("AWS_SECRET_ACCESS_KEY")

	if region == "" || bucket == "" {
		return fmt.Errorf("AWS_REGION and AWS_BUCKET are required for S3 validation")
	}

	if accessKeyID == "" || secretAccessKey == "" {
		return fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are required for S3 validation")
	}

	cdnURL := os.Getenv("CDN_BASE_URL")
	if cdnURL == "" {
		cdnURL = "https://cdn.renderworker.internal"
	}

	s3Uploader, err := storage.NewS3Uploader(region, bucket, cdnURL)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	if err := s3Uploader.CheckBucketAccess(ctx); err != nil {
		return fmt.Errorf("S3 bucket access check failed: %w", err)
	}

	return nil
}

// validateRedis checks if the queue transport is reachable
func validateRedis(ctx context.Context) error {
	redisHost := os.Getenv("REDIS_HOST")
	redisPort := os.Getenv("REDIS_PORT")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	if redisHost == "" {
		redisHost = "localhost"
	}
	if redisPort == "" {
		redisPort = "6379"
	}

	redisClient, err := cache.NewRedisClient(redisHost, redisPort, redisPassword)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redisClient.Close()

	return nil
}

// validateFFmpeg checks that ffmpeg and ffprobe binaries are on PATH and
// runnable — the worker has no path where it can operate without them.
func validateFFmpeg(ctx context.Context) error {
	ffmpegPath := os.Getenv("FFMPEG_PATH")
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	ffprobePath := os.Getenv("FFPROBE_PATH")
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	if err := exec.CommandContext(ctx, ffmpegPath, "-version").Run(); err != nil {
		return fmt.Errorf("ffmpeg binary %q is not runnable: %w", ffmpegPath, err)
	}
	if err := exec.CommandContext(ctx, ffprobePath, "-version").Run(); err != nil {
		return fmt.Errorf("ffprobe binary %q is not runnable: %w", ffprobePath, err)
	}

	return nil
}

// parseRequiredServices parses the RENDER_WORKER_REQUIRE_* environment variables
// Returns a list of service names that are required
func parseRequiredServices() []string {
	var required []string

	services := []string{"postgres", "s3", "redis", "ffmpeg"}

	for _, service := range services {
		envVar := fmt.Sprintf("RENDER_WORKER_REQUIRE_%s", strings.ToUpper(service))
		value := os.Getenv(envVar)

		if isTruthy(value) {
			required = append(required, service)
		}
	}

	return required
}

// isTruthy checks if a string value represents a truthy value
func isTruthy(value string) bool {
	if value == "" {
		return false
	}

	value = strings.ToLower(strings.TrimSpace(value))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}
