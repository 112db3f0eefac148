// Package rendition implements the clip-rendition fan-out behind
// POST /generate-renditions (spec §6): transcoding one source clip
// into several lower-resolution derivatives for fast selection at
// compose time (Glossary: Rendition). It is fire-and-forget by
// contract — callers get a 202 and never see per-resolution failures
// directly, only the resulting clip_renditions rows.
package rendition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/database"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/engine"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/logger"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/models"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/storage"
	"go.uber.org/zap"
)

// resolutionHeights maps a target resolution label to its output
// height; width is derived with ffmpeg's -2 to preserve the source
// aspect ratio and stay divisible by 2.
var resolutionHeights = map[string]int{
	"240p":  240,
	"360p":  360,
	"480p":  480,
	"720p":  720,
	"1080p": 1080,
}

// Generator transcodes a source clip into one or more target
// resolutions, each landing in its own clip_renditions row.
type Generator struct {
	tempDir string
	runner  *engine.Runner
	s3      *storage.S3Uploader
}

// New creates a Generator. tempDir is scratch space for the
// intermediate transcoded files before upload.
func New(tempDir string, runner *engine.Runner, s3 *storage.S3Uploader) *Generator {
	return &Generator{tempDir: tempDir, runner: runner, s3: s3}
}

// Generate transcodes sourceURL into each of targetResolutions. Meant
// to run in its own goroutine; it logs failures per-resolution rather
// than returning them, matching the endpoint's fire-and-forget contract.
func (g *Generator) Generate(ctx context.Context, clipID, sourceURL string, targetResolutions []string) {
	for _, resolution := range targetResolutions {
		g.generateOne(ctx, clipID, sourceURL, resolution)
	}
}

func (g *Generator) generateOne(ctx context.Context, clipID, sourceURL, resolution string) {
	row := &models.ClipRendition{
		ID:         uuid.New().String(),
		ClipID:     clipID,
		SourceURL:  sourceURL,
		Resolution: resolution,
	}
	if err := database.DB.Create(row).Error; err != nil {
		logger.Log.Error("failed to create clip rendition row", zap.String("clip_id", clipID), zap.Error(err))
		return
	}

	outputPath, err := g.transcode(ctx, clipID, sourceURL, resolution)
	if outputPath != "" {
		defer os.Remove(outputPath)
	}
	if err != nil {
		g.markFailed(row, err)
		return
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		g.markFailed(row, fmt.Errorf("reading transcoded file: %w", err))
		return
	}

	result, err := g.s3.UploadClipRendition(ctx, data, clipID, resolution)
	if err != nil {
		g.markFailed(row, fmt.Errorf("uploading rendition: %w", err))
		return
	}

	row.URL = &result.URL
	row.ObjectKey = &result.Key
	if err := database.DB.Save(row).Error; err != nil {
		logger.Log.Error("failed to persist completed clip rendition", zap.String("clip_id", clipID), zap.Error(err))
	}
}

func (g *Generator) transcode(ctx context.Context, clipID, sourceURL, resolution string) (string, error) {
	height, ok := resolutionHeights[resolution]
	if !ok {
		return "", fmt.Errorf("unsupported target resolution %q", resolution)
	}

	outputPath := filepath.Join(g.tempDir, fmt.Sprintf("%s-%s.mp4", clipID, resolution))
	args := []string{
		"-y",
		"-i", sourceURL,
		"-vf", fmt.Sprintf("scale=-2:%d", height),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-c:a", "aac",
		"-movflags", "+faststart",
	}
	if err := g.runner.Encode(ctx, args, outputPath, nil); err != nil {
		return "", err
	}
	return outputPath, nil
}

func (g *Generator) markFailed(row *models.ClipRendition, cause error) {
	logger.Log.Warn("clip rendition failed", zap.String("clip_id", row.ClipID), zap.String("resolution", row.Resolution), zap.Error(cause))
	msg := cause.Error()
	row.Error = &msg
	if err := database.DB.Save(row).Error; err != nil {
		logger.Log.Error("failed to persist failed clip rendition", zap.String("clip_id", row.ClipID), zap.Error(err))
	}
}
