// Package controller runs one render job end-to-end: the Job Controller
// (spec §4.2). It composes the Asset Fetcher, Timeline Compiler, Engine
// Runner, and Publisher, writing progress checkpoints and a terminal
// state on every exit path.
package controller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/compile"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/database"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/engine"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/fetch"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/logger"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/metrics"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/models"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/storage"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/timeline"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressFunc is invoked at each checkpoint in the schedule below.
type ProgressFunc func(percent int, message string)

// Controller orchestrates one job at a time per the spec's
// single-owner concurrency model; the Acquirer is responsible for
// ensuring only one render runs per process.
type Controller struct {
	tempDir   string
	engineBin string
	s3        *storage.S3Uploader
	newRunner func(binPath string) encoder
}

// encoder is the subset of engine.Runner the Controller depends on,
// abstracted so tests can substitute a fake without spawning ffmpeg.
type encoder interface {
	Encode(ctx context.Context, args []string, outputPath string, onProgress engine.ProgressFunc) error
	Thumbnail(ctx context.Context, inputPath, outputPath string) error
}

// New creates a Controller. tempDir is the root under which each job
// gets its own exclusively-owned working directory.
func New(tempDir, engineBin string, s3 *storage.S3Uploader, newRunner func(binPath string) encoder) *Controller {
	return &Controller{
		tempDir:   tempDir,
		engineBin: engineBin,
		s3:        s3,
		newRunner: newRunner,
	}
}

// NewDefault creates a Controller backed by the real engine.Runner,
// for callers (cmd/worker) that don't need to substitute their own
// encoder through New.
func NewDefault(tempDir, engineBin string, s3 *storage.S3Uploader) *Controller {
	return New(tempDir, engineBin, s3, func(bin string) encoder {
		return engine.New(bin)
	})
}

// Render runs one job end-to-end, implementing the canonical progress
// schedule from spec §4.2. It never lets an internal error propagate —
// any failure is written into the job record as a terminal `failed`
// state before Render returns nil. The working directory is removed on
// every exit path.
func (c *Controller) Render(ctx context.Context, jobID, projectID string, onProgress ProgressFunc) (err error) {
	report := func(pct int, msg string) {
		c.persistProgress(jobID, pct, msg)
		if onProgress != nil {
			onProgress(pct, msg)
		}
	}

	jobDir := filepath.Join(c.tempDir, jobID)
	if mkErr := os.MkdirAll(jobDir, 0o755); mkErr != nil {
		return c.fail(jobID, projectID, fmt.Sprintf("creating working directory: %v", mkErr))
	}
	defer func() {
		if rmErr := os.RemoveAll(jobDir); rmErr != nil {
			logger.Log.Warn("failed to clean up job working directory", zap.String("job_id", jobID), zap.Error(rmErr))
		}
	}()

	start := time.Now()
	report(0, "starting")

	project, tl, err := c.loadProject(projectID)
	if err != nil {
		return c.fail(jobID, projectID, err.Error())
	}
	report(5, "project fetched")

	reqs := buildFetchRequests(tl)
	report(10, "downloads prepared")

	downloadStart := time.Now()
	fetcher := fetch.New(jobDir, c.s3)
	resolved, err := fetcher.FetchAllWithProgress(ctx, reqs, downloadProgressReporter(report, len(reqs)))
	if err != nil {
		return c.fail(jobID, projectID, fmt.Sprintf("asset download failed: %v", err))
	}
	metrics.Get().JobDownloadDuration.WithLabelValues().Observe(time.Since(downloadStart).Seconds())

	paths := make(map[string]string, len(resolved))
	gifKeys := make(map[string]bool, len(resolved))
	for key, res := range resolved {
		paths[key] = res.Path
		gifKeys[key] = res.IsGIF
	}
	if len(reqs) == 0 {
		report(40, "no downloads required")
	}

	report(42, "compiling")
	compileStart := time.Now()
	plan, err := compile.Compile(tl, paths, gifKeys)
	if err != nil {
		return c.fail(jobID, projectID, fmt.Sprintf("compilation failed: %v", err))
	}
	metrics.Get().JobCompileDuration.WithLabelValues().Observe(time.Since(compileStart).Seconds())

	outputPath := filepath.Join(jobDir, "output.mp4")
	runner := c.newRunner(c.engineBin)

	encodeStart := time.Now()
	lastReported := 45
	encodeErr := runner.Encode(ctx, plan.Args, outputPath, func(elapsed float64) {
		pct := 45
		if plan.OutputDurationSec > 0 {
			pct = 45 + int(elapsed/plan.OutputDurationSec*43)
		}
		if pct > 88 {
			pct = 88
		}
		if pct-lastReported >= 5 || pct >= 88 {
			lastReported = pct
			report(pct, "encoding")
		}
	})
	metrics.Get().JobEncodeDuration.WithLabelValues().Observe(time.Since(encodeStart).Seconds())
	if encodeErr != nil {
		metrics.Get().EngineExitsTotal.WithLabelValues("failed").Inc()
		return c.failEngine(jobID, projectID, encodeErr)
	}
	metrics.Get().EngineExitsTotal.WithLabelValues("ok").Inc()
	report(88, "encoded")

	report(90, "thumbnail")
	thumbPath := filepath.Join(jobDir, "thumb.jpg")
	if err := runner.Thumbnail(ctx, outputPath, thumbPath); err != nil {
		return c.fail(jobID, projectID, fmt.Sprintf("thumbnail generation failed: %v", err))
	}

	publishStart := time.Now()
	videoData, err := os.ReadFile(outputPath)
	if err != nil {
		return c.fail(jobID, projectID, fmt.Sprintf("reading rendered output: %v", err))
	}
	renderResult, err := c.s3.UploadRender(ctx, videoData, projectID)
	if err != nil {
		return c.fail(jobID, projectID, fmt.Sprintf("publish failed: %v", err))
	}
	report(93, "video uploaded")

	thumbData, err := os.ReadFile(thumbPath)
	if err != nil {
		return c.fail(jobID, projectID, fmt.Sprintf("reading thumbnail: %v", err))
	}
	thumbResult, err := c.s3.UploadThumbnail(ctx, thumbData, projectID, renderResult.Key)
	if err != nil {
		return c.fail(jobID, projectID, fmt.Sprintf("thumbnail publish failed: %v", err))
	}
	report(96, "thumbnail uploaded")
	metrics.Get().JobPublishDuration.WithLabelValues().Observe(time.Since(publishStart).Seconds())

	report(98, "finalizing")
	if err := c.finish(jobID, project, renderResult.URL, thumbResult.URL, plan.OutputDurationSec, int64(len(videoData))); err != nil {
		return c.fail(jobID, projectID, fmt.Sprintf("recording final state: %v", err))
	}
	report(100, "complete")

	metrics.Get().JobsTotal.WithLabelValues(string(models.RenderJobFinished), "controller").Inc()
	metrics.Get().JobDuration.WithLabelValues(string(models.RenderJobFinished)).Observe(time.Since(start).Seconds())
	return nil
}

// downloadProgressReporter returns a fetch.FetchAllWithProgress callback
// that maps (done, total) onto the 15-40% range spec §4.2 reserves for
// asset downloads, so a job with many or slow downloads reports a
// checkpoint per completed asset instead of jumping straight from 10%
// to 40%. Callbacks arrive from concurrent fetch goroutines, so the
// reporter serializes them with a mutex before calling report.
func downloadProgressReporter(report ProgressFunc, assetCount int) func(done, total int) {
	if assetCount <= 0 {
		return nil
	}
	var mu sync.Mutex
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		pct := 15 + int(float64(done)/float64(total)*25)
		if pct > 40 {
			pct = 40
		}
		report(pct, fmt.Sprintf("%d/%d assets downloaded", done, total))
	}
}

// buildFetchRequests derives the Asset Fetcher's request list from a
// timeline, in the special-inputs order named by spec §4.4.1: scenes
// first (implicitly, via their own keys), then music, voiceover, each
// sound effect, each image overlay, brand logo.
func buildFetchRequests(tl *timeline.Timeline) []fetch.Request {
	var reqs []fetch.Request
	seen := make(map[string]bool)

	add := func(key, url string, kind fetch.Kind, isGIF bool) {
		if key == "" || url == "" || seen[key] {
			return
		}
		seen[key] = true
		reqs = append(reqs, fetch.Request{Key: key, URL: url, Kind: kind, IsGIF: isGIF})
	}

	for _, scene := range tl.Scenes {
		if !scene.HasAsset() {
			continue
		}
		kind := fetch.KindVideo
		if scene.Kind == timeline.SceneKindImage {
			kind = fetch.KindImage
		}
		add(scene.SourceKey(), scene.ClipURL, kind, false)
	}

	if tl.Music != nil && tl.Music.URL != "" {
		add(tl.Music.Key(), tl.Music.URL, fetch.KindAudio, false)
	}
	if tl.Voiceover != nil {
		add(tl.Voiceover.AssetID, tl.Voiceover.AssetID, fetch.KindAudio, false)
	}
	for _, fx := range tl.SoundFX {
		add(fx.AssetID, fx.AssetID, fetch.KindAudio, false)
	}
	for _, ov := range tl.ImageOvls {
		add(ov.AssetID, ov.AssetID, fetch.KindImage, ov.IsGIF)
	}
	if tl.Brand != nil && tl.Brand.LogoAssetID != "" {
		add(tl.Brand.LogoAssetID, tl.Brand.LogoAssetID, fetch.KindLogo, false)
	}

	return reqs
}

func (c *Controller) loadProject(projectID string) (*models.Project, *timeline.Timeline, error) {
	var project models.Project
	if err := database.DB.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, nil, fmt.Errorf("loading project %s: %w", projectID, err)
	}
	if err := project.Timeline.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid timeline: %w", err)
	}
	return &project, &project.Timeline, nil
}

func (c *Controller) persistProgress(jobID string, pct int, message string) {
	if database.DB == nil {
		return
	}
	var job models.RenderJob
	if err := database.DB.First(&job, "id = ?", jobID).Error; err != nil {
		return
	}
	job.Progress = pct
	job.AppendLog(message)
	database.DB.Save(&job)
}

// finish records the terminal success state for both the RenderJob and
// its parent Project in one transaction, per spec §4.2: a finished job
// is never visible without its mirrored project status.
func (c *Controller) finish(jobID string, project *models.Project, outputURL, thumbURL string, durationSec float64, byteSize int64) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		var job models.RenderJob
		if err := tx.First(&job, "id = ?", jobID).Error; err != nil {
			return fmt.Errorf("loading job %s: %w", jobID, err)
		}
		job.State = models.RenderJobFinished
		job.Progress = 100
		job.OutputURL = &outputURL
		job.ThumbURL = &thumbURL
		job.DurationSec = &durationSec
		job.ByteSize = &byteSize
		job.AppendLog("finished")
		if err := tx.Save(&job).Error; err != nil {
			return fmt.Errorf("saving job %s: %w", jobID, err)
		}
		if err := tx.Model(&models.Project{}).Where("id = ?", project.ID).Updates(map[string]interface{}{
			"status":       models.ProjectStatusFinished,
			"output_url":   outputURL,
			"thumb_url":    thumbURL,
			"duration_sec": durationSec,
		}).Error; err != nil {
			return fmt.Errorf("updating project %s: %w", project.ID, err)
		}
		return nil
	})
}

func (c *Controller) fail(jobID, projectID, message string) error {
	logger.Log.Error("render job failed", zap.String("job_id", jobID), zap.String("project_id", projectID), zap.String("error", message))
	if database.DB != nil {
		var job models.RenderJob
		if err := database.DB.First(&job, "id = ?", jobID).Error; err == nil {
			job.State = models.RenderJobFailed
			job.Error = &message
			job.AppendLog("failed: " + message)
			database.DB.Save(&job)
		}
		database.DB.Model(&models.Project{}).Where("id = ?", projectID).Update("status", models.ProjectStatusFailed)
	}
	metrics.Get().JobsTotal.WithLabelValues(string(models.RenderJobFailed), "controller").Inc()
	return nil
}

func (c *Controller) failEngine(jobID, projectID string, err error) error {
	msg := err.Error()
	return c.fail(jobID, projectID, msg)
}
