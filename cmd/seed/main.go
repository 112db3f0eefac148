package main

import (
	"fmt"
	"log"
	"os"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/database"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/models"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/timeline"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "dev":
		seedDev()
	case "clean":
		cleanSeed()
	default:
		fmt.Println("Usage: seed [dev|clean]")
		fmt.Println("  dev   - Create a sample project and a queued render job")
		fmt.Println("  clean - Remove all seed-created projects and render jobs")
		os.Exit(1)
	}
}

func seedDev() {
	log.Println("Seeding development database...")

	if err := database.Initialize(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Database connected")

	project := sampleProject()
	if err := database.DB.Create(project).Error; err != nil {
		log.Fatalf("Failed to create sample project: %v", err)
	}
	log.Printf("Created project %s (%q)\n", project.ID, project.Title)

	job := &models.RenderJob{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		State:     models.RenderJobQueued,
	}
	job.AppendLog("seeded for local development")
	if err := database.DB.Create(job).Error; err != nil {
		log.Fatalf("Failed to create sample render job: %v", err)
	}
	log.Printf("Queued render job %s for project %s\n", job.ID, project.ID)
	log.Println("Start the worker and it will pick up the job via the database poller.")
}

func cleanSeed() {
	log.Println("Cleaning seed data...")

	if err := database.Initialize(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	seedProjectIDs := database.DB.Model(&models.Project{}).Select("id").Where("title LIKE ?", "Seed: %")
	if err := database.DB.Where("project_id IN (?)", seedProjectIDs).Delete(&models.RenderJob{}).Error; err != nil {
		log.Fatalf("Failed to clean seed render jobs: %v", err)
	}
	if err := database.DB.Where("title LIKE ?", "Seed: %").Delete(&models.Project{}).Error; err != nil {
		log.Fatalf("Failed to clean seed projects: %v", err)
	}
	log.Println("Seed data cleaned successfully")
}

// sampleProject builds a minimal-but-valid Project with a two-scene
// timeline: a video clip followed by a freeze-framed image, background
// music, and a burned-in caption, exercising enough of the Timeline
// Compiler's feature surface to be useful as a smoke-test fixture.
func sampleProject() *models.Project {
	gofakeit.Seed(0)

	tl := timeline.Timeline{
		Version: 1,
		Width:   1080,
		Height:  1920,
		FPS:     30,
		Scenes: []timeline.Scene{
			{
				ID:       "scene-1",
				ClipURL:  "https://example.com/samples/" + gofakeit.UUID() + ".mp4",
				Kind:     timeline.SceneKindVideo,
				InSec:    0,
				OutSec:   4,
				DurationSec: 4,
				CropMode: timeline.CropModeCover,
				TransitionOut: timeline.TransitionFade,
				TransitionDur: 0.5,
			},
			{
				ID:          "scene-2",
				ClipURL:     "https://example.com/samples/" + gofakeit.UUID() + ".jpg",
				Kind:        timeline.SceneKindImage,
				InSec:       0,
				OutSec:      0,
				DurationSec: 3,
				CropMode:    timeline.CropModeCover,
			},
		},
		Music: &timeline.Music{
			URL:    "https://example.com/samples/" + gofakeit.UUID() + ".mp3",
			Volume: 0.3,
		},
		Captions: &timeline.Captions{
			Enabled: true,
			BurnIn:  true,
			Segments: []timeline.CaptionSegment{
				{Text: gofakeit.HipsterSentence(6), StartSec: 0, EndSec: 3},
			},
		},
		Export: timeline.Export{
			Codec:     timeline.CodecH264,
			CRF:       23,
			AudioKbps: 128,
		},
	}

	return &models.Project{
		ID:         uuid.New().String(),
		Title:      "Seed: " + gofakeit.HipsterWord() + " " + gofakeit.HipsterWord(),
		Width:      tl.Width,
		Height:     tl.Height,
		FPS:        tl.FPS,
		AspectMode: models.AspectModePortrait,
		Timeline:   tl,
		Status:     models.ProjectStatusDraft,
	}
}
