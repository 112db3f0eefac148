package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/metrics"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/models"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/telemetry"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize creates and configures the database connection
func Initialize() error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		// Fallback to individual components
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "postgres")
		password := getEnvOrDefault("DB_PASSWORD", "")
		dbname := getEnvOrDefault("DB_NAME", "render_worker")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	// Configure GORM logger
	gormLogger := logger.Default
	if os.Getenv("ENVIRONMENT") == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	// Open database connection
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db

	// METRICS-1: Register GORM hooks for database query metrics
	registerMetricsHooks(db)

	if os.Getenv("OTEL_ENABLED") == "true" {
		if err := db.Use(telemetry.GORMTracingPlugin()); err != nil {
			log.Printf("Warning: failed to register GORM tracing plugin: %v", err)
		}
	}

	log.Println("✅ Database connected successfully")

	return nil
}

// Migrate runs auto-migration for all models
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	// Enable UUID extension for PostgreSQL
	err := DB.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
	if err != nil {
		log.Printf("Warning: Could not create uuid-ossp extension: %v", err)
	}

	// Auto-migrate all models
	err = DB.AutoMigrate(
		&models.Project{},
		&models.RenderJob{},       // references Project
		&models.ClipRendition{},
		&models.ErrorLog{}, // operational error tracking, ambient
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes for performance
	err = createIndexes()
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("✅ Database migrations completed")
	return nil
}

// createIndexes creates performance indexes
func createIndexes() error {
	// Project indexes
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_projects_status ON projects (status)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_projects_created ON projects (created_at DESC)")

	// RenderJob indexes — the poller scans queued rows ordered oldest-first
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_render_jobs_project ON render_jobs (project_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_render_jobs_state_created ON render_jobs (state, created_at ASC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_render_jobs_queued ON render_jobs (created_at ASC) WHERE state = 'queued'")

	// ClipRendition indexes
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_clip_renditions_clip ON clip_renditions (clip_id)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_clip_renditions_unique ON clip_renditions (clip_id, resolution)")

	// Error log indexes
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_error_logs_severity ON error_logs (severity)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_error_logs_source ON error_logs (source)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_error_logs_unresolved ON error_logs (is_resolved, created_at DESC) WHERE is_resolved = false")

	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// registerMetricsHooks registers GORM callbacks to record database metrics
func registerMetricsHooks(db *gorm.DB) {
	// METRICS-1: Record database query timing using GORM Before/After callbacks
	db.Callback().Create().Before("gorm:before_create").Register("metrics:before_create", func(db *gorm.DB) {
		db.InstanceSet("metrics:start_time", time.Now())
	})

	db.Callback().Create().After("gorm:after_create").Register("metrics:after_create", func(db *gorm.DB) {
		if start, ok := db.InstanceGet("metrics:start_time"); ok {
			duration := time.Since(start.(time.Time)).Seconds()
			metrics.Get().DatabaseQueryDuration.WithLabelValues("create", "insert").Observe(duration)
			status := "success"
			if db.Error != nil {
				status = "error"
			}
			metrics.Get().DatabaseQueriesTotal.WithLabelValues("create", "insert", status).Inc()
		}
	})

	db.Callback().Query().Before("gorm:before_query").Register("metrics:before_query", func(db *gorm.DB) {
		db.InstanceSet("metrics:start_time", time.Now())
	})

	db.Callback().Query().After("gorm:after_query").Register("metrics:after_query", func(db *gorm.DB) {
		if start, ok := db.InstanceGet("metrics:start_time"); ok {
			duration := time.Since(start.(time.Time)).Seconds()
			metrics.Get().DatabaseQueryDuration.WithLabelValues("query", "select").Observe(duration)
			status := "success"
			if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
				status = "error"
			}
			metrics.Get().DatabaseQueriesTotal.WithLabelValues("query", "select", status).Inc()
		}
	})

	db.Callback().Update().Before("gorm:before_update").Register("metrics:before_update", func(db *gorm.DB) {
		db.InstanceSet("metrics:start_time", time.Now())
	})

	db.Callback().Update().After("gorm:after_update").Register("metrics:after_update", func(db *gorm.DB) {
		if start, ok := db.InstanceGet("metrics:start_time"); ok {
			duration := time.Since(start.(time.Time)).Seconds()
			metrics.Get().DatabaseQueryDuration.WithLabelValues("update", "update").Observe(duration)
			status := "success"
			if db.Error != nil {
				status = "error"
			}
			metrics.Get().DatabaseQueriesTotal.WithLabelValues("update", "update", status).Inc()
		}
	})

	db.Callback().Delete().Before("gorm:before_delete").Register("metrics:before_delete", func(db *gorm.DB) {
		db.InstanceSet("metrics:start_time", time.Now())
	})

	db.Callback().Delete().After("gorm:after_delete").Register("metrics:after_delete", func(db *gorm.DB) {
		if start, ok := db.InstanceGet("metrics:start_time"); ok {
			duration := time.Since(start.(time.Time)).Seconds()
			metrics.Get().DatabaseQueryDuration.WithLabelValues("delete", "delete").Observe(duration)
			status := "success"
			if db.Error != nil {
				status = "error"
			}
			metrics.Get().DatabaseQueriesTotal.WithLabelValues("delete", "delete", status).Inc()
		}
	})
}
