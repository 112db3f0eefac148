package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/alerts"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/cache"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/config"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/controller"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/database"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/engine"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/handlers"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/kernel"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/logger"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/metrics"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/middleware"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/queue"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/rendition"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/storage"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/telemetry"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/validation"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/websocket"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "render-worker",
	Short: "Render Worker Core — timeline-to-MP4 rendering service",
	Long: `render-worker hosts the HTTP API that accepts render jobs, polls the
database and Redis queue for work, and drives the Timeline Compiler and
Engine Runner to produce MP4s. Running it with no subcommand is
equivalent to "render-worker serve".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and job acquirer (default command)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Connect to the database and run pending migrations, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMigrate connects to the database and applies schema migrations
// without starting the HTTP server, matching the teacher's standalone
// migrate binary.
func runMigrate() error {
	if err := godotenv.Load(); err != nil {
		log.Println("warning: no .env file found, using system environment variables")
	}
	if err := database.Initialize(); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Println("migrations completed successfully")
	return nil
}

func runServe() error {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "render-worker.log"
	}
	if err := logger.Initialize(logLevel, logFile); err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Log.Info("=== render worker starting ===")

	if err := godotenv.Load(); err != nil {
		logger.Log.Warn("no .env file found, using system environment variables")
	}

	cfg := config.Load()

	var tracerProvider *trace.TracerProvider
	if os.Getenv("OTEL_ENABLED") == "true" {
		tCfg := telemetry.Config{
			ServiceName:  getEnvOrDefault("OTEL_SERVICE_NAME", "render-worker"),
			Environment:  getEnvOrDefault("OTEL_ENVIRONMENT", "development"),
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			Enabled:      true,
			SamplingRate: 1.0,
		}
		var tracerErr error
		tracerProvider, tracerErr = telemetry.InitTracer(tCfg)
		if tracerErr != nil {
			logger.Log.Warn("failed to initialize OpenTelemetry", zap.Error(tracerErr))
		} else {
			logger.Log.Info("OpenTelemetry tracing enabled", zap.String("service", tCfg.ServiceName))
			defer func() {
				if tracerProvider != nil {
					if err := tracerProvider.Shutdown(context.Background()); err != nil {
						logger.Log.Error("failed to shut down tracer provider", zap.Error(err))
					}
				}
			}()
		}
	}

	var redisClient *cache.RedisClient
	if cfg.RedisHost != "" {
		var err error
		redisClient, err = cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			logger.Log.Warn("failed to connect to Redis, queue channel disabled, poller will carry the workload", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	} else {
		logger.Log.Info("REDIS_HOST not set, queue channel disabled, database poller is the sole acquisition path")
	}

	if err := database.Initialize(); err != nil {
		logger.FatalWithFields("failed to initialize database", err)
	}
	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("failed to run migrations", err)
	}

	if err := validation.NewServiceValidator().ValidateServices(context.Background()); err != nil {
		logger.FatalWithFields("required service validation failed", err)
	}

	s3Uploader, err := storage.NewS3Uploader(cfg.AWSRegion, cfg.AWSBucket, cfg.CDNBaseURL)
	if err != nil {
		logger.FatalWithFields("failed to initialize S3 uploader", err)
	}
	if err := s3Uploader.CheckBucketAccess(context.Background()); err != nil {
		logger.WarnWithFields("S3 bucket access check failed, renders will fail to publish", err)
	}

	// Job Controller + Acquirer (spec §4.1, §4.2).
	renderController := controller.NewDefault(cfg.TempDir, cfg.FFmpegPath, s3Uploader)
	acquirer := queue.New(redisClient, renderController)
	acquirer.SetPollInterval(cfg.PollInterval)

	// Progress-broadcast WebSocket hub (spec §6, supplemented feature).
	wsHub := websocket.NewHub()
	wsHandler := websocket.NewHandler(wsHub)
	acquirer.SetHub(wsHub)
	go wsHub.Run()
	defer wsHub.Stop()

	// Rendition fan-out generator behind POST /generate-renditions.
	renditionRunner := engine.New(cfg.FFmpegPath)
	renditionGenerator := rendition.New(cfg.TempDir, renditionRunner, s3Uploader)

	// Alerting (spec §9 supplemented feature).
	alertManager := alerts.NewAlertManager()
	jobOutcomes := alerts.NewJobOutcomeTracker()
	alertEvaluator := alerts.NewEvaluator(alertManager, jobOutcomes)
	alertEvaluator.InitializeDefaultRules()
	stopEvaluation := alertEvaluator.StartEvaluationLoop(1 * time.Minute)
	defer close(stopEvaluation)
	handlers.SetAlertManager(alertManager)
	handlers.SetAlertEvaluator(alertEvaluator)

	appKernel := kernel.New()
	appKernel.
		WithDB(database.DB).
		WithLogger(logger.Log).
		WithAcquirer(acquirer).
		WithS3Uploader(s3Uploader).
		WithWebSocketHub(wsHub).
		WithRenditionGenerator(renditionGenerator).
		WithAlertManager(alertManager).
		WithAlertEvaluator(alertEvaluator)
	if redisClient != nil {
		appKernel.WithCache(redisClient)
	}

	if err := appKernel.Validate(); err != nil {
		logger.FatalWithFields("dependency container validation failed", err)
	}
	logger.Log.Info("dependency injection container initialized")

	appKernel.OnCleanup(func(ctx context.Context) error {
		if redisClient != nil {
			return redisClient.Close()
		}
		return nil
	})

	h := handlers.NewHandlers(appKernel)

	metrics.Initialize()
	logger.Log.Info("Prometheus metrics initialized")

	r := gin.New()

	corsConfig := cors.DefaultConfig()
	if allowed := os.Getenv("ALLOWED_ORIGINS"); allowed != "" {
		corsConfig.AllowOrigins = strings.FieldsFunc(allowed, func(rn rune) bool { return rn == ',' })
		for i, origin := range corsConfig.AllowOrigins {
			corsConfig.AllowOrigins[i] = strings.TrimSpace(origin)
		}
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With", "Accept"}
	r.Use(cors.New(corsConfig))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	if os.Getenv("OTEL_ENABLED") == "true" {
		r.Use(middleware.TracingMiddleware("render-worker"))
	}
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{
		"/metrics",
		"/ws",
	})))

	r.GET("/health", h.Health)

	r.POST("/render",
		middleware.RequireSharedSecret(cfg.WorkerSharedSecret),
		middleware.RateLimitRender(),
		h.Render,
	)

	r.POST("/generate-renditions",
		middleware.RateLimitRender(),
		h.GenerateRenditions,
	)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ws/jobs/:jobId", wsHandler.Subscribe)

	alert := r.Group("/alerts")
	{
		alert.GET("", h.GetAlerts)
		alert.GET("/active", h.GetActiveAlerts)
		alert.GET("/type/:type", h.GetAlertsByType)
		alert.PUT("/:id/resolve", h.ResolveAlert)
		alert.GET("/stats", h.GetAlertStats)

		rules := alert.Group("/rules")
		{
			rules.GET("", h.GetRules)
			rules.POST("", h.CreateRule)
			rules.PUT("/:id", h.UpdateRule)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go acquirer.Run()

	go func() {
		logger.Log.Info("render worker listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithFields("failed to start HTTP server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down render worker...")

	acquirer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := appKernel.Cleanup(shutdownCtx); err != nil {
		logger.Log.Error("error during application cleanup", zap.Error(err))
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithFields("server forced to shutdown", err)
	}

	logger.Log.Info("render worker exited")
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
