// Package main provides the render worker.

// This package contains the main application entry points under cmd/. The
// actual documentation is organized into subpackages:

// - internal/handlers: HTTP request handlers (health, render, renditions, alerts)
// - internal/models: Data models and database schemas (Project, RenderJob, ClipRendition)
// - internal/timeline: Timeline document model and validation
// - internal/controller: Job Controller — the render pipeline orchestrator
// - internal/compile: Timeline Compiler — filter-graph assembly
// - internal/fetch: Source Fetcher — remote clip retrieval
// - internal/engine: Engine Runner — ffmpeg subprocess execution
// - internal/rendition: Rendition Generator — per-resolution transcodes
// - internal/queue: Job Acquirer — Redis queue + database poller
// - internal/websocket: progress-broadcast WebSocket hub
// - internal/alerts: job failure-rate alerting
// - internal/storage: S3 upload/publish operations
// - internal/database: database connection and migrations
// - internal/middleware: HTTP middleware (auth, rate limiting, tracing)
// - internal/validation: startup dependency checks

// See the individual package documentation for detailed API reference.
package main
