package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobarin/reelsmith/internal/api"
	"github.com/bobarin/reelsmith/internal/cache"
	"github.com/bobarin/reelsmith/internal/config"
	"github.com/bobarin/reelsmith/internal/db"
	"github.com/bobarin/reelsmith/internal/engine"
	"github.com/bobarin/reelsmith/internal/media"
	"github.com/bobarin/reelsmith/internal/models"
	"github.com/bobarin/reelsmith/internal/qa"
	"github.com/bobarin/reelsmith/internal/queue"
	"github.com/bobarin/reelsmith/internal/services"
	"github.com/bobarin/reelsmith/internal/storage"
	"github.com/bobarin/reelsmith/internal/worker"
)

func main() {
	log.Println("Starting Reelsmith render engine...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis — render queue and cache store share the connection
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	cacheStore := cache.NewRedisFromClient(q.Client())

	// Initialize artifact storage
	artifacts, err := storage.New(cfg.ArtifactDir)
	if err != nil {
		log.Fatalf("Failed to initialize artifact storage: %v", err)
	}
	log.Printf("Artifact storage: %s", artifacts.Root())

	// Resolve media binaries once, up front. A missing ffmpeg must fail here,
	// never mid-run.
	runner, err := media.NewRunner(cfg.FFmpegDir)
	if err != nil {
		log.Fatalf("Failed to resolve media binaries: %v", err)
	}
	ffmpeg, err := media.NewFFmpeg(runner, cfg.TempDir)
	if err != nil {
		log.Fatalf("Failed to initialize media toolkit: %v", err)
	}
	gate := qa.NewGate(ffmpeg)

	// Create API handler
	handler := api.NewHandler(database, q, artifacts)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
		ArtifactRoot:       artifacts.Root(),
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCtx context.Context
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		tts, aligner, images := buildProviders(cfg, ffmpeg)

		eng := engine.New(
			database, cacheStore, ffmpeg, gate, artifacts,
			tts, aligner, images,
			engine.Options{
				DryRun:        cfg.DryRun,
				ForceFailStep: models.StepName(cfg.ForceFailStep),
				StepTimeout:   time.Duration(cfg.StepTimeoutSec) * time.Second,
				MusicDir:      cfg.MusicDir,
				MusicVolume:   cfg.MusicVolume,
			},
		)

		if cfg.ForceFailStep != "" {
			log.Printf("WARNING: fault injection enabled, step %q will fail every run", cfg.ForceFailStep)
		}

		w := worker.New(q, eng, cfg.MaxConcurrentRuns)

		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker — in-flight runs finish their current step and
	// checkpoint before the process exits
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// buildProviders wires the three external providers, or their local dry-run
// stand-ins when DRY_RUN is set.
func buildProviders(cfg *config.Config, ffmpeg *media.FFmpeg) (services.TTSService, services.Aligner, services.ImageGenerator) {
	if cfg.DryRun {
		log.Println("DRY RUN: substituting local stand-ins for all providers")
		return services.NewDryRunTTS(ffmpeg), services.NewDryRunAligner(ffmpeg), services.NewDryRunImages(ffmpeg)
	}

	// TTS provider — ElevenLabs preferred, OpenAI as fallback
	var tts services.TTSService
	if cfg.ElevenLabsKey != "" {
		tts = services.NewElevenLabsService(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
		log.Printf("TTS provider: ElevenLabs (voice: %s)", cfg.ElevenLabsVoiceID)
	} else {
		tts = services.NewOpenAIServiceWithVoice(cfg.OpenAIKey, cfg.OpenAIVoice)
		log.Printf("TTS provider: OpenAI (voice: %s)", cfg.OpenAIVoice)
	}

	aligner := services.NewOpenAIService(cfg.OpenAIKey)
	images := services.NewGeminiService(cfg.GeminiKey)
	return tts, aligner, images
}
