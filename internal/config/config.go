package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis — render queue and cache store
	RedisURL string

	// OpenAI (TTS fallback + Whisper alignment)
	OpenAIKey   string
	OpenAIVoice string

	// Gemini (scene image generation)
	GeminiKey string

	// ElevenLabs (preferred TTS provider — OpenAI TTS used when unset)
	ElevenLabsKey     string
	ElevenLabsVoiceID string

	// Media
	FFmpegDir   string // Directory holding vendored ffmpeg/ffprobe (empty = PATH only)
	TempDir     string
	ArtifactDir string // Artifact storage root, resolved once at process start
	MusicDir    string // Per-niche music library root (empty = runs render without music)
	MusicVolume float64

	// Engine policy
	DryRun            bool   // Substitute local stand-ins for every externally-billed call
	ForceFailStep     string // Test-only: name of a single step to fail deterministically
	MaxConcurrentRuns int    // Admission ceiling for concurrently executing runs
	StepTimeoutSec    int    // Per-step external-call timeout
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		OpenAIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIVoice:        getEnv("OPENAI_TTS_VOICE", "alloy"),
		GeminiKey:          getEnv("GEMINI_API_KEY", ""),
		ElevenLabsKey:      getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:  getEnv("ELEVENLABS_VOICE_ID", ""),
		FFmpegDir:          getEnv("FFMPEG_DIR", "bin"),
		TempDir:            getEnv("TEMP_DIR", "/tmp/reelsmith"),
		ArtifactDir:        getEnv("ARTIFACT_DIR", "artifacts"),
		MusicDir:           getEnv("MUSIC_DIR", "assets/music"),
		MusicVolume:        getEnvFloat("MUSIC_VOLUME", 0.15),
		DryRun:             getEnvBool("DRY_RUN", false),
		ForceFailStep:      getEnv("FORCE_FAIL_STEP", ""),
		MaxConcurrentRuns:  getEnvInt("MAX_CONCURRENT_RUNS", 1),
		StepTimeoutSec:     getEnvInt("STEP_TIMEOUT_SEC", 600),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate surfaces configuration errors synchronously, before any run starts.
// A missing credential must never fail mid-pipeline.
func (cfg *Config) validate() error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Dry-run mode substitutes local stand-ins for every paid provider, so
	// provider credentials are only required for real runs.
	if !cfg.DryRun {
		if cfg.ElevenLabsKey == "" && cfg.OpenAIKey == "" {
			return fmt.Errorf("either ELEVENLABS_API_KEY or OPENAI_API_KEY is required for TTS")
		}
		if cfg.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for alignment")
		}
		if cfg.GeminiKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for image generation")
		}
	}

	if cfg.ForceFailStep != "" && !models.IsStepName(cfg.ForceFailStep) {
		return fmt.Errorf("FORCE_FAIL_STEP %q is not a pipeline step", cfg.ForceFailStep)
	}

	if cfg.MaxConcurrentRuns < 1 {
		return fmt.Errorf("MAX_CONCURRENT_RUNS must be at least 1")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}
