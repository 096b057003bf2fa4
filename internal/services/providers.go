package services

import (
	"context"
	"fmt"

	"github.com/bobarin/reelsmith/internal/models"
)

// ---------------------------------------------------------------------------
// Provider interfaces — the engine's step functions depend on these, not on
// concrete providers, so dry-run stand-ins slot in without the engine knowing.
// ---------------------------------------------------------------------------

// TTSResponse is the common response type from any TTS provider.
type TTSResponse struct {
	AudioData []byte
	Format    string // "mp3", "wav", etc.
}

// TTSService converts narration text into speech audio.
type TTSService interface {
	GenerateSpeech(ctx context.Context, text string) (*TTSResponse, error)
}

// Aligner produces word-level timing for a voice-over against its script.
type Aligner interface {
	Align(ctx context.Context, audio []byte, script string) ([]models.Word, error)
}

// ImageGenerator renders one scene image from a prompt. Each call is
// independent — safe for parallel execution across scenes.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// ProviderError labels a failure of an external AI provider call, so the
// engine can distinguish it from process and quality-gate failures.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
