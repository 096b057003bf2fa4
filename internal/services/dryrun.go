package services

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"strings"

	"github.com/bobarin/reelsmith/internal/media"
	"github.com/bobarin/reelsmith/internal/models"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Dry-run stand-ins — deterministic, free, local replacements for every
// externally-billed provider. They synthesize real media files through the
// local ffmpeg primitives, so composition and the quality gate still exercise
// their real code paths. None of them touches the network.
// ---------------------------------------------------------------------------

// dryRunSpeechRate approximates narration pace for tone-length estimation.
const dryRunSpeechRate = 2.5 // words per second

// DryRunTTS synthesizes a sine tone whose length approximates the narration.
// The tone frequency is derived from the text so different scenes are audibly
// distinct, and identical text always produces identical audio.
type DryRunTTS struct {
	ffmpeg *media.FFmpeg
}

var _ TTSService = (*DryRunTTS)(nil)

func NewDryRunTTS(ffmpeg *media.FFmpeg) *DryRunTTS {
	return &DryRunTTS{ffmpeg: ffmpeg}
}

func (s *DryRunTTS) GenerateSpeech(ctx context.Context, text string) (*TTSResponse, error) {
	durationSec := float64(len(strings.Fields(text))) / dryRunSpeechRate
	if durationSec < 1 {
		durationSec = 1
	}

	sum := sha256.Sum256([]byte(text))
	frequency := 300 + int(sum[0])%600 // 300-899 Hz

	tonePath := s.ffmpeg.TempPath(fmt.Sprintf("drytts_%s.mp3", uuid.New().String()))
	defer s.ffmpeg.Cleanup(tonePath)

	if err := s.ffmpeg.SynthesizeTone(ctx, tonePath, durationSec, frequency); err != nil {
		return nil, fmt.Errorf("dry-run tone synthesis failed: %w", err)
	}

	audio, err := os.ReadFile(tonePath)
	if err != nil {
		return nil, fmt.Errorf("dry-run tone read failed: %w", err)
	}

	return &TTSResponse{AudioData: audio, Format: "mp3"}, nil
}

// DryRunAligner spreads the script's words evenly across the probed duration
// of the voice-over.
type DryRunAligner struct {
	ffmpeg *media.FFmpeg
}

var _ Aligner = (*DryRunAligner)(nil)

func NewDryRunAligner(ffmpeg *media.FFmpeg) *DryRunAligner {
	return &DryRunAligner{ffmpeg: ffmpeg}
}

func (s *DryRunAligner) Align(ctx context.Context, audio []byte, script string) ([]models.Word, error) {
	audioPath := s.ffmpeg.TempPath(fmt.Sprintf("dryalign_%s.mp3", uuid.New().String()))
	defer s.ffmpeg.Cleanup(audioPath)

	if err := os.WriteFile(audioPath, audio, 0644); err != nil {
		return nil, fmt.Errorf("dry-run align: failed to write audio: %w", err)
	}

	durationSec, err := s.ffmpeg.Duration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("dry-run align: %w", err)
	}

	words := SpreadWords(script, 0, durationSec)
	if len(words) == 0 {
		return nil, fmt.Errorf("dry-run align: script has no words")
	}
	return words, nil
}

// DryRunImages renders a solid-color 1080x1920 frame, color derived from the
// prompt so each scene is visually distinct and reproducible.
type DryRunImages struct {
	ffmpeg *media.FFmpeg
}

var _ ImageGenerator = (*DryRunImages)(nil)

func NewDryRunImages(ffmpeg *media.FFmpeg) *DryRunImages {
	return &DryRunImages{ffmpeg: ffmpeg}
}

func (s *DryRunImages) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	sum := sha256.Sum256([]byte(prompt))
	hexColor := fmt.Sprintf("%02x%02x%02x", sum[0], sum[1], sum[2])

	framePath := s.ffmpeg.TempPath(fmt.Sprintf("dryimg_%s.png", uuid.New().String()))
	defer s.ffmpeg.Cleanup(framePath)

	if err := s.ffmpeg.SynthesizeColorFrame(ctx, framePath, hexColor); err != nil {
		return nil, fmt.Errorf("dry-run frame synthesis failed: %w", err)
	}

	return os.ReadFile(framePath)
}
