package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/bobarin/reelsmith/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

// ---------------------------------------------------------------------------
// OpenAI — speech synthesis (tts-1) and Whisper word-level alignment.
// ---------------------------------------------------------------------------

const (
	openaiTTSModel = openai.TTSModel1
	openaiTTSVoice = openai.VoiceAlloy
)

type OpenAIService struct {
	client *openai.Client
	voice  openai.SpeechVoice
}

// Compile-time interface checks.
var (
	_ TTSService = (*OpenAIService)(nil)
	_ Aligner    = (*OpenAIService)(nil)
)

func NewOpenAIService(apiKey string) *OpenAIService {
	return &OpenAIService{
		client: openai.NewClient(apiKey),
		voice:  openaiTTSVoice,
	}
}

// NewOpenAIServiceWithVoice overrides the default narration voice.
func NewOpenAIServiceWithVoice(apiKey, voice string) *OpenAIService {
	svc := NewOpenAIService(apiKey)
	if voice != "" {
		svc.voice = openai.SpeechVoice(voice)
	}
	return svc
}

// GenerateSpeech converts text to MP3 narration audio.
func (s *OpenAIService) GenerateSpeech(ctx context.Context, text string) (*TTSResponse, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openaiTTSModel,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, &ProviderError{Provider: "openai-tts", Err: err}
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, &ProviderError{Provider: "openai-tts", Err: fmt.Errorf("failed to read audio stream: %w", err)}
	}
	if len(audio) == 0 {
		return nil, &ProviderError{Provider: "openai-tts", Err: fmt.Errorf("empty audio response")}
	}

	log.Printf("[OpenAI TTS] Generated speech (voice=%s, textLen=%d, audio=%d bytes)", s.voice, len(text), len(audio))

	return &TTSResponse{AudioData: audio, Format: "mp3"}, nil
}

// Align sends the voice-over to Whisper and returns word-level timestamps.
// When Whisper omits the word array but still returns segments, the segments
// are repaired best-effort into evenly spaced word timings rather than treated
// as an error.
func (s *OpenAIService) Align(ctx context.Context, audio []byte, script string) ([]models.Word, error) {
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(audio),
		FilePath: "voiceover.mp3", // filename hint required by the library
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return nil, &ProviderError{Provider: "whisper", Err: err}
	}

	if len(resp.Words) > 0 {
		words := make([]models.Word, len(resp.Words))
		for i, w := range resp.Words {
			words[i] = models.Word{
				Text:  strings.TrimSpace(w.Word),
				Start: w.Start,
				End:   w.End,
			}
		}
		log.Printf("[Whisper] Aligned %d words (duration %.1fs)", len(words), resp.Duration)
		return words, nil
	}

	// Repair path: no word granularity in the response, spread each segment's
	// text evenly across its span.
	var words []models.Word
	for _, seg := range resp.Segments {
		words = append(words, SpreadWords(seg.Text, seg.Start, seg.End)...)
	}
	if len(words) == 0 {
		return nil, &ProviderError{Provider: "whisper", Err: fmt.Errorf("no word timestamps or segments in response (text: %q)", resp.Text)}
	}

	log.Printf("[Whisper] WARNING: no word granularity, repaired %d words from %d segments", len(words), len(resp.Segments))
	return words, nil
}

// SpreadWords distributes the words of text evenly across [start, end].
// Shared by the Whisper segment repair and the dry-run aligner.
func SpreadWords(text string, start, end float64) []models.Word {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	if end <= start {
		end = start + 0.1*float64(len(fields))
	}

	per := (end - start) / float64(len(fields))
	words := make([]models.Word, len(fields))
	for i, f := range fields {
		words[i] = models.Word{
			Text:  f,
			Start: start + per*float64(i),
			End:   start + per*float64(i+1),
		}
	}
	return words
}
