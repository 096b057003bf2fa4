package services

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"
)

// ---------------------------------------------------------------------------
// Gemini image generation — one portrait scene image per prompt.
// ---------------------------------------------------------------------------

const geminiImageModel = "gemini-3-pro-image-preview"

type GeminiService struct {
	apiKey string
	model  string
}

var _ ImageGenerator = (*GeminiService)(nil)

func NewGeminiService(apiKey string) *GeminiService {
	return &GeminiService{
		apiKey: apiKey,
		model:  geminiImageModel,
	}
}

// GenerateImage renders one scene image from a prompt. Each call is
// independent and safe to run in parallel across scenes.
func (s *GeminiService) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Err: fmt.Errorf("failed to create client: %w", err)}
	}

	fullPrompt := fmt.Sprintf(
		"Generate a single portrait (9:16) image for a short-form vertical video scene. %s "+
			"No text, captions, watermarks, or borders in the image.", prompt)

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := client.Models.GenerateContent(ctx, s.model, genai.Text(fullPrompt), config)
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Err: err}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &ProviderError{Provider: "gemini", Err: fmt.Errorf("no candidates in response")}
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			log.Printf("[Gemini] Image generated (%d bytes, mime=%s)", len(part.InlineData.Data), part.InlineData.MIMEType)
			return part.InlineData.Data, nil
		}
	}

	return nil, &ProviderError{Provider: "gemini", Err: fmt.Errorf("no image data in response parts")}
}
