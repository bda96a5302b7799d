package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider generates completions using the Google Gemini API via the
// official SDK.
type GeminiProvider struct {
	model *genai.GenerativeModel
}

func NewGeminiProvider(ctx context.Context, config Config) (*GeminiProvider, error) {
	if config.GeminiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not configured")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.GeminiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{model: client.GenerativeModel(config.GeminiModel)}, nil
}

func (provider *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	response, err := provider.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	text := flattenResponse(response)
	if text == "" {
		return "", &EmptyCompletionError{Provider: "gemini"}
	}

	return text, nil
}

// flattenResponse joins every text part of the first candidate. Non-text
// parts are skipped.
func flattenResponse(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 {
		return ""
	}

	candidate := response.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			builder.WriteString(string(text))
		}
	}

	return builder.String()
}
