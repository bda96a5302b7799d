// Package ai abstracts the text-generation providers used by the pipeline
// stages. Gemini is the default; any OpenAI-compatible chat completion API
// can be selected instead via configuration.
package ai

import (
	"context"
	"fmt"
	"strings"
)

type (
	// Config selects and parameterises the active provider. The env names
	// mirror the deployment contract of the original system.
	Config struct {
		Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"gemini" validate:"oneof=gemini openai"`

		GeminiKey   string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
		GeminiModel string `yaml:"gemini_model" env:"GENAI_MODEL_NAME" env-default:"gemini-2.5-flash"`

		OpenAIHost  string `yaml:"openai_host" env:"OPENAI_HOST" env-default:"https://api.openai.com/v1"`
		OpenAIModel string `yaml:"openai_model" env:"OPENAI_MODEL_NAME" env-default:"gpt-4o-mini"`
		OpenAIKey   string `yaml:"openai_key" env:"OPENAI_KEY"`
	}

	// Provider generates a text completion for the given prompt. All
	// pipeline stages depend on this seam rather than a concrete client so
	// tests can substitute a canned implementation.
	Provider interface {
		Complete(ctx context.Context, prompt string) (string, error)
	}
)

// EmptyCompletionError indicates the provider responded successfully but
// produced no usable text.
type EmptyCompletionError struct{ Provider string }

func (err *EmptyCompletionError) Error() string {
	return fmt.Sprintf("%s returned an empty completion", err.Provider)
}

// New constructs the provider selected by the config.
func New(ctx context.Context, config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)
	case "gemini", "":
		return NewGeminiProvider(ctx, config)
	default:
		return nil, fmt.Errorf("unknown AI provider '%s'", config.Provider)
	}
}
