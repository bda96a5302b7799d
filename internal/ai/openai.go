package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIProvider implements Provider using an OpenAI-compatible chat
// completion API. The base URL is configurable so self-hosted gateways
// (Ollama, vLLM, LiteLLM, ...) can stand in for api.openai.com.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.OpenAIKey == "" {
		return nil, errors.New("OPENAI_KEY is not configured")
	}

	return &OpenAIProvider{
		apiKey:  config.OpenAIKey,
		baseURL: strings.TrimRight(config.OpenAIHost, "/"),
		model:   config.OpenAIModel,
		client:  &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (provider *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	request := chatRequest{
		Model:    provider.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}

	data, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, provider.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	httpRequest.Header.Set("Authorization", "Bearer "+provider.apiKey)
	httpRequest.Header.Set("Content-Type", "application/json")

	response, err := provider.client.Do(httpRequest)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat API returned status %d: %s", response.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse chat response: %w", err)
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", &EmptyCompletionError{Provider: "openai"}
	}

	return parsed.Choices[0].Message.Content, nil
}

type (
	chatRequest struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}

	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	chatResponse struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
)
