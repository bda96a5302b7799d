// Package imagen implements a client for the Imagen image generation
// predict API, used to render the infographic attached to each knowledge
// pill.
package imagen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type (
	Config struct {
		APIKey string `yaml:"api_key" env:"IMAGEN_API_KEY"`
		Model  string `yaml:"model" env:"IMAGEN_MODEL_NAME" env-default:"imagen-3.0-generate-002"`
	}

	Client struct {
		config  Config
		baseURL string
		client  *http.Client
	}
)

func NewClient(config Config) *Client {
	return &Client{
		config:  config,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// WithBaseURL points the client at an alternative API host. Used by tests.
func (client *Client) WithBaseURL(baseURL string) *Client {
	client.baseURL = baseURL
	return client
}

// Enabled reports whether the client is configured well enough to attempt
// image generation.
func (client *Client) Enabled() bool {
	return client.config.APIKey != ""
}

// Generate renders a single image for the given prompt and returns its
// bytes (PNG). Person generation is disabled; the infographics target
// educational content.
func (client *Client) Generate(ctx context.Context, prompt string, aspectRatio string) ([]byte, error) {
	if !client.Enabled() {
		return nil, &ConfigError{"IMAGEN_API_KEY is not configured"}
	}
	if aspectRatio == "" {
		aspectRatio = "1:1"
	}

	request := predictRequest{
		Instances: []predictInstance{{Prompt: prompt}},
		Parameters: predictParameters{
			SampleCount:      1,
			AspectRatio:      aspectRatio,
			PersonGeneration: "dont_allow",
		},
	}

	data, err := json.Marshal(request)
	if err != nil {
		return nil, &RequestError{Reason: err.Error()}
	}

	path := fmt.Sprintf("%s/models/%s:predict", client.baseURL, client.config.Model)
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return nil, &RequestError{Reason: err.Error()}
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("x-goog-api-key", client.config.APIKey)

	response, err := client.client.Do(httpRequest)
	if err != nil {
		return nil, &RequestError{Reason: err.Error()}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &RequestError{Reason: err.Error()}
	}

	if response.StatusCode != http.StatusOK {
		return nil, &FailedRequestError{HTTPCode: response.StatusCode, Message: string(body)}
	}

	var parsed predictResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &RequestError{Reason: fmt.Sprintf("response JSON could not be unmarshalled: %s", err.Error())}
	}

	if len(parsed.Predictions) == 0 || parsed.Predictions[0].BytesBase64Encoded == "" {
		return nil, &EmptyResultError{}
	}

	image, err := base64.StdEncoding.DecodeString(parsed.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return nil, &RequestError{Reason: fmt.Sprintf("image payload is not valid base64: %s", err.Error())}
	}

	return image, nil
}

type (
	predictRequest struct {
		Instances  []predictInstance `json:"instances"`
		Parameters predictParameters `json:"parameters"`
	}

	predictInstance struct {
		Prompt string `json:"prompt"`
	}

	predictParameters struct {
		SampleCount      int    `json:"sampleCount"`
		AspectRatio      string `json:"aspectRatio,omitempty"`
		PersonGeneration string `json:"personGeneration,omitempty"`
	}

	predictResponse struct {
		Predictions []struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
			MimeType           string `json:"mimeType"`
		} `json:"predictions"`
	}
)

type (
	ConfigError        struct{ Reason string }
	RequestError       struct{ Reason string }
	FailedRequestError struct {
		HTTPCode int
		Message  string
	}
	EmptyResultError struct{}
)

func (err *ConfigError) Error() string { return "imagen client misconfigured: " + err.Reason }
func (err *RequestError) Error() string {
	return "unknown error occurred while communicating with Imagen: " + err.Reason
}
func (err *FailedRequestError) Error() string {
	return fmt.Sprintf("Request failure (HTTP %d): %s", err.HTTPCode, err.Message)
}
func (err *EmptyResultError) Error() string { return "no images were generated" }
