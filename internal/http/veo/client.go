// Package veo implements a client for the Veo text-to-video generation API.
// Video generation is a long-running operation: the client starts the
// generation, polls the returned operation until it settles, then downloads
// the resulting clip. Longer videos are produced by sequentially extending
// the previous clip with the next scene prompt.
package veo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fabricahq/fabrica/pkg/logger"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

var log = logger.Get("Veo")

type (
	Config struct {
		APIKey string `yaml:"api_key" env:"VEO_API_KEY"`
		Model  string `yaml:"model" env:"VEO_MODEL_NAME" env-default:"veo-2"`

		// Maximum number of ~8s extension segments appended after the
		// initial clip. Zero produces a single-segment video.
		Extensions int `yaml:"extensions" env:"VEO_EXTENSIONS" env-default:"5"`
	}

	Client struct {
		config       Config
		baseURL      string
		client       *http.Client
		pollInterval time.Duration
	}
)

func NewClient(config Config) *Client {
	return &Client{
		config:       config,
		baseURL:      defaultBaseURL,
		client:       &http.Client{Timeout: 120 * time.Second},
		pollInterval: 10 * time.Second,
	}
}

// WithBaseURL points the client at an alternative API host. Used by tests.
func (client *Client) WithBaseURL(baseURL string) *Client {
	client.baseURL = baseURL
	return client
}

// WithPollInterval adjusts the operation polling cadence. Used by tests.
func (client *Client) WithPollInterval(interval time.Duration) *Client {
	client.pollInterval = interval
	return client
}

// Enabled reports whether the client is configured well enough to attempt
// video generation.
func (client *Client) Enabled() bool {
	return client.config.APIKey != ""
}

// Generate produces a video from the provided scene prompts. The first
// prompt seeds the initial clip; each subsequent prompt extends the video
// by roughly eight seconds, capped by the configured extension budget.
// The final video bytes are returned.
func (client *Client) Generate(ctx context.Context, scenePrompts []string) ([]byte, error) {
	if !client.Enabled() {
		return nil, &ConfigError{"VEO_API_KEY is not configured"}
	}
	if len(scenePrompts) == 0 {
		return nil, &ConfigError{"at least one scene prompt is required"}
	}

	extensions := len(scenePrompts) - 1
	if extensions > client.config.Extensions {
		extensions = client.config.Extensions
	}

	log.Emit(logger.NEW, "Generating initial clip (1 of %d segments)...\n", extensions+1)
	videoURI, err := client.generateSegment(ctx, scenePrompts[0], "")
	if err != nil {
		return nil, err
	}

	for i := 0; i < extensions; i++ {
		log.Emit(logger.INFO, "Extending video (segment %d of %d)...\n", i+2, extensions+1)
		videoURI, err = client.generateSegment(ctx, scenePrompts[i+1], videoURI)
		if err != nil {
			return nil, err
		}
	}

	log.Emit(logger.INFO, "Downloading final video (~%ds)...\n", (extensions+1)*8)
	return client.download(ctx, videoURI)
}

// generateSegment starts a single long-running generation (optionally
// extending a previous clip) and polls it to completion, returning the URI
// of the produced video.
func (client *Client) generateSegment(ctx context.Context, prompt string, previousURI string) (string, error) {
	instance := generationInstance{Prompt: prompt}
	if previousURI != "" {
		instance.Video = &videoReference{URI: previousURI}
	}

	request := generationRequest{
		Instances: []generationInstance{instance},
		Parameters: generationParameters{
			AspectRatio: "16:9",
			Resolution:  "720p",
		},
	}

	var operation operationResponse
	path := fmt.Sprintf("%s/models/%s:predictLongRunning", client.baseURL, client.config.Model)
	if err := client.postJSON(ctx, path, request, &operation); err != nil {
		return "", err
	}

	settled, err := client.awaitOperation(ctx, operation.Name)
	if err != nil {
		return "", err
	}

	samples := settled.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 || samples[0].Video.URI == "" {
		return "", &OperationError{Name: operation.Name, Reason: "operation completed without a generated video"}
	}

	return samples[0].Video.URI, nil
}

// awaitOperation polls the named operation until it reports done, the
// context is cancelled, or the API reports an error.
func (client *Client) awaitOperation(ctx context.Context, name string) (*operationResponse, error) {
	ticker := time.NewTicker(client.pollInterval)
	defer ticker.Stop()

	for {
		var operation operationResponse
		if err := client.getJSON(ctx, fmt.Sprintf("%s/%s", client.baseURL, name), &operation); err != nil {
			return nil, err
		}

		if operation.Error != nil {
			return nil, &OperationError{Name: name, Reason: operation.Error.Message}
		}
		if operation.Done {
			return &operation, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// download retrieves the video bytes behind the given URI.
func (client *Client) download(ctx context.Context, uri string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, &RequestError{Reason: err.Error()}
	}
	request.Header.Set("x-goog-api-key", client.config.APIKey)

	response, err := client.client.Do(request)
	if err != nil {
		return nil, &RequestError{Reason: err.Error()}
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, &FailedRequestError{HTTPCode: response.StatusCode, Message: "video download failed"}
	}

	return io.ReadAll(response.Body)
}

func (client *Client) postJSON(ctx context.Context, path string, payload any, target any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return &RequestError{Reason: err.Error()}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return &RequestError{Reason: err.Error()}
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("x-goog-api-key", client.config.APIKey)

	return client.doJSON(request, target)
}

func (client *Client) getJSON(ctx context.Context, path string, target any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return &RequestError{Reason: err.Error()}
	}
	request.Header.Set("x-goog-api-key", client.config.APIKey)

	return client.doJSON(request, target)
}

func (client *Client) doJSON(request *http.Request, target any) error {
	response, err := client.client.Do(request)
	if err != nil {
		return &RequestError{Reason: err.Error()}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return &RequestError{Reason: err.Error()}
	}

	if response.StatusCode != http.StatusOK {
		var apiErr apiErrorEnvelope
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return &FailedRequestError{HTTPCode: response.StatusCode, Message: apiErr.Error.Message}
		}

		return &FailedRequestError{HTTPCode: response.StatusCode, Message: "non-OK response could not be unmarshalled"}
	}

	if err := json.Unmarshal(body, target); err != nil {
		return &RequestError{Reason: fmt.Sprintf("response JSON could not be unmarshalled: %s", err.Error())}
	}

	return nil
}

type (
	generationRequest struct {
		Instances  []generationInstance `json:"instances"`
		Parameters generationParameters `json:"parameters"`
	}

	generationInstance struct {
		Prompt string          `json:"prompt"`
		Video  *videoReference `json:"video,omitempty"`
	}

	videoReference struct {
		URI string `json:"uri"`
	}

	generationParameters struct {
		AspectRatio string `json:"aspectRatio,omitempty"`
		Resolution  string `json:"resolution,omitempty"`
	}

	operationResponse struct {
		Name  string `json:"name"`
		Done  bool   `json:"done"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error,omitempty"`
		Response struct {
			GenerateVideoResponse struct {
				GeneratedSamples []struct {
					Video struct {
						URI string `json:"uri"`
					} `json:"video"`
				} `json:"generatedSamples"`
			} `json:"generateVideoResponse"`
		} `json:"response"`
	}

	apiErrorEnvelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
)

type (
	// ConfigError indicates the client cannot operate with its current
	// configuration.
	ConfigError struct{ Reason string }

	// RequestError covers transport-level failures talking to the API.
	RequestError struct{ Reason string }

	// FailedRequestError carries a non-OK API response.
	FailedRequestError struct {
		HTTPCode int
		Message  string
	}

	// OperationError indicates a long-running generation settled with an
	// error or an empty result.
	OperationError struct {
		Name   string
		Reason string
	}
)

func (err *ConfigError) Error() string { return "veo client misconfigured: " + err.Reason }
func (err *RequestError) Error() string {
	return "unknown error occurred while communicating with Veo: " + err.Reason
}
func (err *FailedRequestError) Error() string {
	return fmt.Sprintf("Request failure (HTTP %d): %s", err.HTTPCode, err.Message)
}
func (err *OperationError) Error() string {
	return fmt.Sprintf("video generation operation '%s' failed: %s", err.Name, err.Reason)
}
