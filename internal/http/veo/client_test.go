package veo

import (
	"context"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://veo.test/v1beta"

func newTestClient(t *testing.T) *Client {
	client := NewClient(Config{APIKey: "test-key", Model: "veo-2", Extensions: 5}).
		WithBaseURL(testBaseURL).
		WithPollInterval(time.Millisecond)

	httpmock.ActivateNonDefault(client.client)
	t.Cleanup(httpmock.DeactivateAndReset)

	return client
}

// registerGeneration wires up the three calls one segment makes: starting
// the long-running operation, polling it, and downloading the clip.
func registerGeneration(videoURI string, videoBytes []byte) {
	httpmock.RegisterResponder("POST", testBaseURL+"/models/veo-2:predictLongRunning",
		httpmock.NewStringResponder(200, `{"name":"operations/op-1","done":false}`))

	httpmock.RegisterResponder("GET", testBaseURL+"/operations/op-1",
		httpmock.NewStringResponder(200,
			`{"name":"operations/op-1","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"`+videoURI+`"}}]}}}`))

	httpmock.RegisterResponder("GET", videoURI,
		httpmock.NewBytesResponder(200, videoBytes))
}

func Test_Generate_SingleScene(t *testing.T) {
	client := newTestClient(t)
	registerGeneration("https://files.test/clip.mp4", []byte("mp4-bytes"))

	video, err := client.Generate(context.Background(), []string{"Uma senhora usando o celular"})
	require.Nil(t, err)
	assert.Equal(t, []byte("mp4-bytes"), video)
}

func Test_Generate_ExtensionsCappedByConfig(t *testing.T) {
	client := NewClient(Config{APIKey: "test-key", Model: "veo-2", Extensions: 1}).
		WithBaseURL(testBaseURL).
		WithPollInterval(time.Millisecond)

	httpmock.ActivateNonDefault(client.client)
	t.Cleanup(httpmock.DeactivateAndReset)

	registerGeneration("https://files.test/clip.mp4", []byte("mp4-bytes"))

	// Three prompts but only one extension allowed: two generation calls.
	_, err := client.Generate(context.Background(), []string{"cena 1", "cena 2", "cena 3"})
	require.Nil(t, err)

	info := httpmock.GetCallCountInfo()
	assert.Equal(t, 2, info["POST "+testBaseURL+"/models/veo-2:predictLongRunning"])
}

func Test_Generate_OperationFailureSurfacesError(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("POST", testBaseURL+"/models/veo-2:predictLongRunning",
		httpmock.NewStringResponder(200, `{"name":"operations/op-1","done":false}`))
	httpmock.RegisterResponder("GET", testBaseURL+"/operations/op-1",
		httpmock.NewStringResponder(200, `{"name":"operations/op-1","done":true,"error":{"message":"quota exceeded"}}`))

	_, err := client.Generate(context.Background(), []string{"cena"})

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Contains(t, opErr.Reason, "quota exceeded")
}

func Test_Generate_WithoutAPIKey(t *testing.T) {
	client := NewClient(Config{Model: "veo-2"})
	assert.False(t, client.Enabled())

	_, err := client.Generate(context.Background(), []string{"cena"})

	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
