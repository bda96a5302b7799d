package ai

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAIProvider(t *testing.T) *OpenAIProvider {
	provider, err := NewOpenAIProvider(Config{
		OpenAIKey:   "test-key",
		OpenAIHost:  "https://chat.test/v1",
		OpenAIModel: "gpt-4o-mini",
	})
	require.Nil(t, err)

	httpmock.ActivateNonDefault(provider.client)
	t.Cleanup(httpmock.DeactivateAndReset)

	return provider
}

func Test_OpenAIProvider_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIProvider(Config{OpenAIHost: "https://chat.test/v1"})
	assert.NotNil(t, err)
}

func Test_OpenAIProvider_ReturnsCompletionText(t *testing.T) {
	provider := newTestOpenAIProvider(t)

	httpmock.RegisterResponder("POST", "https://chat.test/v1/chat/completions",
		httpmock.NewStringResponder(200, `{"choices":[{"message":{"role":"assistant","content":"# Golpes Online\n\nConteudo gerado"}}]}`))

	completion, err := provider.Complete(context.Background(), "gere um insight")
	require.Nil(t, err)
	assert.Contains(t, completion, "Golpes Online")
}

func Test_OpenAIProvider_ErrorsOnNonOKStatus(t *testing.T) {
	provider := newTestOpenAIProvider(t)

	httpmock.RegisterResponder("POST", "https://chat.test/v1/chat/completions",
		httpmock.NewStringResponder(429, `{"error":{"message":"rate limited"}}`))

	_, err := provider.Complete(context.Background(), "prompt")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "429")
}

func Test_OpenAIProvider_ErrorsOnEmptyCompletion(t *testing.T) {
	provider := newTestOpenAIProvider(t)

	httpmock.RegisterResponder("POST", "https://chat.test/v1/chat/completions",
		httpmock.NewStringResponder(200, `{"choices":[]}`))

	_, err := provider.Complete(context.Background(), "prompt")

	var emptyErr *EmptyCompletionError
	require.ErrorAs(t, err, &emptyErr)
	assert.Equal(t, "openai", emptyErr.Provider)
}
