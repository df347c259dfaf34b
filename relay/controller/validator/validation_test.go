package validator

import (
	"testing"

	"github.com/stretchr/testify/require"

	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
	"github.com/fuchsia74/bedrock-gateway/relay/relaymode"
)

func TestValidateTextRequestAcceptsWellFormed(t *testing.T) {
	req := &relaymodel.GeneralOpenAIRequest{
		Model: "claude-3-5-sonnet-20241022",
		Messages: []relaymodel.Message{
			{Role: "system", Content: "be terse"},
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
			{Role: "user", Content: "bye"},
		},
	}
	require.NoError(t, ValidateTextRequest(req, relaymode.ChatCompletions))
}

func TestValidateTextRequestListsOffendingFields(t *testing.T) {
	temp := 3.5
	req := &relaymodel.GeneralOpenAIRequest{
		Messages: []relaymodel.Message{
			{Role: "user"},
			{Role: "narrator", Content: "once upon a time"},
			{Role: "tool", Content: "result"},
		},
		MaxTokens:   -1,
		Temperature: &temp,
	}

	err := ValidateTextRequest(req, relaymode.ChatCompletions)
	require.Error(t, err)
	require.Contains(t, err.Error(), "messages[0].content")
	require.Contains(t, err.Error(), "messages[1].role")
	require.Contains(t, err.Error(), "messages[2].tool_call_id")
	require.Contains(t, err.Error(), "max_tokens")
	require.Contains(t, err.Error(), "temperature")
}

func TestValidateTextRequestRejectsEmptyMessages(t *testing.T) {
	err := ValidateTextRequest(&relaymodel.GeneralOpenAIRequest{}, relaymode.ChatCompletions)
	require.Error(t, err)
	require.Contains(t, err.Error(), "messages")
}

func TestValidateTextRequestRejectsLateSystemMessage(t *testing.T) {
	req := &relaymodel.GeneralOpenAIRequest{
		Messages: []relaymodel.Message{
			{Role: "user", Content: "hi"},
			{Role: "system", Content: "too late"},
		},
	}
	err := ValidateTextRequest(req, relaymode.ChatCompletions)
	require.Error(t, err)
	require.Contains(t, err.Error(), "messages[1].role")
}

func TestValidateTextRequestRejectsWrongMode(t *testing.T) {
	req := &relaymodel.GeneralOpenAIRequest{
		Messages: []relaymodel.Message{{Role: "user", Content: "hi"}},
	}
	require.Error(t, ValidateTextRequest(req, relaymode.Embeddings))
}

func TestValidateEmbeddingRequest(t *testing.T) {
	require.Error(t, ValidateEmbeddingRequest(&relaymodel.EmbeddingRequest{}))

	require.NoError(t, ValidateEmbeddingRequest(&relaymodel.EmbeddingRequest{Input: "hello"}))
	require.NoError(t, ValidateEmbeddingRequest(&relaymodel.EmbeddingRequest{
		Input: []any{"a", "b"},
	}))

	err := ValidateEmbeddingRequest(&relaymodel.EmbeddingRequest{Input: 42})
	require.Error(t, err)
	require.Contains(t, err.Error(), "input")
}
