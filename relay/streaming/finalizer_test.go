package streaming

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/require"

	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
)

func finalChunk(t *testing.T, lines []string) relaymodel.ChatCompletionsStreamResponse {
	t.Helper()
	require.NotEmpty(t, lines)
	last := lines[len(lines)-1]
	var chunk relaymodel.ChatCompletionsStreamResponse
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(last, "data: ")), &chunk))
	return chunk
}

func TestFinalizerCoalescesStopThenMetadata(t *testing.T) {
	bridge, lines := collectingBridge()
	var usage relaymodel.Usage
	finalizer := NewFinalizer("llama3-3-70b-instruct", 1700000000, &usage, bridge)
	finalizer.SetID("chatcmpl-test")

	stop := "stop"
	finalizer.RecordStop(&stop)
	require.False(t, finalizer.HasEmittedFinalChunk())
	require.Empty(t, *lines)

	finalizer.RecordMetadata(&types.TokenUsage{
		InputTokens:  aws.Int32(7),
		OutputTokens: aws.Int32(3),
		TotalTokens:  aws.Int32(10),
	})
	require.True(t, finalizer.HasEmittedFinalChunk())
	require.Len(t, *lines, 1)

	chunk := finalChunk(t, *lines)
	require.Equal(t, "chatcmpl-test", chunk.Id)
	require.Equal(t, "stop", *chunk.Choices[0].FinishReason)
	require.Equal(t, 7, chunk.Usage.PromptTokens)
	require.Equal(t, 3, chunk.Usage.CompletionTokens)
	require.Equal(t, 10, chunk.Usage.TotalTokens)
}

func TestFinalizerCoalescesMetadataThenStop(t *testing.T) {
	bridge, lines := collectingBridge()
	var usage relaymodel.Usage
	finalizer := NewFinalizer("llama3-3-70b-instruct", 1700000000, &usage, bridge)
	finalizer.SetID("chatcmpl-test")

	finalizer.RecordMetadata(&types.TokenUsage{
		InputTokens:  aws.Int32(7),
		OutputTokens: aws.Int32(3),
	})
	require.False(t, finalizer.HasEmittedFinalChunk())

	stop := "length"
	finalizer.RecordStop(&stop)
	require.True(t, finalizer.HasEmittedFinalChunk())

	chunk := finalChunk(t, *lines)
	require.Equal(t, "length", *chunk.Choices[0].FinishReason)
}

func TestFinalizerEmitsOnlyOnce(t *testing.T) {
	bridge, lines := collectingBridge()
	var usage relaymodel.Usage
	finalizer := NewFinalizer("m", 1, &usage, bridge)
	finalizer.SetID("chatcmpl-test")

	stop := "stop"
	finalizer.RecordStop(&stop)
	finalizer.RecordMetadata(nil)
	finalizer.RecordMetadata(nil)
	finalizer.FinalizeOnClose()

	require.Len(t, *lines, 1)
}

func TestFinalizerFinalizeOnCloseWithoutMetadata(t *testing.T) {
	bridge, lines := collectingBridge()
	var usage relaymodel.Usage
	finalizer := NewFinalizer("m", 1, &usage, bridge)
	finalizer.SetID("chatcmpl-test")

	stop := "stop"
	finalizer.RecordStop(&stop)
	require.Empty(t, *lines)

	finalizer.FinalizeOnClose()
	require.Len(t, *lines, 1)

	chunk := finalChunk(t, *lines)
	require.Equal(t, "stop", *chunk.Choices[0].FinishReason)
	// No metadata arrived; the usage block is absent, never fabricated.
	require.Nil(t, chunk.Usage)
}
