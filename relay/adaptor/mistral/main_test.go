package mistral

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/require"

	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
)

func weatherTool() relaymodel.Tool {
	return relaymodel.Tool{
		Type: "function",
		Function: &relaymodel.Function{
			Name:        "get_weather",
			Description: "look up current weather",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"city": map[string]any{"type": "string"},
				},
			},
		},
	}
}

func TestConvertRequestMapsToolConfig(t *testing.T) {
	req := relaymodel.GeneralOpenAIRequest{
		Messages:   []relaymodel.Message{{Role: "user", Content: "weather in paris?"}},
		Tools:      []relaymodel.Tool{weatherTool()},
		ToolChoice: "auto",
	}

	converseReq, err := ConvertRequest(req)
	require.NoError(t, err)
	require.NotNil(t, converseReq.ToolConfig)
	require.Len(t, converseReq.ToolConfig.Tools, 1)

	spec, ok := converseReq.ToolConfig.Tools[0].(*types.ToolMemberToolSpec)
	require.True(t, ok)
	require.Equal(t, "get_weather", aws.ToString(spec.Value.Name))

	_, ok = converseReq.ToolConfig.ToolChoice.(*types.ToolChoiceMemberAuto)
	require.True(t, ok)
}

func TestConvertRequestSpecificToolChoice(t *testing.T) {
	req := relaymodel.GeneralOpenAIRequest{
		Messages: []relaymodel.Message{{Role: "user", Content: "hi"}},
		Tools:    []relaymodel.Tool{weatherTool()},
		ToolChoice: map[string]any{
			"type":     "function",
			"function": map[string]any{"name": "get_weather"},
		},
	}

	converseReq, err := ConvertRequest(req)
	require.NoError(t, err)

	choice, ok := converseReq.ToolConfig.ToolChoice.(*types.ToolChoiceMemberTool)
	require.True(t, ok)
	require.Equal(t, "get_weather", aws.ToString(choice.Value.Name))
}

func TestConvertRequestReplaysToolRoundTrip(t *testing.T) {
	req := relaymodel.GeneralOpenAIRequest{
		Messages: []relaymodel.Message{
			{Role: "user", Content: "weather in paris?"},
			{
				Role: "assistant",
				ToolCalls: []relaymodel.Tool{{
					Id:   "call_1",
					Type: "function",
					Function: &relaymodel.Function{
						Name:      "get_weather",
						Arguments: `{"city":"paris"}`,
					},
				}},
			},
			{Role: "tool", ToolCallId: "call_1", Content: "18C, cloudy"},
		},
		Tools: []relaymodel.Tool{weatherTool()},
	}

	converseReq, err := ConvertRequest(req)
	require.NoError(t, err)
	require.Len(t, converseReq.Messages, 3)

	assistant := converseReq.Messages[1]
	require.Equal(t, types.ConversationRoleAssistant, assistant.Role)
	toolUse, ok := assistant.Content[0].(*types.ContentBlockMemberToolUse)
	require.True(t, ok)
	require.Equal(t, "call_1", aws.ToString(toolUse.Value.ToolUseId))

	result := converseReq.Messages[2]
	require.Equal(t, types.ConversationRoleUser, result.Role)
	toolResult, ok := result.Content[0].(*types.ContentBlockMemberToolResult)
	require.True(t, ok)
	require.Equal(t, "call_1", aws.ToString(toolResult.Value.ToolUseId))
}

func TestConvertRequestRejectsOrphanToolMessage(t *testing.T) {
	req := relaymodel.GeneralOpenAIRequest{
		Messages: []relaymodel.Message{
			{Role: "user", Content: "hi"},
			{Role: "tool", Content: "orphan"},
		},
	}
	_, err := ConvertRequest(req)
	require.Error(t, err)
	require.Contains(t, err.Error(), "tool_call_id")
}

func TestConvertRequestRejectsUnknownToolChoice(t *testing.T) {
	req := relaymodel.GeneralOpenAIRequest{
		Messages:   []relaymodel.Message{{Role: "user", Content: "hi"}},
		Tools:      []relaymodel.Tool{weatherTool()},
		ToolChoice: "sometimes",
	}
	_, err := ConvertRequest(req)
	require.Error(t, err)
}

func TestStreamToolCallIndexFollowsBlockOrder(t *testing.T) {
	calls := map[int32]*streamToolCall{
		1: {name: "first"},
		3: {name: "second"},
		5: {name: "third"},
	}
	require.Equal(t, 0, toolCallIndex(calls, 1))
	require.Equal(t, 1, toolCallIndex(calls, 3))
	require.Equal(t, 2, toolCallIndex(calls, 5))
}
