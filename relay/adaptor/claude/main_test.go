package claude

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/fuchsia74/bedrock-gateway/common/ctxkey"
	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
	"github.com/fuchsia74/bedrock-gateway/relay/relaymode"
)

func TestConvertRequestLiftsSystemMessages(t *testing.T) {
	req := relaymodel.GeneralOpenAIRequest{
		Model: "claude-3-5-sonnet-20241022",
		Messages: []relaymodel.Message{
			{Role: "system", Content: "be terse"},
			{Role: "user", Content: "hello"},
		},
	}

	claudeReq, err := ConvertRequest(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, anthropicVersion, claudeReq.AnthropicVersion)
	require.Len(t, claudeReq.System, 1)
	require.Equal(t, "be terse", claudeReq.System[0].Text)
	require.Len(t, claudeReq.Messages, 1)
	require.Equal(t, "user", claudeReq.Messages[0].Role)
	require.Equal(t, "hello", claudeReq.Messages[0].Content[0].Text)
}

func TestConvertRequestDefaultsMaxTokens(t *testing.T) {
	req := relaymodel.GeneralOpenAIRequest{
		Messages: []relaymodel.Message{{Role: "user", Content: "hi"}},
	}

	claudeReq, err := ConvertRequest(context.Background(), req)
	require.NoError(t, err)
	require.Greater(t, claudeReq.MaxTokens, 0)
}

func TestConvertRequestClearsTopPWhenTemperatureProvided(t *testing.T) {
	temp := 0.6
	topP := 0.5
	req := relaymodel.GeneralOpenAIRequest{
		Messages:    []relaymodel.Message{{Role: "user", Content: "hi"}},
		Temperature: &temp,
		TopP:        &topP,
	}

	claudeReq, err := ConvertRequest(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, claudeReq.Temperature)
	require.Nil(t, claudeReq.TopP)
}

func TestConvertRequestMapsTools(t *testing.T) {
	req := relaymodel.GeneralOpenAIRequest{
		Messages: []relaymodel.Message{{Role: "user", Content: "weather in paris?"}},
		Tools: []relaymodel.Tool{{
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
		}},
		ToolChoice: "required",
	}

	claudeReq, err := ConvertRequest(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, claudeReq.Tools, 1)
	require.Equal(t, "get_weather", claudeReq.Tools[0].Name)
	require.Equal(t, map[string]any{"type": "any"}, claudeReq.ToolChoice)
}

func TestConvertRequestReplaysToolHistory(t *testing.T) {
	req := relaymodel.GeneralOpenAIRequest{
		Messages: []relaymodel.Message{
			{Role: "user", Content: "weather in paris?"},
			{
				Role: "assistant",
				ToolCalls: []relaymodel.Tool{{
					Id:   "toolu_01",
					Type: "function",
					Function: &relaymodel.Function{
						Name:      "get_weather",
						Arguments: `{"city":"paris"}`,
					},
				}},
			},
			{Role: "tool", ToolCallId: "toolu_01", Content: "18C, cloudy"},
		},
	}

	claudeReq, err := ConvertRequest(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, claudeReq.Messages, 3)

	assistant := claudeReq.Messages[1]
	require.Equal(t, "assistant", assistant.Role)
	require.Equal(t, "tool_use", assistant.Content[0].Type)
	require.Equal(t, "toolu_01", assistant.Content[0].Id)

	result := claudeReq.Messages[2]
	require.Equal(t, "user", result.Role)
	require.Equal(t, "tool_result", result.Content[0].Type)
	require.Equal(t, "toolu_01", result.Content[0].ToolUseId)
}

func TestConvertRequestRejectsToolMessageWithoutCallID(t *testing.T) {
	req := relaymodel.GeneralOpenAIRequest{
		Messages: []relaymodel.Message{
			{Role: "user", Content: "hi"},
			{Role: "tool", Content: "orphan result"},
		},
	}

	_, err := ConvertRequest(context.Background(), req)
	require.Error(t, err)
	require.Contains(t, err.Error(), "tool_call_id")
}

func TestStopReasonMapping(t *testing.T) {
	cases := []struct {
		native string
		want   string
	}{
		{"end_turn", "stop"},
		{"stop_sequence", "stop"},
		{"max_tokens", "length"},
		{"tool_use", "tool_calls"},
		{"content_filtered", "content_filter"},
		{"something_new", "something_new"},
	}
	for _, tc := range cases {
		got := stopReasonClaude2OpenAI(tc.native)
		require.NotNil(t, got, tc.native)
		require.Equal(t, tc.want, *got, tc.native)
	}

	require.Nil(t, stopReasonClaude2OpenAI(""))
}

func TestResponseClaude2OpenAI(t *testing.T) {
	resp := &Response{
		Id:   "msg_01",
		Role: "assistant",
		Content: []Content{
			{Type: "text", Text: "the weather is "},
			{Type: "text", Text: "cloudy"},
			{Type: "tool_use", Id: "toolu_02", Name: "get_weather", Input: map[string]any{"city": "paris"}},
		},
		StopReason: "tool_use",
		Usage: Usage{
			InputTokens:          12,
			OutputTokens:         5,
			CacheReadInputTokens: 3,
		},
	}

	openaiResp, err := ResponseClaude2OpenAI(resp, "claude-3-5-sonnet-20241022")
	require.NoError(t, err)
	require.Len(t, openaiResp.Choices, 1)

	choice := openaiResp.Choices[0]
	require.Equal(t, "the weather is cloudy", choice.Message.Content)
	require.Equal(t, "tool_calls", choice.FinishReason)
	require.Len(t, choice.Message.ToolCalls, 1)
	args, ok := choice.Message.ToolCalls[0].Function.Arguments.(string)
	require.True(t, ok)
	require.JSONEq(t, `{"city":"paris"}`, args)

	require.Equal(t, 15, openaiResp.Usage.PromptTokens)
	require.Equal(t, 5, openaiResp.Usage.CompletionTokens)
	require.Equal(t, 20, openaiResp.Usage.TotalTokens)
	require.NotNil(t, openaiResp.Usage.PromptTokensDetails)
	require.Equal(t, 3, openaiResp.Usage.PromptTokensDetails.CachedTokens)
}

func TestAdaptorConvertRequestStashesConvertedRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)

	adaptor := Adaptor{}
	req := &relaymodel.GeneralOpenAIRequest{
		Model:    "claude-3-5-sonnet-20241022",
		Messages: []relaymodel.Message{{Role: "user", Content: "hello"}},
	}

	converted, err := adaptor.ConvertRequest(c, relaymode.ChatCompletions, req)
	require.NoError(t, err)

	claudeReq, ok := converted.(*Request)
	require.True(t, ok)
	require.Len(t, claudeReq.Messages, 1)

	stored, exists := c.Get(ctxkey.ConvertedRequest)
	require.True(t, exists)
	require.Same(t, claudeReq, stored)

	model, exists := c.Get(ctxkey.RequestModel)
	require.True(t, exists)
	require.Equal(t, "claude-3-5-sonnet-20241022", model)
}
