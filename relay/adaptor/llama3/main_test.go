package llama3

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/require"

	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
)

func TestConvertRequestBuildsConverseInput(t *testing.T) {
	temp := 0.4
	req := relaymodel.GeneralOpenAIRequest{
		Model: "llama3-3-70b-instruct",
		Messages: []relaymodel.Message{
			{Role: "system", Content: "be terse"},
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
			{Role: "user", Content: "explain quicksort"},
		},
		MaxTokens:   256,
		Temperature: &temp,
		Stop:        []any{"END"},
	}

	converseReq, err := ConvertRequest(req)
	require.NoError(t, err)

	require.Len(t, converseReq.System, 1)
	system, ok := converseReq.System[0].(*types.SystemContentBlockMemberText)
	require.True(t, ok)
	require.Equal(t, "be terse", system.Value)

	require.Len(t, converseReq.Messages, 3)
	require.Equal(t, types.ConversationRoleUser, converseReq.Messages[0].Role)
	require.Equal(t, types.ConversationRoleAssistant, converseReq.Messages[1].Role)

	require.NotNil(t, converseReq.InferenceConfig.MaxTokens)
	require.EqualValues(t, 256, *converseReq.InferenceConfig.MaxTokens)
	require.NotNil(t, converseReq.InferenceConfig.Temperature)
	require.InDelta(t, 0.4, *converseReq.InferenceConfig.Temperature, 1e-6)
	require.Equal(t, []string{"END"}, converseReq.InferenceConfig.StopSequences)
}

func TestConvertRequestRejectsUnsupportedRole(t *testing.T) {
	req := relaymodel.GeneralOpenAIRequest{
		Messages: []relaymodel.Message{{Role: "tool", Content: "x", ToolCallId: "call_1"}},
	}
	_, err := ConvertRequest(req)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported role")
}

func TestConvertRequestDefaultsMaxTokens(t *testing.T) {
	req := relaymodel.GeneralOpenAIRequest{
		Messages: []relaymodel.Message{{Role: "user", Content: "hi"}},
	}
	converseReq, err := ConvertRequest(req)
	require.NoError(t, err)
	require.NotNil(t, converseReq.InferenceConfig.MaxTokens)
	require.Greater(t, *converseReq.InferenceConfig.MaxTokens, int32(0))
}

func TestConvertStopReason(t *testing.T) {
	cases := []struct {
		native types.StopReason
		want   string
	}{
		{types.StopReasonEndTurn, "stop"},
		{types.StopReasonStopSequence, "stop"},
		{types.StopReasonMaxTokens, "length"},
		{types.StopReasonToolUse, "tool_calls"},
		{types.StopReasonContentFiltered, "content_filter"},
		{types.StopReasonGuardrailIntervened, "content_filter"},
		{types.StopReason("brand_new_reason"), "brand_new_reason"},
	}
	for _, tc := range cases {
		got := convertStopReason(tc.native)
		require.NotNil(t, got, string(tc.native))
		require.Equal(t, tc.want, *got, string(tc.native))
	}
	require.Nil(t, convertStopReason(types.StopReason("")))
}

func TestUsageFromConverse(t *testing.T) {
	in := int32(11)
	out := int32(4)
	total := int32(15)
	usage := usageFromConverse(&types.TokenUsage{
		InputTokens:  &in,
		OutputTokens: &out,
		TotalTokens:  &total,
	})
	require.Equal(t, 11, usage.PromptTokens)
	require.Equal(t, 4, usage.CompletionTokens)
	require.Equal(t, 15, usage.TotalTokens)

	require.Zero(t, usageFromConverse(nil))
}
