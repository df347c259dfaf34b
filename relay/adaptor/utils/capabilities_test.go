package utils

import (
	"testing"

	"github.com/stretchr/testify/require"

	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
)

func TestValidateFamilyParametersToolSupport(t *testing.T) {
	req := &relaymodel.GeneralOpenAIRequest{
		Messages: []relaymodel.Message{{Role: "user", Content: "hi"}},
		Tools: []relaymodel.Tool{{
			Type:     "function",
			Function: &relaymodel.Function{Name: "get_weather"},
		}},
	}

	require.NoError(t, ValidateFamilyParameters(req, "claude"))
	require.NoError(t, ValidateFamilyParameters(req, "mistral"))

	err := ValidateFamilyParameters(req, "llama3")
	require.Error(t, err)
	require.Contains(t, err.Error(), "tools")
}

func TestValidateFamilyParametersRejectsNotClamps(t *testing.T) {
	penalty := 0.5
	bias := map[string]any{"50256": -100}
	req := &relaymodel.GeneralOpenAIRequest{
		Messages:         []relaymodel.Message{{Role: "user", Content: "hi"}},
		FrequencyPenalty: &penalty,
		LogitBias:        bias,
	}

	err := ValidateFamilyParameters(req, "claude")
	require.Error(t, err)
	require.Contains(t, err.Error(), "frequency_penalty")
	require.Contains(t, err.Error(), "logit_bias")
}

func TestValidateFamilyParametersZeroPenaltyAccepted(t *testing.T) {
	zero := 0.0
	req := &relaymodel.GeneralOpenAIRequest{
		Messages:         []relaymodel.Message{{Role: "user", Content: "hi"}},
		FrequencyPenalty: &zero,
		PresencePenalty:  &zero,
	}
	require.NoError(t, ValidateFamilyParameters(req, "claude"))
}

func TestValidateFamilyParametersVision(t *testing.T) {
	req := &relaymodel.GeneralOpenAIRequest{
		Messages: []relaymodel.Message{{
			Role: "user",
			Content: []any{
				map[string]any{"type": "image_url", "image_url": map[string]any{"url": "https://example.com/a.png"}},
			},
		}},
	}

	require.NoError(t, ValidateFamilyParameters(req, "claude"))

	err := ValidateFamilyParameters(req, "llama3")
	require.Error(t, err)
	require.Contains(t, err.Error(), "image content")
}

func TestValidateFamilyParametersUnknownFamilyIsRestrictive(t *testing.T) {
	maxCompletion := 128
	req := &relaymodel.GeneralOpenAIRequest{
		Messages:            []relaymodel.Message{{Role: "user", Content: "hi"}},
		MaxCompletionTokens: &maxCompletion,
	}
	err := ValidateFamilyParameters(req, "unknown")
	require.Error(t, err)
	require.Contains(t, err.Error(), "max_completion_tokens")
}
