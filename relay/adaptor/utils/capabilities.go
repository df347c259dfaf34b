package utils

import (
	"strings"

	"github.com/Laisky/errors/v2"

	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
)

// FamilyCapabilities declares which OpenAI request parameters a model family
// can honor. Parameters outside the declared set are rejected up front, never
// silently dropped.
type FamilyCapabilities struct {
	SupportsTools               bool
	SupportsVision              bool
	SupportsResponseFormat      bool
	SupportsLogprobs            bool
	SupportsLogitBias           bool
	SupportsFrequencyPenalty    bool
	SupportsPresencePenalty     bool
	SupportsSeed                bool
	SupportsMaxCompletionTokens bool
}

var familyCapabilities = map[string]FamilyCapabilities{
	"claude": {
		SupportsTools:               true,
		SupportsVision:              true,
		SupportsMaxCompletionTokens: true,
	},
	"llama3": {
		SupportsMaxCompletionTokens: true,
	},
	"mistral": {
		SupportsTools:               true,
		SupportsMaxCompletionTokens: true,
	},
}

// GetFamilyCapabilities returns the capability set for a family; unknown
// families get the empty (most restrictive) set.
func GetFamilyCapabilities(family string) FamilyCapabilities {
	return familyCapabilities[family]
}

// ValidateFamilyParameters rejects request parameters the resolved family
// cannot honor. The error names every offending parameter.
func ValidateFamilyParameters(request *relaymodel.GeneralOpenAIRequest, family string) error {
	caps := GetFamilyCapabilities(family)
	var unsupported []string

	if len(request.Tools) > 0 && !caps.SupportsTools {
		unsupported = append(unsupported, "tools")
	}
	if request.ToolChoice != nil && !caps.SupportsTools {
		unsupported = append(unsupported, "tool_choice")
	}
	if request.ResponseFormat != nil && !caps.SupportsResponseFormat {
		unsupported = append(unsupported, "response_format")
	}
	if request.Logprobs != nil && *request.Logprobs && !caps.SupportsLogprobs {
		unsupported = append(unsupported, "logprobs")
	}
	if request.TopLogprobs != nil && !caps.SupportsLogprobs {
		unsupported = append(unsupported, "top_logprobs")
	}
	if len(request.LogitBias) > 0 && !caps.SupportsLogitBias {
		unsupported = append(unsupported, "logit_bias")
	}
	if request.FrequencyPenalty != nil && *request.FrequencyPenalty != 0 && !caps.SupportsFrequencyPenalty {
		unsupported = append(unsupported, "frequency_penalty")
	}
	if request.PresencePenalty != nil && *request.PresencePenalty != 0 && !caps.SupportsPresencePenalty {
		unsupported = append(unsupported, "presence_penalty")
	}
	if request.Seed != nil && !caps.SupportsSeed {
		unsupported = append(unsupported, "seed")
	}
	if request.MaxCompletionTokens != nil && !caps.SupportsMaxCompletionTokens {
		unsupported = append(unsupported, "max_completion_tokens")
	}
	if !caps.SupportsVision && hasImageContent(request) {
		unsupported = append(unsupported, "messages: image content")
	}

	if len(unsupported) > 0 {
		return errors.Errorf("parameters not supported by %s models: %s",
			family, strings.Join(unsupported, ", "))
	}
	return nil
}

func hasImageContent(request *relaymodel.GeneralOpenAIRequest) bool {
	for _, message := range request.Messages {
		for _, part := range message.ParseContent() {
			if part.Type == relaymodel.ContentTypeImageURL {
				return true
			}
		}
	}
	return false
}
