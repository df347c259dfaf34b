// Package validator checks relay request bodies before any backend call is
// made, so malformed payloads fail fast with the offending fields named.
package validator

import (
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"

	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
	"github.com/fuchsia74/bedrock-gateway/relay/relaymode"
)

var validRoles = map[string]bool{
	"system":    true,
	"user":      true,
	"assistant": true,
	"tool":      true,
}

// ValidateTextRequest checks required fields and role sequence of a chat
// request. The error message lists every offending field.
func ValidateTextRequest(textRequest *relaymodel.GeneralOpenAIRequest, relayMode int) error {
	if relayMode != relaymode.ChatCompletions {
		return errors.New("unsupported relay mode")
	}

	var offending []string

	if len(textRequest.Messages) == 0 {
		offending = append(offending, "messages: must not be empty")
	}

	sawConversation := false
	for i, message := range textRequest.Messages {
		field := fmt.Sprintf("messages[%d]", i)
		if !validRoles[message.Role] {
			offending = append(offending, field+".role: must be one of system, user, assistant, tool")
			continue
		}
		if message.Role == "system" && sawConversation {
			offending = append(offending, field+".role: system messages must precede the conversation")
		}
		if message.Role != "system" {
			sawConversation = true
		}
		if message.Role == "tool" && message.ToolCallId == "" {
			offending = append(offending, field+".tool_call_id: required for tool messages")
		}
		if message.Role == "user" && message.Content == nil {
			offending = append(offending, field+".content: required for user messages")
		}
	}

	if textRequest.MaxTokens < 0 {
		offending = append(offending, "max_tokens: must not be negative")
	}
	if textRequest.Temperature != nil && (*textRequest.Temperature < 0 || *textRequest.Temperature > 2) {
		offending = append(offending, "temperature: must be between 0 and 2")
	}
	if textRequest.TopP != nil && (*textRequest.TopP < 0 || *textRequest.TopP > 1) {
		offending = append(offending, "top_p: must be between 0 and 1")
	}
	if textRequest.N != nil && *textRequest.N != 0 && *textRequest.N != 1 {
		offending = append(offending, "n: only a single choice is supported")
	}

	for i, tool := range textRequest.Tools {
		if err := tool.Validate(); err != nil {
			offending = append(offending, fmt.Sprintf("tools[%d]: %v", i, err))
		}
	}

	if len(offending) > 0 {
		return errors.Errorf("invalid request: %s", strings.Join(offending, "; "))
	}
	return nil
}

// ValidateEmbeddingRequest checks required fields of an embeddings request.
func ValidateEmbeddingRequest(request *relaymodel.EmbeddingRequest) error {
	var offending []string

	if request.Input == nil {
		offending = append(offending, "input: required")
	} else if len(request.InputTexts()) == 0 {
		offending = append(offending, "input: must be a string or an array of strings")
	}

	if len(offending) > 0 {
		return errors.Errorf("invalid request: %s", strings.Join(offending, "; "))
	}
	return nil
}
