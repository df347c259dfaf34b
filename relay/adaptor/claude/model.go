package claude

import "encoding/json"

// Native Anthropic Messages schema as accepted by Bedrock InvokeModel with
// anthropic_version "bedrock-2023-05-31".
// https://docs.aws.amazon.com/bedrock/latest/userguide/model-parameters-anthropic-claude-messages.html

// Request is the native request payload.
type Request struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	System           []Content `json:"system,omitempty"`
	Messages         []Message `json:"messages"`
	Temperature      *float64  `json:"temperature,omitempty"`
	TopP             *float64  `json:"top_p,omitempty"`
	TopK             int       `json:"top_k,omitempty"`
	StopSequences    []string  `json:"stop_sequences,omitempty"`
	Tools            []Tool    `json:"tools,omitempty"`
	ToolChoice       any       `json:"tool_choice,omitempty"`
}

// Message is one native conversation turn; role is user or assistant only,
// system prompts live in the top-level system field and tool results are
// user-side tool_result blocks.
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// Content is one typed block of a native message or of the system prompt.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	// Image input (type=image)
	Source *ImageSource `json:"source,omitempty"`
	// Tool use (type=tool_use, assistant side)
	Id    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Input any    `json:"input,omitempty"`
	// Tool result (type=tool_result, user side)
	ToolUseId string `json:"tool_use_id,omitempty"`
	Content   any    `json:"content,omitempty"`
	// Prompt cache hint, forwarded only when prompt caching is enabled.
	CacheControl json.RawMessage `json:"cache_control,omitempty"`
}

type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"input_schema"`
}

// Usage is the native token accounting block.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
}

// Response is the aggregated native response.
type Response struct {
	Id         string    `json:"id"`
	Type       string    `json:"type"`
	Role       string    `json:"role"`
	Content    []Content `json:"content"`
	Model      string    `json:"model"`
	StopReason string    `json:"stop_reason"`
	Usage      Usage     `json:"usage"`
}

// StreamResponse is one native streaming event, decoded from the
// InvokeModelWithResponseStream payload part. The fields populated depend on
// Type (message_start, content_block_start, content_block_delta,
// content_block_stop, message_delta, message_stop, ping, error).
type StreamResponse struct {
	Type         string       `json:"type"`
	Index        int          `json:"index"`
	Message      *Response    `json:"message,omitempty"`
	ContentBlock *Content     `json:"content_block,omitempty"`
	Delta        *StreamDelta `json:"delta,omitempty"`
	Usage        *Usage       `json:"usage,omitempty"`
	Error        *StreamError `json:"error,omitempty"`
}

// StreamDelta carries the incremental part of content_block_delta and
// message_delta events.
type StreamDelta struct {
	Type string `json:"type"`
	// text_delta
	Text string `json:"text,omitempty"`
	// input_json_delta: one fragment of the tool-use input JSON
	PartialJSON string `json:"partial_json,omitempty"`
	// message_delta
	StopReason   string `json:"stop_reason,omitempty"`
	StopSequence string `json:"stop_sequence,omitempty"`
}

type StreamError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
