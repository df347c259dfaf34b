package model

// GeneralOpenAIRequest is the OpenAI-compatible chat completion request body.
// Field coverage follows the chat completions API; parameters a Bedrock
// family cannot honor are rejected by the per-family capability check rather
// than silently dropped.
type GeneralOpenAIRequest struct {
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages,omitempty"`
	Stream   bool      `json:"stream,omitempty"`

	MaxTokens           int      `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int     `json:"max_completion_tokens,omitempty"`
	Temperature         *float64 `json:"temperature,omitempty"`
	TopP                *float64 `json:"top_p,omitempty"`
	TopK                int      `json:"top_k,omitempty"`
	// Stop accepts either a string or a list of strings.
	Stop any  `json:"stop,omitempty"`
	N    *int `json:"n,omitempty"`

	Tools      []Tool `json:"tools,omitempty"`
	ToolChoice any    `json:"tool_choice,omitempty"`

	// Parameters below are accepted for schema compatibility and validated
	// against the resolved family's capabilities.
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64        `json:"presence_penalty,omitempty"`
	LogitBias        map[string]any  `json:"logit_bias,omitempty"`
	Logprobs         *bool           `json:"logprobs,omitempty"`
	TopLogprobs      *int            `json:"top_logprobs,omitempty"`
	ResponseFormat   *ResponseFormat `json:"response_format,omitempty"`
	Seed             *int            `json:"seed,omitempty"`
	User             string          `json:"user,omitempty"`
	StreamOptions    *StreamOptions  `json:"stream_options,omitempty"`
}

// ResponseFormat mirrors the OpenAI response_format field.
type ResponseFormat struct {
	Type       string `json:"type,omitempty"`
	JSONSchema any    `json:"json_schema,omitempty"`
}

// StreamOptions mirrors the OpenAI stream_options field.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage,omitempty"`
}
