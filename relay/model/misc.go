package model

// Usage is the token usage block returned to clients. All counters come from
// Bedrock verbatim; when the backend omits them the whole block is omitted
// (omitempty) rather than fabricated as zero.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
	// PromptTokensDetails may be empty for most families; Claude prompt
	// caching reports cache reads here.
	PromptTokensDetails *UsagePromptTokensDetails `json:"prompt_tokens_details,omitempty"`
}

// UsagePromptTokensDetails contains details about the prompt tokens used in a request.
type UsagePromptTokensDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

// Error follows the OpenAI error body shape; Type values are the stable
// gateway taxonomy (invalid_request_error, unknown_model, unauthorized,
// upstream_throttled, upstream_error, decode_error, timeout).
type Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    any    `json:"code,omitempty"`
	// RawError preserves the original upstream or internal error for logs.
	// Omitted from JSON to avoid leaking provider internals.
	RawError error `json:"-"`
}

type ErrorWithStatusCode struct {
	Error
	StatusCode int `json:"status_code"`
	// RetryAfter carries the upstream Retry-After header value on throttled
	// responses, forwarded as a response header rather than in the body.
	RetryAfter string `json:"-"`
}

// Error taxonomy type values.
const (
	ErrTypeInvalidRequest    = "invalid_request_error"
	ErrTypeUnknownModel      = "unknown_model"
	ErrTypeUnauthorized      = "unauthorized"
	ErrTypeUpstreamThrottled = "upstream_throttled"
	ErrTypeUpstream          = "upstream_error"
	ErrTypeDecode            = "decode_error"
	ErrTypeTimeout           = "timeout"
)
