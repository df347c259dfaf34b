package model

// EmbeddingRequest is the OpenAI-compatible embeddings request body. Input
// accepts a string or an array of strings.
type EmbeddingRequest struct {
	Model          string `json:"model,omitempty"`
	Input          any    `json:"input" binding:"required"`
	EncodingFormat string `json:"encoding_format,omitempty"`
	Dimensions     int    `json:"dimensions,omitempty"`
	User           string `json:"user,omitempty"`
}

// InputTexts normalizes the input field into an ordered list of texts.
func (r EmbeddingRequest) InputTexts() []string {
	switch v := r.Input.(type) {
	case string:
		return []string{v}
	case []any:
		texts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				texts = append(texts, s)
			}
		}
		return texts
	case []string:
		return v
	default:
		return nil
	}
}

// EmbeddingResponse is the OpenAI-compatible embeddings response body.
type EmbeddingResponse struct {
	Object string                  `json:"object"`
	Data   []EmbeddingResponseItem `json:"data"`
	Model  string                  `json:"model"`
	Usage  `json:"usage"`
}

type EmbeddingResponseItem struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}
