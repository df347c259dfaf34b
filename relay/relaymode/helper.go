package relaymode

import "strings"

func GetByPath(path string) int {
	switch {
	case strings.HasPrefix(path, "/v1/chat/completions"):
		return ChatCompletions
	case strings.HasPrefix(path, "/v1/embeddings"),
		strings.HasSuffix(path, "embeddings"):
		return Embeddings
	default:
		return Unknown
	}
}
