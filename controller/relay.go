// Package controller exposes the gin handlers of the gateway's HTTP surface.
package controller

import (
	"github.com/gin-gonic/gin"

	relaycontroller "github.com/fuchsia74/bedrock-gateway/relay/controller"
	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
)

// ChatCompletions serves POST /v1/chat/completions.
func ChatCompletions(c *gin.Context) {
	respondRelayError(c, relaycontroller.RelayTextHelper(c))
}

// Embeddings serves POST /v1/embeddings.
func Embeddings(c *gin.Context) {
	respondRelayError(c, relaycontroller.RelayEmbeddingHelper(c))
}

// respondRelayError writes the structured error body unless the response is
// already in flight (a started SSE stream carries its own error event).
func respondRelayError(c *gin.Context, relayErr *relaymodel.ErrorWithStatusCode) {
	if relayErr == nil {
		return
	}
	if c.Writer.Written() {
		return
	}
	if relayErr.RetryAfter != "" {
		c.Header("Retry-After", relayErr.RetryAfter)
	}
	c.JSON(relayErr.StatusCode, gin.H{"error": relayErr.Error})
}
