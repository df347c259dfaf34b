// Package adaptor declares the per-family translation contract: OpenAI
// request in, family-native Bedrock request out, and native responses or
// stream chunks back to OpenAI-compatible JSON. Implementations are pure
// translators; the only I/O they perform is the Bedrock call itself.
package adaptor

import (
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/gin-gonic/gin"

	"github.com/fuchsia74/bedrock-gateway/relay/meta"
	"github.com/fuchsia74/bedrock-gateway/relay/model"
)

// Adaptor translates chat completions for one Bedrock model family.
type Adaptor interface {
	// ConvertRequest builds the family-native request from the OpenAI
	// request and stashes it on the context for DoResponse.
	ConvertRequest(c *gin.Context, relayMode int, request *model.GeneralOpenAIRequest) (any, error)
	// DoResponse performs the Bedrock call (single-shot or streaming per
	// meta.IsStream) and writes the OpenAI-compatible response.
	DoResponse(c *gin.Context, awsCli *bedrockruntime.Client, meta *meta.Meta) (*model.Usage, *model.ErrorWithStatusCode)
}

// EmbeddingAdaptor is implemented by embedding-only families.
type EmbeddingAdaptor interface {
	ConvertEmbeddingRequest(c *gin.Context, request *model.EmbeddingRequest) (any, error)
	DoEmbeddingResponse(c *gin.Context, awsCli *bedrockruntime.Client, meta *meta.Meta) (*model.Usage, *model.ErrorWithStatusCode)
}
