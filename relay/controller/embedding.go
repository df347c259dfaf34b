package controller

import (
	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/fuchsia74/bedrock-gateway/common/client"
	"github.com/fuchsia74/bedrock-gateway/common/ctxkey"
	"github.com/fuchsia74/bedrock-gateway/monitor"
	"github.com/fuchsia74/bedrock-gateway/relay/controller/validator"
	"github.com/fuchsia74/bedrock-gateway/relay/meta"
	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
	"github.com/fuchsia74/bedrock-gateway/relay/registry"
)

// RelayEmbeddingHelper handles one embeddings call end to end.
func RelayEmbeddingHelper(c *gin.Context) *relaymodel.ErrorWithStatusCode {
	lg := gmw.GetLogger(c)
	relayMeta := meta.GetByContext(c)

	embeddingRequest := &relaymodel.EmbeddingRequest{}
	if err := c.ShouldBindJSON(embeddingRequest); err != nil {
		return InvalidRequestError(errors.Wrap(err, "bind request body"))
	}
	if err := validator.ValidateEmbeddingRequest(embeddingRequest); err != nil {
		lg.Debug("invalid embedding request", zap.Error(err))
		return InvalidRequestError(err)
	}

	descriptor, resolvedModel, err := registry.Resolve(gmw.Ctx(c), embeddingRequest.Model)
	if err != nil {
		return ResolutionError(err)
	}
	if !descriptor.Embedding {
		return InvalidRequestError(errors.Errorf("model %q does not support embeddings", descriptor.ID))
	}

	relayMeta.OriginModelName = descriptor.ID
	relayMeta.ActualModelName = resolvedModel
	c.Set(ctxkey.ResolvedModel, resolvedModel)

	adaptor, ok := registry.EmbeddingAdaptor(descriptor.Family)
	if !ok {
		return ResolutionError(errors.Wrapf(registry.ErrUnknownModel, "no adapter for family %q", descriptor.Family))
	}

	if _, err := adaptor.ConvertEmbeddingRequest(c, embeddingRequest); err != nil {
		return InvalidRequestError(err)
	}

	usage, respErr := adaptor.DoEmbeddingResponse(c, client.BedrockRuntime, relayMeta)
	if respErr != nil {
		lg.Warn("embedding relay failed",
			zap.String("model", descriptor.ID),
			zap.Int("status", respErr.StatusCode),
			zap.Error(respErr.Error.RawError))
		return respErr
	}

	if usage != nil {
		monitor.RecordUsage(descriptor.ID, usage.PromptTokens, usage.CompletionTokens)
		lg.Debug("embedding relay completed",
			zap.String("model", descriptor.ID),
			zap.Int("prompt_tokens", usage.PromptTokens))
	}
	return nil
}
