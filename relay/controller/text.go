// Package controller dispatches one relay call: bind and validate the
// client payload, resolve the model, convert via the family adapter, and
// perform the Bedrock call.
package controller

import (
	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/fuchsia74/bedrock-gateway/common/client"
	"github.com/fuchsia74/bedrock-gateway/common/ctxkey"
	"github.com/fuchsia74/bedrock-gateway/monitor"
	"github.com/fuchsia74/bedrock-gateway/relay/adaptor/utils"
	"github.com/fuchsia74/bedrock-gateway/relay/controller/validator"
	"github.com/fuchsia74/bedrock-gateway/relay/meta"
	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
	"github.com/fuchsia74/bedrock-gateway/relay/registry"
)

func getAndValidateTextRequest(c *gin.Context, relayMode int) (*relaymodel.GeneralOpenAIRequest, error) {
	textRequest := &relaymodel.GeneralOpenAIRequest{}
	if err := c.ShouldBindJSON(textRequest); err != nil {
		return nil, errors.Wrap(err, "bind request body")
	}
	if err := validator.ValidateTextRequest(textRequest, relayMode); err != nil {
		return nil, err
	}
	return textRequest, nil
}

// RelayTextHelper handles one chat-completions call end to end.
func RelayTextHelper(c *gin.Context) *relaymodel.ErrorWithStatusCode {
	lg := gmw.GetLogger(c)
	relayMeta := meta.GetByContext(c)

	textRequest, err := getAndValidateTextRequest(c, relayMeta.Mode)
	if err != nil {
		lg.Debug("invalid text request", zap.Error(err))
		return InvalidRequestError(err)
	}

	descriptor, resolvedModel, err := registry.Resolve(gmw.Ctx(c), textRequest.Model)
	if err != nil {
		return ResolutionError(err)
	}
	if descriptor.Embedding {
		return InvalidRequestError(errors.Errorf("model %q does not support chat completions", descriptor.ID))
	}

	relayMeta.OriginModelName = descriptor.ID
	relayMeta.ActualModelName = resolvedModel
	relayMeta.IsStream = textRequest.Stream
	c.Set(ctxkey.ResolvedModel, resolvedModel)

	adaptor, ok := registry.ChatAdaptor(descriptor.Family)
	if !ok {
		return ResolutionError(errors.Wrapf(registry.ErrUnknownModel, "no adapter for family %q", descriptor.Family))
	}

	if err := utils.ValidateFamilyParameters(textRequest, string(descriptor.Family)); err != nil {
		return InvalidRequestError(err)
	}

	if _, err := adaptor.ConvertRequest(c, relayMeta.Mode, textRequest); err != nil {
		return InvalidRequestError(err)
	}

	if relayMeta.IsStream {
		monitor.StreamingConnections.Inc()
		defer monitor.StreamingConnections.Dec()
	}

	usage, respErr := adaptor.DoResponse(c, client.BedrockRuntime, relayMeta)
	if respErr != nil {
		lg.Warn("relay failed",
			zap.String("model", descriptor.ID),
			zap.String("resolved_model", resolvedModel),
			zap.Int("status", respErr.StatusCode),
			zap.Error(respErr.Error.RawError))
		return respErr
	}

	if usage != nil {
		monitor.RecordUsage(descriptor.ID, usage.PromptTokens, usage.CompletionTokens)
		lg.Debug("relay completed",
			zap.String("model", descriptor.ID),
			zap.Int("prompt_tokens", usage.PromptTokens),
			zap.Int("completion_tokens", usage.CompletionTokens))
	}
	return nil
}
