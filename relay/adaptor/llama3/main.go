// Package llama3 relays chat completions to Meta Llama models through the
// Bedrock Converse API.
package llama3

import (
	"fmt"
	"net/http"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/gin-gonic/gin"

	"github.com/fuchsia74/bedrock-gateway/common/config"
	"github.com/fuchsia74/bedrock-gateway/common/ctxkey"
	"github.com/fuchsia74/bedrock-gateway/common/helper"
	"github.com/fuchsia74/bedrock-gateway/common/random"
	"github.com/fuchsia74/bedrock-gateway/relay/adaptor/utils"
	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
	"github.com/fuchsia74/bedrock-gateway/relay/streaming"
)

// AwsModelIDMap maps client-facing model names to Bedrock model ids.
// https://docs.aws.amazon.com/bedrock/latest/userguide/model-ids.html
var AwsModelIDMap = map[string]string{
	"llama3-8b-8192":           "meta.llama3-8b-instruct-v1:0",
	"llama3-70b-8192":          "meta.llama3-70b-instruct-v1:0",
	"llama3-1-8b-instruct":     "meta.llama3-1-8b-instruct-v1:0",
	"llama3-1-70b-instruct":    "meta.llama3-1-70b-instruct-v1:0",
	"llama3-1-405b-instruct":   "meta.llama3-1-405b-instruct-v1:0",
	"llama3-2-1b-instruct":     "meta.llama3-2-1b-instruct-v1:0",
	"llama3-2-3b-instruct":     "meta.llama3-2-3b-instruct-v1:0",
	"llama3-2-11b-instruct":    "meta.llama3-2-11b-instruct-v1:0",
	"llama3-2-90b-instruct":    "meta.llama3-2-90b-instruct-v1:0",
	"llama3-3-70b-instruct":    "meta.llama3-3-70b-instruct-v1:0",
	"llama4-scout-17b-16e":     "meta.llama4-scout-17b-instruct-v1:0",
	"llama4-maverick-17b-128e": "meta.llama4-maverick-17b-instruct-v1:0",
}

// ConvertRequest builds the Converse input from the OpenAI request. System
// messages are lifted into the system field; consecutive ordering of the
// remaining turns is preserved.
func ConvertRequest(textRequest relaymodel.GeneralOpenAIRequest) (*bedrockruntime.ConverseInput, error) {
	converseReq := &bedrockruntime.ConverseInput{
		InferenceConfig: &types.InferenceConfiguration{},
	}

	maxTokens := textRequest.MaxTokens
	if textRequest.MaxCompletionTokens != nil && *textRequest.MaxCompletionTokens > 0 {
		maxTokens = *textRequest.MaxCompletionTokens
	}
	if maxTokens == 0 {
		maxTokens = config.DefaultMaxToken
	}
	converseReq.InferenceConfig.MaxTokens = aws.Int32(int32(maxTokens))

	if textRequest.Temperature != nil {
		converseReq.InferenceConfig.Temperature = aws.Float32(float32(*textRequest.Temperature))
	}
	if textRequest.TopP != nil {
		converseReq.InferenceConfig.TopP = aws.Float32(float32(*textRequest.TopP))
	}
	for _, seq := range convertStopSequences(textRequest.Stop) {
		converseReq.InferenceConfig.StopSequences = append(converseReq.InferenceConfig.StopSequences, seq)
	}

	for i, message := range textRequest.Messages {
		switch message.Role {
		case "system":
			converseReq.System = append(converseReq.System, &types.SystemContentBlockMemberText{
				Value: message.StringContent(),
			})
		case "user", "assistant":
			role := types.ConversationRoleUser
			if message.Role == "assistant" {
				role = types.ConversationRoleAssistant
			}
			converseReq.Messages = append(converseReq.Messages, types.Message{
				Role: role,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: message.StringContent()},
				},
			})
		default:
			return nil, errors.Errorf("messages[%d]: unsupported role %q", i, message.Role)
		}
	}
	if len(converseReq.Messages) == 0 {
		return nil, errors.New("no user or assistant messages in request")
	}

	return converseReq, nil
}

func convertStopSequences(stop any) []string {
	switch v := stop.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		sequences := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				sequences = append(sequences, s)
			}
		}
		return sequences
	case []string:
		return v
	default:
		return nil
	}
}

func convertStopReason(reason types.StopReason) *string {
	var result string
	switch reason {
	case types.StopReasonEndTurn, types.StopReasonStopSequence:
		result = relaymodel.FinishReasonStop
	case types.StopReasonMaxTokens:
		result = relaymodel.FinishReasonLength
	case types.StopReasonToolUse:
		result = relaymodel.FinishReasonToolCalls
	case types.StopReasonContentFiltered, types.StopReasonGuardrailIntervened:
		result = relaymodel.FinishReasonContentFilter
	default:
		result = string(reason)
	}
	if result == "" {
		return nil
	}
	return &result
}

func usageFromConverse(tokenUsage *types.TokenUsage) relaymodel.Usage {
	var usage relaymodel.Usage
	if tokenUsage == nil {
		return usage
	}
	if tokenUsage.InputTokens != nil {
		usage.PromptTokens = int(*tokenUsage.InputTokens)
	}
	if tokenUsage.OutputTokens != nil {
		usage.CompletionTokens = int(*tokenUsage.OutputTokens)
	}
	if tokenUsage.TotalTokens != nil {
		usage.TotalTokens = int(*tokenUsage.TotalTokens)
	} else {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return usage
}

// Handler performs the single-shot Converse call.
func Handler(c *gin.Context, awsCli *bedrockruntime.Client, modelName string) (*relaymodel.ErrorWithStatusCode, *relaymodel.Usage) {
	resolvedModel := c.GetString(ctxkey.ResolvedModel)

	converted, ok := c.Get(ctxkey.ConvertedRequest)
	if !ok {
		return utils.InvalidRequestErr(errors.New("request not found")), nil
	}
	converseReq, ok := converted.(*bedrockruntime.ConverseInput)
	if !ok {
		return utils.InvalidRequestErr(errors.New("request type mismatch")), nil
	}
	converseReq.ModelId = aws.String(resolvedModel)

	awsResp, err := awsCli.Converse(gmw.Ctx(c), converseReq)
	if err != nil {
		return utils.WrapErr(errors.Wrap(err, "Converse")), nil
	}

	openaiResp, err2 := responseConverse2OpenAI(awsResp, modelName)
	if err2 != nil {
		return utils.DecodeErr(err2), nil
	}

	c.JSON(http.StatusOK, openaiResp)
	return nil, &openaiResp.Usage
}

func responseConverse2OpenAI(output *bedrockruntime.ConverseOutput, modelName string) (*relaymodel.TextResponse, error) {
	responseMessage, ok := output.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, errors.New("unexpected converse output member")
	}

	var responseText string
	for _, block := range responseMessage.Value.Content {
		if textBlock, isText := block.(*types.ContentBlockMemberText); isText {
			responseText += textBlock.Value
		}
	}

	finishReason := ""
	if reason := convertStopReason(output.StopReason); reason != nil {
		finishReason = *reason
	}

	return &relaymodel.TextResponse{
		Id:      fmt.Sprintf("chatcmpl-%s", random.GetUUID()),
		Object:  "chat.completion",
		Created: helper.GetTimestamp(),
		Model:   modelName,
		Choices: []relaymodel.TextResponseChoice{{
			Index: 0,
			Message: relaymodel.Message{
				Role:    "assistant",
				Content: responseText,
			},
			FinishReason: finishReason,
		}},
		Usage: usageFromConverse(output.Usage),
	}, nil
}

// StreamHandler bridges ConverseStream events to OpenAI SSE chunks. The
// terminal chunk coalesces the native stop event with trailing metadata so
// finish_reason and usage arrive together.
func StreamHandler(c *gin.Context, awsCli *bedrockruntime.Client) (*relaymodel.ErrorWithStatusCode, *relaymodel.Usage) {
	lg := gmw.GetLogger(c)
	ctx := gmw.Ctx(c)
	createdTime := helper.GetTimestamp()
	resolvedModel := c.GetString(ctxkey.ResolvedModel)
	modelName := c.GetString(ctxkey.RequestModel)

	converted, ok := c.Get(ctxkey.ConvertedRequest)
	if !ok {
		return utils.InvalidRequestErr(errors.New("request not found")), nil
	}
	converseReq, ok := converted.(*bedrockruntime.ConverseInput)
	if !ok {
		return utils.InvalidRequestErr(errors.New("request type mismatch")), nil
	}

	streamReq := &bedrockruntime.ConverseStreamInput{
		ModelId:         aws.String(resolvedModel),
		Messages:        converseReq.Messages,
		System:          converseReq.System,
		InferenceConfig: converseReq.InferenceConfig,
	}

	awsResp, err := awsCli.ConverseStream(ctx, streamReq)
	if err != nil {
		return utils.WrapErr(errors.Wrap(err, "ConverseStream")), nil
	}
	stream := awsResp.GetStream()
	defer stream.Close()

	bridge := streaming.NewBridge(c, lg)
	var usage relaymodel.Usage
	finalizer := streaming.NewFinalizer(modelName, createdTime, &usage, bridge)
	finalizer.SetID(fmt.Sprintf("chatcmpl-%s", random.GetUUID()))

	c.Stream(streaming.EventLoop(ctx, lg, stream.Events(), func(event types.ConverseStreamOutput) bool {
		switch v := event.(type) {
		case *types.ConverseStreamOutputMemberMessageStart:
			return bridge.Emit(&relaymodel.ChatCompletionsStreamResponse{
				Id:      finalizer.ID(),
				Object:  "chat.completion.chunk",
				Created: createdTime,
				Model:   modelName,
				Choices: []relaymodel.ChatCompletionsStreamResponseChoice{{
					Index: 0,
					Delta: relaymodel.Message{Role: "assistant", Content: ""},
				}},
			})

		case *types.ConverseStreamOutputMemberContentBlockDelta:
			textDelta, isText := v.Value.Delta.(*types.ContentBlockDeltaMemberText)
			if !isText {
				return true
			}
			return bridge.Emit(&relaymodel.ChatCompletionsStreamResponse{
				Id:      finalizer.ID(),
				Object:  "chat.completion.chunk",
				Created: createdTime,
				Model:   modelName,
				Choices: []relaymodel.ChatCompletionsStreamResponseChoice{{
					Index: 0,
					Delta: relaymodel.Message{Content: textDelta.Value},
				}},
			})

		case *types.ConverseStreamOutputMemberMessageStop:
			finalizer.RecordStop(convertStopReason(v.Value.StopReason))
			return true

		case *types.ConverseStreamOutputMemberMetadata:
			finalizer.RecordMetadata(v.Value.Usage)
			if finalizer.HasEmittedFinalChunk() {
				bridge.Done()
				return false
			}
			return true

		default:
			lg.Debug("skip stream event", zap.String("type", fmt.Sprintf("%T", event)))
			return true
		}
	}, func() {
		if streamErr := stream.Err(); streamErr != nil {
			bridge.EmitError(utils.WrapErr(errors.Wrap(streamErr, "read response stream")))
			bridge.Done()
			return
		}
		finalizer.FinalizeOnClose()
		bridge.Done()
	}))

	if !bridge.Terminated() {
		bridge.Done()
	}
	return nil, &usage
}
