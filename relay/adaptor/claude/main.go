// Package claude translates between the OpenAI chat schema and the native
// Anthropic Messages schema used by Claude models on Bedrock.
package claude

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

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

const anthropicVersion = "bedrock-2023-05-31"

// AwsModelIDMap maps client-facing model names to Bedrock model ids.
// https://docs.aws.amazon.com/bedrock/latest/userguide/model-ids.html
var AwsModelIDMap = map[string]string{
	"claude-3-haiku-20240307":    "anthropic.claude-3-haiku-20240307-v1:0",
	"claude-3-sonnet-20240229":   "anthropic.claude-3-sonnet-20240229-v1:0",
	"claude-3-opus-20240229":     "anthropic.claude-3-opus-20240229-v1:0",
	"claude-3-5-haiku-20241022":  "anthropic.claude-3-5-haiku-20241022-v1:0",
	"claude-3-5-sonnet-20240620": "anthropic.claude-3-5-sonnet-20240620-v1:0",
	"claude-3-5-sonnet-20241022": "anthropic.claude-3-5-sonnet-20241022-v2:0",
	"claude-3-7-sonnet-20250219": "anthropic.claude-3-7-sonnet-20250219-v1:0",
	"claude-sonnet-4-20250514":   "anthropic.claude-sonnet-4-20250514-v1:0",
	"claude-opus-4-20250514":     "anthropic.claude-opus-4-20250514-v1:0",
	"claude-opus-4-1-20250805":   "anthropic.claude-opus-4-1-20250805-v1:0",
}

// ConvertRequest builds the native Claude request from the OpenAI request.
// Message ordering is preserved; system messages are lifted into the
// top-level system field, tool results become user-side tool_result blocks.
func ConvertRequest(ctx context.Context, textRequest relaymodel.GeneralOpenAIRequest) (*Request, error) {
	claudeReq := &Request{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        textRequest.MaxTokens,
		Temperature:      textRequest.Temperature,
		TopP:             textRequest.TopP,
		TopK:             textRequest.TopK,
		StopSequences:    convertStopSequences(textRequest.Stop),
	}
	if claudeReq.MaxTokens == 0 {
		claudeReq.MaxTokens = config.DefaultMaxToken
	}
	if textRequest.MaxCompletionTokens != nil && *textRequest.MaxCompletionTokens > 0 {
		claudeReq.MaxTokens = *textRequest.MaxCompletionTokens
	}
	// Claude rejects requests carrying both nucleus and temperature sampling.
	if claudeReq.Temperature != nil && claudeReq.TopP != nil {
		claudeReq.TopP = nil
	}

	for _, tool := range textRequest.Tools {
		if err := tool.Validate(); err != nil {
			return nil, errors.Wrap(err, "validate tool")
		}
		claudeReq.Tools = append(claudeReq.Tools, Tool{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			InputSchema: tool.Function.Parameters,
		})
	}
	if choice, err := convertToolChoice(textRequest.ToolChoice); err != nil {
		return nil, err
	} else if choice != nil {
		claudeReq.ToolChoice = choice
	}

	for i, message := range textRequest.Messages {
		switch message.Role {
		case "system":
			block := Content{Type: "text", Text: message.StringContent()}
			if config.EnablePromptCaching && len(message.CacheControl) > 0 {
				block.CacheControl = message.CacheControl
			}
			claudeReq.System = append(claudeReq.System, block)
		case "tool":
			if message.ToolCallId == "" {
				return nil, errors.Errorf("messages[%d]: tool message requires tool_call_id", i)
			}
			claudeReq.Messages = append(claudeReq.Messages, Message{
				Role: "user",
				Content: []Content{{
					Type:      "tool_result",
					ToolUseId: message.ToolCallId,
					Content:   message.StringContent(),
				}},
			})
		case "user", "assistant":
			converted, err := convertMessage(ctx, message)
			if err != nil {
				return nil, errors.Wrapf(err, "messages[%d]", i)
			}
			claudeReq.Messages = append(claudeReq.Messages, converted)
		default:
			return nil, errors.Errorf("messages[%d]: unsupported role %q", i, message.Role)
		}
	}
	if len(claudeReq.Messages) == 0 {
		return nil, errors.New("no user or assistant messages in request")
	}

	return claudeReq, nil
}

func convertMessage(ctx context.Context, message relaymodel.Message) (Message, error) {
	converted := Message{Role: message.Role}

	for _, part := range message.ParseContent() {
		switch part.Type {
		case relaymodel.ContentTypeText:
			block := Content{Type: "text", Text: part.Text}
			if config.EnablePromptCaching && len(message.CacheControl) > 0 {
				block.CacheControl = message.CacheControl
			}
			converted.Content = append(converted.Content, block)
		case relaymodel.ContentTypeImageURL:
			data, mediaType, err := utils.DownloadImageFromURL(ctx, part.ImageURL.Url)
			if err != nil {
				return Message{}, errors.Wrap(err, "fetch image content")
			}
			converted.Content = append(converted.Content, Content{
				Type: "image",
				Source: &ImageSource{
					Type:      "base64",
					MediaType: mediaType,
					Data:      encodeBase64(data),
				},
			})
		}
	}

	// Assistant tool calls from conversation history become tool_use blocks.
	for _, toolCall := range message.ToolCalls {
		if toolCall.Function == nil {
			continue
		}
		argsStr, err := toolCall.Function.ArgumentsString()
		if err != nil {
			return Message{}, err
		}
		var input any
		if argsStr != "" {
			if err := json.Unmarshal([]byte(argsStr), &input); err != nil {
				return Message{}, errors.Wrapf(err, "unmarshal arguments of tool %s", toolCall.Function.Name)
			}
		} else {
			input = map[string]any{}
		}
		converted.Content = append(converted.Content, Content{
			Type:  "tool_use",
			Id:    toolCall.Id,
			Name:  toolCall.Function.Name,
			Input: input,
		})
	}

	if len(converted.Content) == 0 {
		converted.Content = []Content{{Type: "text", Text: message.StringContent()}}
	}
	return converted, nil
}

func convertToolChoice(toolChoice any) (any, error) {
	switch v := toolChoice.(type) {
	case nil:
		return nil, nil
	case string:
		switch v {
		case "auto", "none":
			return map[string]any{"type": "auto"}, nil
		case "required":
			return map[string]any{"type": "any"}, nil
		default:
			return nil, errors.Errorf("unsupported tool_choice %q", v)
		}
	case map[string]any:
		if fn, ok := v["function"].(map[string]any); ok {
			if name, ok := fn["name"].(string); ok && name != "" {
				return map[string]any{"type": "tool", "name": name}, nil
			}
		}
		return nil, errors.New("tool_choice object requires function.name")
	default:
		return nil, errors.Errorf("unsupported tool_choice of type %T", toolChoice)
	}
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

// stopReasonClaude2OpenAI maps native stop reasons onto the fixed OpenAI
// finish-reason enumeration. Unknown reasons pass through verbatim.
func stopReasonClaude2OpenAI(reason string) *string {
	if reason == "" {
		return nil
	}

	var result string
	switch reason {
	case "end_turn", "stop_sequence":
		result = relaymodel.FinishReasonStop
	case "max_tokens":
		result = relaymodel.FinishReasonLength
	case "tool_use":
		result = relaymodel.FinishReasonToolCalls
	case "content_filtered":
		result = relaymodel.FinishReasonContentFilter
	default:
		result = reason
	}

	return &result
}

// ResponseClaude2OpenAI converts the aggregated native response. Usage
// counters come from the backend verbatim; cache reads surface via
// prompt_tokens_details.
func ResponseClaude2OpenAI(claudeResponse *Response, modelName string) (*relaymodel.TextResponse, error) {
	var responseText strings.Builder
	var toolCalls []relaymodel.Tool

	for _, content := range claudeResponse.Content {
		switch content.Type {
		case "text":
			responseText.WriteString(content.Text)
		case "tool_use":
			args, err := json.Marshal(content.Input)
			if err != nil {
				return nil, errors.Wrapf(err, "marshal input of tool %s", content.Name)
			}
			toolCalls = append(toolCalls, relaymodel.Tool{
				Id:   content.Id,
				Type: "function",
				Function: &relaymodel.Function{
					Name:      content.Name,
					Arguments: string(args),
				},
			})
		}
	}

	finishReason := ""
	if reason := stopReasonClaude2OpenAI(claudeResponse.StopReason); reason != nil {
		finishReason = *reason
	}

	choice := relaymodel.TextResponseChoice{
		Index: 0,
		Message: relaymodel.Message{
			Role:      "assistant",
			Content:   responseText.String(),
			ToolCalls: toolCalls,
		},
		FinishReason: finishReason,
	}

	fullTextResponse := &relaymodel.TextResponse{
		Id:      fmt.Sprintf("chatcmpl-%s", random.GetUUID()),
		Object:  "chat.completion",
		Created: helper.GetTimestamp(),
		Model:   modelName,
		Choices: []relaymodel.TextResponseChoice{choice},
		Usage:   usageClaude2OpenAI(claudeResponse.Usage),
	}
	return fullTextResponse, nil
}

func usageClaude2OpenAI(claudeUsage Usage) relaymodel.Usage {
	usage := relaymodel.Usage{
		PromptTokens:     claudeUsage.InputTokens + claudeUsage.CacheReadInputTokens + claudeUsage.CacheCreationInputTokens,
		CompletionTokens: claudeUsage.OutputTokens,
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	if claudeUsage.CacheReadInputTokens > 0 {
		usage.PromptTokensDetails = &relaymodel.UsagePromptTokensDetails{
			CachedTokens: claudeUsage.CacheReadInputTokens,
		}
	}
	return usage
}

// Handler performs the single-shot InvokeModel call.
func Handler(c *gin.Context, awsCli *bedrockruntime.Client, modelName string) (*relaymodel.ErrorWithStatusCode, *relaymodel.Usage) {
	resolvedModel := c.GetString(ctxkey.ResolvedModel)

	claudeReq, ok := c.Get(ctxkey.ConvertedRequest)
	if !ok {
		return utils.InvalidRequestErr(errors.New("request not found")), nil
	}

	body, err := json.Marshal(claudeReq)
	if err != nil {
		return utils.DecodeErr(errors.Wrap(err, "marshal native request")), nil
	}

	awsResp, err := awsCli.InvokeModel(gmw.Ctx(c), &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(resolvedModel),
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return utils.WrapErr(errors.Wrap(err, "InvokeModel")), nil
	}

	claudeResponse := new(Response)
	if err := json.Unmarshal(awsResp.Body, claudeResponse); err != nil {
		return utils.DecodeErr(errors.Wrap(err, "unmarshal native response")), nil
	}

	openaiResp, err := ResponseClaude2OpenAI(claudeResponse, modelName)
	if err != nil {
		return utils.DecodeErr(err), nil
	}

	c.JSON(http.StatusOK, openaiResp)
	return nil, &openaiResp.Usage
}

// StreamHandler bridges the native response stream to OpenAI SSE events,
// preserving arrival order and emitting exactly one terminal chunk. Client
// disconnects cancel the backend stream via the request context.
func StreamHandler(c *gin.Context, awsCli *bedrockruntime.Client) (*relaymodel.ErrorWithStatusCode, *relaymodel.Usage) {
	lg := gmw.GetLogger(c)
	ctx := gmw.Ctx(c)
	resolvedModel := c.GetString(ctxkey.ResolvedModel)
	modelName := c.GetString(ctxkey.RequestModel)

	claudeReq, ok := c.Get(ctxkey.ConvertedRequest)
	if !ok {
		return utils.InvalidRequestErr(errors.New("request not found")), nil
	}

	body, err := json.Marshal(claudeReq)
	if err != nil {
		return utils.DecodeErr(errors.Wrap(err, "marshal native request")), nil
	}

	awsResp, err := awsCli.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(resolvedModel),
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return utils.WrapErr(errors.Wrap(err, "InvokeModelWithResponseStream")), nil
	}
	stream := awsResp.GetStream()
	defer stream.Close()

	bridge := streaming.NewBridge(c, lg)
	state := newStreamState(bridge, modelName, helper.GetTimestamp())

	c.Stream(streaming.EventLoop(ctx, lg, stream.Events(),
		func(event types.ResponseStream) bool {
			chunk, chunkOK := event.(*types.ResponseStreamMemberChunk)
			if !chunkOK {
				lg.Debug("skip unexpected stream event")
				return true
			}

			claudeResp := new(StreamResponse)
			if err := json.Unmarshal(chunk.Value.Bytes, claudeResp); err != nil {
				lg.Error("unmarshal stream chunk", zap.Error(err))
				bridge.EmitError(utils.DecodeErr(errors.Wrap(err, "unmarshal stream chunk")))
				bridge.Done()
				return false
			}

			return state.handleChunk(claudeResp)
		},
		func() { state.handleClose(stream.Err()) },
	))

	if !bridge.Terminated() {
		bridge.Done()
	}
	return nil, &state.usage
}

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
