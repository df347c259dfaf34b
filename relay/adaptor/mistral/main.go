// Package mistral relays chat completions to Mistral models through the
// Bedrock Converse API, including tool invocation round trips.
package mistral

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
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
	"mistral-7b-instruct":   "mistral.mistral-7b-instruct-v0:2",
	"mixtral-8x7b-instruct": "mistral.mixtral-8x7b-instruct-v0:1",
	"mistral-small-2402":    "mistral.mistral-small-2402-v1:0",
	"mistral-large-2402":    "mistral.mistral-large-2402-v1:0",
	"mistral-large-2407":    "mistral.mistral-large-2407-v1:0",
	"pixtral-large-2502":    "mistral.pixtral-large-2502-v1:0",
}

// ConvertRequest builds the Converse input from the OpenAI request. Tool
// declarations map to toolConfig; tool results and prior assistant tool
// calls are replayed as toolResult / toolUse content blocks.
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
	converseReq.InferenceConfig.StopSequences = convertStopSequences(textRequest.Stop)

	if toolConfig, err := convertTools(textRequest.Tools, textRequest.ToolChoice); err != nil {
		return nil, err
	} else if toolConfig != nil {
		converseReq.ToolConfig = toolConfig
	}

	for i, message := range textRequest.Messages {
		switch message.Role {
		case "system":
			converseReq.System = append(converseReq.System, &types.SystemContentBlockMemberText{
				Value: message.StringContent(),
			})
		case "tool":
			if message.ToolCallId == "" {
				return nil, errors.Errorf("messages[%d]: tool message requires tool_call_id", i)
			}
			converseReq.Messages = append(converseReq.Messages, types.Message{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberToolResult{
						Value: types.ToolResultBlock{
							ToolUseId: aws.String(message.ToolCallId),
							Content: []types.ToolResultContentBlock{
								&types.ToolResultContentBlockMemberText{Value: message.StringContent()},
							},
						},
					},
				},
			})
		case "user":
			converseReq.Messages = append(converseReq.Messages, types.Message{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: message.StringContent()},
				},
			})
		case "assistant":
			converted, err := convertAssistantMessage(message)
			if err != nil {
				return nil, errors.Wrapf(err, "messages[%d]", i)
			}
			converseReq.Messages = append(converseReq.Messages, converted)
		default:
			return nil, errors.Errorf("messages[%d]: unsupported role %q", i, message.Role)
		}
	}
	if len(converseReq.Messages) == 0 {
		return nil, errors.New("no user or assistant messages in request")
	}

	return converseReq, nil
}

func convertAssistantMessage(message relaymodel.Message) (types.Message, error) {
	converted := types.Message{Role: types.ConversationRoleAssistant}

	if text := message.StringContent(); text != "" {
		converted.Content = append(converted.Content, &types.ContentBlockMemberText{Value: text})
	}

	for _, toolCall := range message.ToolCalls {
		if toolCall.Function == nil {
			continue
		}
		argsStr, err := toolCall.Function.ArgumentsString()
		if err != nil {
			return types.Message{}, err
		}
		var input map[string]any
		if argsStr != "" {
			if err := json.Unmarshal([]byte(argsStr), &input); err != nil {
				return types.Message{}, errors.Wrapf(err, "unmarshal arguments of tool %s", toolCall.Function.Name)
			}
		}
		converted.Content = append(converted.Content, &types.ContentBlockMemberToolUse{
			Value: types.ToolUseBlock{
				ToolUseId: aws.String(toolCall.Id),
				Name:      aws.String(toolCall.Function.Name),
				Input:     document.NewLazyDocument(input),
			},
		})
	}

	if len(converted.Content) == 0 {
		converted.Content = []types.ContentBlock{&types.ContentBlockMemberText{Value: ""}}
	}
	return converted, nil
}

func convertTools(tools []relaymodel.Tool, toolChoice any) (*types.ToolConfiguration, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	toolConfig := &types.ToolConfiguration{}
	for _, tool := range tools {
		if err := tool.Validate(); err != nil {
			return nil, errors.Wrap(err, "validate tool")
		}
		toolConfig.Tools = append(toolConfig.Tools, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(tool.Function.Name),
				Description: aws.String(tool.Function.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(tool.Function.Parameters),
				},
			},
		})
	}

	switch v := toolChoice.(type) {
	case nil:
	case string:
		switch v {
		case "auto", "none":
			toolConfig.ToolChoice = &types.ToolChoiceMemberAuto{}
		case "required":
			toolConfig.ToolChoice = &types.ToolChoiceMemberAny{}
		default:
			return nil, errors.Errorf("unsupported tool_choice %q", v)
		}
	case map[string]any:
		fn, _ := v["function"].(map[string]any)
		name, _ := fn["name"].(string)
		if name == "" {
			return nil, errors.New("tool_choice object requires function.name")
		}
		toolConfig.ToolChoice = &types.ToolChoiceMemberTool{
			Value: types.SpecificToolChoice{Name: aws.String(name)},
		}
	default:
		return nil, errors.Errorf("unsupported tool_choice of type %T", toolChoice)
	}

	return toolConfig, nil
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
	var toolCalls []relaymodel.Tool
	for _, block := range responseMessage.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			responseText += b.Value
		case *types.ContentBlockMemberToolUse:
			args := []byte("{}")
			if b.Value.Input != nil {
				marshaled, err := b.Value.Input.MarshalSmithyDocument()
				if err != nil {
					return nil, errors.Wrap(err, "marshal tool input")
				}
				args = marshaled
			}
			toolCalls = append(toolCalls, relaymodel.Tool{
				Id:   aws.ToString(b.Value.ToolUseId),
				Type: "function",
				Function: &relaymodel.Function{
					Name:      aws.ToString(b.Value.Name),
					Arguments: string(args),
				},
			})
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
				Role:      "assistant",
				Content:   responseText,
				ToolCalls: toolCalls,
			},
			FinishReason: finishReason,
		}},
		Usage: usageFromConverse(output.Usage),
	}, nil
}

// StreamHandler bridges ConverseStream events to OpenAI SSE chunks. Tool
// input fragments are buffered per content block and emitted once complete;
// a block left incomplete when the stream ends surfaces as a decode error.
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
		ToolConfig:      converseReq.ToolConfig,
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
	state := newStreamState(bridge, finalizer, modelName, createdTime, lg)

	c.Stream(streaming.EventLoop(ctx, lg, stream.Events(), state.handleEvent, func() {
		state.handleClose(stream.Err())
	}))

	if !bridge.Terminated() {
		bridge.Done()
	}
	return nil, &usage
}
