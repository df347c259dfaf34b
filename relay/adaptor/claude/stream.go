package claude

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/fuchsia74/bedrock-gateway/common/random"
	"github.com/fuchsia74/bedrock-gateway/relay/adaptor/utils"
	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
	"github.com/fuchsia74/bedrock-gateway/relay/streaming"
)

// toolUseBuffer accumulates streamed input_json_delta fragments for one
// tool_use content block until they form syntactically complete JSON.
type toolUseBuffer struct {
	id       string
	name     string
	fragment strings.Builder
	complete bool
}

// streamState translates native Claude stream events into OpenAI chunks.
// It is exclusively owned by one in-flight stream; the caller feeds decoded
// events in arrival order.
type streamState struct {
	bridge      *streaming.Bridge
	modelName   string
	createdTime int64

	id          string
	usage       relaymodel.Usage
	stopReason  *string
	finalSent   bool
	toolBuffers map[int]*toolUseBuffer
}

func newStreamState(bridge *streaming.Bridge, modelName string, createdTime int64) *streamState {
	return &streamState{
		bridge:      bridge,
		modelName:   modelName,
		createdTime: createdTime,
		id:          fmt.Sprintf("chatcmpl-%s", random.GetUUID()),
		toolBuffers: make(map[int]*toolUseBuffer),
	}
}

func (s *streamState) emitDelta(delta relaymodel.Message, finishReason *string, withUsage bool) bool {
	response := &relaymodel.ChatCompletionsStreamResponse{
		Id:      s.id,
		Object:  "chat.completion.chunk",
		Created: s.createdTime,
		Model:   s.modelName,
		Choices: []relaymodel.ChatCompletionsStreamResponseChoice{
			{Index: 0, Delta: delta, FinishReason: finishReason},
		},
	}
	if withUsage {
		response.Usage = &s.usage
	}
	return s.bridge.Emit(response)
}

// handleChunk processes one decoded native event. It returns false when the
// stream is finished, either cleanly or with an emitted error event.
func (s *streamState) handleChunk(claudeResp *StreamResponse) bool {
	switch claudeResp.Type {
	case "message_start":
		if claudeResp.Message != nil {
			if claudeResp.Message.Id != "" {
				s.id = claudeResp.Message.Id
			}
			s.usage = usageClaude2OpenAI(claudeResp.Message.Usage)
		}
		return s.emitDelta(relaymodel.Message{Role: "assistant", Content: ""}, nil, false)

	case "content_block_start":
		if claudeResp.ContentBlock == nil || claudeResp.ContentBlock.Type != "tool_use" {
			return true
		}
		s.toolBuffers[claudeResp.Index] = &toolUseBuffer{
			id:   claudeResp.ContentBlock.Id,
			name: claudeResp.ContentBlock.Name,
		}
		index := s.toolCallIndex(claudeResp.Index)
		return s.emitDelta(relaymodel.Message{
			ToolCalls: []relaymodel.Tool{{
				Id:       claudeResp.ContentBlock.Id,
				Type:     "function",
				Index:    &index,
				Function: &relaymodel.Function{Name: claudeResp.ContentBlock.Name, Arguments: ""},
			}},
		}, nil, false)

	case "content_block_delta":
		if claudeResp.Delta == nil {
			return true
		}
		switch claudeResp.Delta.Type {
		case "text_delta":
			return s.emitDelta(relaymodel.Message{Content: claudeResp.Delta.Text}, nil, false)
		case "input_json_delta":
			if buf, exists := s.toolBuffers[claudeResp.Index]; exists {
				buf.fragment.WriteString(claudeResp.Delta.PartialJSON)
			}
			return true
		}
		return true

	case "content_block_stop":
		buf, exists := s.toolBuffers[claudeResp.Index]
		if !exists {
			return true
		}
		args := buf.fragment.String()
		if args == "" {
			args = "{}"
		}
		if !json.Valid([]byte(args)) {
			s.failDecode(errors.Errorf("tool %s arguments incomplete at block end", buf.name))
			return false
		}
		buf.complete = true
		index := s.toolCallIndex(claudeResp.Index)
		return s.emitDelta(relaymodel.Message{
			ToolCalls: []relaymodel.Tool{{
				Index:    &index,
				Type:     "function",
				Function: &relaymodel.Function{Arguments: args},
			}},
		}, nil, false)

	case "message_delta":
		if claudeResp.Usage != nil {
			if claudeResp.Usage.InputTokens > 0 {
				s.usage.PromptTokens = claudeResp.Usage.InputTokens
			}
			s.usage.CompletionTokens = claudeResp.Usage.OutputTokens
			s.usage.TotalTokens = s.usage.PromptTokens + s.usage.CompletionTokens
		}
		if claudeResp.Delta != nil && claudeResp.Delta.StopReason != "" {
			s.stopReason = stopReasonClaude2OpenAI(claudeResp.Delta.StopReason)
		}
		return true

	case "message_stop":
		for _, buf := range s.toolBuffers {
			if !buf.complete {
				s.failDecode(errors.Errorf("tool %s arguments incomplete at stream end", buf.name))
				return false
			}
		}
		if !s.emitDelta(relaymodel.Message{}, s.stopReason, true) {
			return false
		}
		s.finalSent = true
		s.bridge.Done()
		return false

	case "error":
		msg := "upstream stream error"
		if claudeResp.Error != nil {
			msg = claudeResp.Error.Message
		}
		s.bridge.EmitError(utils.WrapErr(errors.New(msg)))
		s.bridge.Done()
		return false

	default:
		// ping and any future event types are ignored.
		return true
	}
}

// handleClose finishes the stream after the backend channel closed.
func (s *streamState) handleClose(streamErr error) {
	if streamErr != nil {
		s.bridge.EmitError(utils.WrapErr(errors.Wrap(streamErr, "read response stream")))
		s.bridge.Done()
		return
	}
	if !s.finalSent {
		s.bridge.EmitError(utils.DecodeErr(errors.New("stream ended without message_stop")))
	}
	s.bridge.Done()
}

func (s *streamState) failDecode(err error) {
	s.bridge.EmitError(utils.DecodeErr(err))
	s.bridge.Done()
}

// toolCallIndex maps a native content-block index onto the position of its
// tool call within the OpenAI tool_calls array.
func (s *streamState) toolCallIndex(blockIndex int) int {
	index := 0
	for k := range s.toolBuffers {
		if k < blockIndex {
			index++
		}
	}
	return index
}
