package mistral

import (
	"encoding/json"
	"fmt"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/fuchsia74/bedrock-gateway/relay/adaptor/utils"
	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
	"github.com/fuchsia74/bedrock-gateway/relay/streaming"
)

// streamToolCall accumulates a streamed toolUse block until its input JSON
// is complete.
type streamToolCall struct {
	id       string
	name     string
	args     string
	complete bool
}

// streamState drives the SSE side of one ConverseStream response: tool
// input fragments are buffered per content block and emitted once complete,
// and the terminal chunk coalesces the stop event with trailing metadata.
type streamState struct {
	bridge      *streaming.Bridge
	finalizer   *streaming.Finalizer
	modelName   string
	createdTime int64
	toolCalls   map[int32]*streamToolCall
	lg          glog.Logger
}

func newStreamState(bridge *streaming.Bridge, finalizer *streaming.Finalizer,
	modelName string, createdTime int64, lg glog.Logger) *streamState {
	return &streamState{
		bridge:      bridge,
		finalizer:   finalizer,
		modelName:   modelName,
		createdTime: createdTime,
		toolCalls:   make(map[int32]*streamToolCall),
		lg:          lg,
	}
}

func (s *streamState) emitDelta(delta relaymodel.Message) bool {
	return s.bridge.Emit(&relaymodel.ChatCompletionsStreamResponse{
		Id:      s.finalizer.ID(),
		Object:  "chat.completion.chunk",
		Created: s.createdTime,
		Model:   s.modelName,
		Choices: []relaymodel.ChatCompletionsStreamResponseChoice{{
			Index: 0,
			Delta: delta,
		}},
	})
}

// handleEvent processes one Converse stream event. It returns false when the
// stream is finished, either cleanly or with an emitted error event.
func (s *streamState) handleEvent(event types.ConverseStreamOutput) bool {
	switch v := event.(type) {
	case *types.ConverseStreamOutputMemberMessageStart:
		return s.emitDelta(relaymodel.Message{Role: "assistant", Content: ""})

	case *types.ConverseStreamOutputMemberContentBlockStart:
		toolStart, isTool := v.Value.Start.(*types.ContentBlockStartMemberToolUse)
		if !isTool || v.Value.ContentBlockIndex == nil {
			return true
		}
		blockIndex := *v.Value.ContentBlockIndex
		call := &streamToolCall{
			id:   aws.ToString(toolStart.Value.ToolUseId),
			name: aws.ToString(toolStart.Value.Name),
		}
		s.toolCalls[blockIndex] = call
		index := len(s.toolCalls) - 1
		return s.emitDelta(relaymodel.Message{
			ToolCalls: []relaymodel.Tool{{
				Id:       call.id,
				Type:     "function",
				Index:    &index,
				Function: &relaymodel.Function{Name: call.name, Arguments: ""},
			}},
		})

	case *types.ConverseStreamOutputMemberContentBlockDelta:
		switch delta := v.Value.Delta.(type) {
		case *types.ContentBlockDeltaMemberText:
			return s.emitDelta(relaymodel.Message{Content: delta.Value})
		case *types.ContentBlockDeltaMemberToolUse:
			if v.Value.ContentBlockIndex == nil {
				return true
			}
			if call, exists := s.toolCalls[*v.Value.ContentBlockIndex]; exists {
				call.args += aws.ToString(delta.Value.Input)
			}
			return true
		default:
			return true
		}

	case *types.ConverseStreamOutputMemberContentBlockStop:
		if v.Value.ContentBlockIndex == nil {
			return true
		}
		call, exists := s.toolCalls[*v.Value.ContentBlockIndex]
		if !exists {
			return true
		}
		if call.args == "" {
			call.args = "{}"
		}
		if !json.Valid([]byte(call.args)) {
			s.failIncomplete(errors.Errorf(
				"tool %s arguments incomplete at block end", call.name))
			return false
		}
		call.complete = true
		index := toolCallIndex(s.toolCalls, *v.Value.ContentBlockIndex)
		return s.emitDelta(relaymodel.Message{
			ToolCalls: []relaymodel.Tool{{
				Index:    &index,
				Type:     "function",
				Function: &relaymodel.Function{Arguments: call.args},
			}},
		})

	case *types.ConverseStreamOutputMemberMessageStop:
		if !s.toolsComplete() {
			return false
		}
		s.finalizer.RecordStop(convertStopReason(v.Value.StopReason))
		if s.finalizer.HasEmittedFinalChunk() {
			s.bridge.Done()
			return false
		}
		return true

	case *types.ConverseStreamOutputMemberMetadata:
		if !s.toolsComplete() {
			return false
		}
		s.finalizer.RecordMetadata(v.Value.Usage)
		if s.finalizer.HasEmittedFinalChunk() {
			s.bridge.Done()
			return false
		}
		return true

	default:
		if s.lg != nil {
			s.lg.Debug("skip stream event", zap.String("type", fmt.Sprintf("%T", event)))
		}
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
	if !s.toolsComplete() {
		return
	}
	s.finalizer.FinalizeOnClose()
	s.bridge.Done()
}

// toolsComplete reports whether every tool block has closed with valid
// arguments. A terminal event arriving while a block is still partial fails
// the stream with a decode error instead of emitting a clean finish.
func (s *streamState) toolsComplete() bool {
	for _, call := range s.toolCalls {
		if !call.complete {
			s.failIncomplete(errors.Errorf(
				"tool %s arguments incomplete at stream end", call.name))
			return false
		}
	}
	return true
}

func (s *streamState) failIncomplete(err error) {
	s.bridge.EmitError(utils.DecodeErr(err))
	s.bridge.Done()
}

// toolCallIndex maps a native content-block index onto the position of its
// tool call within the OpenAI tool_calls array.
func toolCallIndex(calls map[int32]*streamToolCall, blockIndex int32) int {
	index := 0
	for k := range calls {
		if k < blockIndex {
			index++
		}
	}
	return index
}
