package streaming

import (
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
)

// Finalizer coalesces the Converse stream's messageStop and metadata events
// into a single terminal chunk carrying both the finish reason and the usage
// block, whichever order Bedrock delivers them in. Exactly one terminal
// chunk goes out per stream.
type Finalizer struct {
	model       string
	createdTime int64
	usage       *relaymodel.Usage
	bridge      *Bridge

	id               string
	stopReason       *string
	stopReceived     bool
	metadataReceived bool
	finalSent        bool
}

func NewFinalizer(model string, createdTime int64, usage *relaymodel.Usage, bridge *Bridge) *Finalizer {
	if usage == nil {
		usage = &relaymodel.Usage{}
	}

	return &Finalizer{
		model:       model,
		createdTime: createdTime,
		usage:       usage,
		bridge:      bridge,
	}
}

func (f *Finalizer) SetID(id string) {
	f.id = id
}

func (f *Finalizer) ID() string {
	return f.id
}

// RecordStop notes the finish reason from the messageStop event.
func (f *Finalizer) RecordStop(stopReason *string) bool {
	f.stopReason = stopReason
	f.stopReceived = true
	return f.emitFinal(false)
}

// RecordMetadata folds the usage counters from the metadata event.
func (f *Finalizer) RecordMetadata(streamUsage *types.TokenUsage) bool {
	if streamUsage != nil {
		if streamUsage.InputTokens != nil {
			f.usage.PromptTokens = int(*streamUsage.InputTokens)
		}
		if streamUsage.OutputTokens != nil {
			f.usage.CompletionTokens = int(*streamUsage.OutputTokens)
		}
		if streamUsage.TotalTokens != nil {
			f.usage.TotalTokens = int(*streamUsage.TotalTokens)
		}
	}
	f.metadataReceived = true
	return f.emitFinal(false)
}

// FinalizeOnClose flushes the terminal chunk when the backend stream closed
// before both events arrived.
func (f *Finalizer) FinalizeOnClose() bool {
	return f.emitFinal(true)
}

func (f *Finalizer) HasEmittedFinalChunk() bool {
	return f.finalSent
}

func (f *Finalizer) emitFinal(force bool) bool {
	if f.finalSent {
		return true
	}
	if f.id == "" {
		return true
	}
	if !force {
		if !f.stopReceived {
			return true
		}
		if !f.metadataReceived {
			return true
		}
	}

	response := &relaymodel.ChatCompletionsStreamResponse{
		Id:      f.id,
		Object:  "chat.completion.chunk",
		Created: f.createdTime,
		Model:   f.model,
		Choices: []relaymodel.ChatCompletionsStreamResponseChoice{
			{
				Index:        0,
				Delta:        relaymodel.Message{},
				FinishReason: f.stopReason,
			},
		},
	}
	if f.metadataReceived && f.usage != nil {
		response.Usage = f.usage
	}

	if !f.bridge.Emit(response) {
		return false
	}

	f.finalSent = true
	return true
}
