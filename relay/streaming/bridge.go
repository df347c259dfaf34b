// Package streaming guards SSE emission for one in-flight streamed response:
// events go out in arrival order, the terminal sentinel is emitted exactly
// once, and nothing is emitted after termination.
package streaming

import (
	"encoding/json"

	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/fuchsia74/bedrock-gateway/common"
	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
)

type bridgeState int

const (
	stateOpen bridgeState = iota
	stateEmitting
	stateTerminated
)

// Renderer writes one framed SSE line to the client. Injectable for tests.
type Renderer func(data string) bool

// Bridge owns the SSE side of one streamed response. It is driven by a
// single goroutine (the per-request handler); no internal locking.
type Bridge struct {
	state   bridgeState
	emitted int
	render  Renderer
	logger  glog.Logger
}

// NewBridge prepares SSE emission on the gin response writer.
func NewBridge(c *gin.Context, logger glog.Logger) *Bridge {
	common.SetEventStreamHeaders(c)
	return &Bridge{
		logger: logger,
		render: func(data string) bool {
			c.Render(-1, common.CustomEvent{Data: data})
			c.Writer.Flush()
			return true
		},
	}
}

// NewBridgeWithRenderer builds a bridge around a custom renderer.
func NewBridgeWithRenderer(render Renderer, logger glog.Logger) *Bridge {
	return &Bridge{render: render, logger: logger}
}

// Emit marshals payload and sends it as one `data:` event. Returns false
// once the bridge is terminated or the client stopped accepting writes.
func (b *Bridge) Emit(payload any) bool {
	if b.state == stateTerminated {
		return false
	}
	data, err := json.Marshal(payload)
	if err != nil {
		if b.logger != nil {
			b.logger.Error("error marshalling stream response", zap.Error(err))
		}
		// Skip the chunk rather than corrupting the stream framing.
		return true
	}
	b.state = stateEmitting
	b.emitted++
	return b.render("data: " + string(data))
}

// EmitError sends one structured error event so clients can distinguish a
// clean backend failure from a dropped connection. It does not terminate the
// stream; callers follow up with Done.
func (b *Bridge) EmitError(e *relaymodel.ErrorWithStatusCode) bool {
	if e == nil {
		return true
	}
	return b.Emit(gin.H{"error": e.Error})
}

// Done emits the terminal `data: [DONE]` sentinel exactly once and seals the
// bridge against further emission.
func (b *Bridge) Done() {
	if b.state == stateTerminated {
		return
	}
	b.state = stateTerminated
	b.render("data: [DONE]")
}

// Terminated reports whether the stream has been sealed.
func (b *Bridge) Terminated() bool {
	return b.state == stateTerminated
}

// Emitted returns how many events went out, the sequence position within the
// logical response.
func (b *Bridge) Emitted() int {
	return b.emitted
}
