package streaming

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
)

func collectingBridge() (*Bridge, *[]string) {
	var lines []string
	bridge := NewBridgeWithRenderer(func(data string) bool {
		lines = append(lines, data)
		return true
	}, nil)
	return bridge, &lines
}

func TestBridgePreservesEmissionOrder(t *testing.T) {
	bridge, lines := collectingBridge()

	const n = 20
	for i := 0; i < n; i++ {
		require.True(t, bridge.Emit(map[string]int{"seq": i}))
	}
	bridge.Done()

	require.Len(t, *lines, n+1)
	for i := 0; i < n; i++ {
		require.Equal(t, fmt.Sprintf(`data: {"seq":%d}`, i), (*lines)[i])
	}
	require.Equal(t, "data: [DONE]", (*lines)[n])
}

func TestBridgeDoneIsIdempotent(t *testing.T) {
	bridge, lines := collectingBridge()

	bridge.Emit(map[string]string{"a": "b"})
	bridge.Done()
	bridge.Done()
	bridge.Done()

	require.Len(t, *lines, 2)
	require.Equal(t, "data: [DONE]", (*lines)[1])
}

func TestBridgeRejectsEmissionAfterTermination(t *testing.T) {
	bridge, lines := collectingBridge()

	bridge.Done()
	require.False(t, bridge.Emit(map[string]string{"late": "chunk"}))
	require.True(t, bridge.Terminated())
	require.Len(t, *lines, 1)
}

func TestBridgeEmitErrorUsesStructuredShape(t *testing.T) {
	bridge, lines := collectingBridge()

	bridge.EmitError(&relaymodel.ErrorWithStatusCode{
		StatusCode: http.StatusBadGateway,
		Error: relaymodel.Error{
			Message: "backend unreachable",
			Type:    relaymodel.ErrTypeUpstream,
		},
	})
	bridge.Done()

	require.Len(t, *lines, 2)
	require.Contains(t, (*lines)[0], `"type":"upstream_error"`)
	require.Contains(t, (*lines)[0], "backend unreachable")
}

func TestBridgeSkipsUnmarshalableChunk(t *testing.T) {
	bridge, lines := collectingBridge()

	// A channel cannot be marshalled; the chunk is skipped, not fatal.
	require.True(t, bridge.Emit(make(chan int)))
	require.True(t, bridge.Emit(map[string]string{"ok": "yes"}))
	bridge.Done()

	require.Len(t, *lines, 2)
}
