package streaming

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventLoopForwardsEventsInOrder(t *testing.T) {
	events := make(chan int, 3)
	events <- 1
	events <- 2
	events <- 3
	close(events)

	var seen []int
	closedCalls := 0
	step := EventLoop(context.Background(), nil, events, func(e int) bool {
		seen = append(seen, e)
		return true
	}, func() {
		closedCalls++
	})

	require.True(t, step(nil))
	require.True(t, step(nil))
	require.True(t, step(nil))
	require.False(t, step(nil))

	require.Equal(t, []int{1, 2, 3}, seen)
	require.Equal(t, 1, closedCalls)
}

func TestEventLoopStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := make(chan int)
	handled := false
	closedCalled := false
	step := EventLoop(ctx, nil, events, func(int) bool {
		handled = true
		return true
	}, func() {
		closedCalled = true
	})

	// The open channel never produces; a cancelled context must not block
	// and must not be treated as a clean close.
	require.False(t, step(nil))
	require.False(t, handled)
	require.False(t, closedCalled)
}

func TestEventLoopPropagatesHandleResult(t *testing.T) {
	events := make(chan string, 2)
	events <- "keep"
	events <- "stop"

	step := EventLoop(context.Background(), nil, events, func(e string) bool {
		return e != "stop"
	}, func() {})

	require.True(t, step(nil))
	require.False(t, step(nil))
}
