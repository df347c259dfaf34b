package streaming

import (
	"context"
	"io"

	glog "github.com/Laisky/go-utils/v5/log"
)

// EventLoop adapts a backend event channel to gin's Stream step contract.
// Each step forwards one event to handle; a cancelled ctx stops the loop
// before the next receive (the request context also aborts the upstream
// call), and a closed channel runs closed exactly once.
func EventLoop[E any](ctx context.Context, lg glog.Logger, events <-chan E,
	handle func(E) bool, closed func()) func(io.Writer) bool {
	return func(io.Writer) bool {
		var event E
		var open bool
		select {
		case <-ctx.Done():
			if lg != nil {
				lg.Info("client disconnected, cancel upstream stream")
			}
			return false
		case event, open = <-events:
		}

		if !open {
			closed()
			return false
		}
		return handle(event)
	}
}
