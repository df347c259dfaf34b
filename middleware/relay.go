package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fuchsia74/bedrock-gateway/common/config"
	"github.com/fuchsia74/bedrock-gateway/common/graceful"
	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
)

// RelayDeadline bounds each relay call by the configured timeout. A stalled
// backend call surfaces as a Timeout error instead of hanging the client.
func RelayDeadline() func(c *gin.Context) {
	return func(c *gin.Context) {
		if config.RelayTimeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(),
			time.Duration(config.RelayTimeout)*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// TrackInFlight counts requests for shutdown draining and refuses new work
// once the server started draining.
func TrackInFlight() func(c *gin.Context) {
	return func(c *gin.Context) {
		if graceful.IsDraining() {
			abortWithRelayError(c, http.StatusServiceUnavailable,
				relaymodel.ErrTypeUpstream, "server is shutting down")
			return
		}
		done := graceful.BeginRequest()
		defer done()
		c.Next()
	}
}
