package meta

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fuchsia74/bedrock-gateway/relay/relaymode"
)

// Meta carries the per-request relay state between the dispatcher and the
// family handlers. It is exclusively owned by one in-flight request.
type Meta struct {
	Mode     int
	IsStream bool
	// OriginModelName is the model id from the raw client request.
	OriginModelName string
	// ActualModelName is the Bedrock model id (or profile id/ARN) after the
	// registry applied routing policy.
	ActualModelName string
	StartTime       time.Time
}

// GetByContext builds the request Meta from the gin context.
func GetByContext(c *gin.Context) *Meta {
	return &Meta{
		Mode:      relaymode.GetByPath(c.Request.URL.Path),
		StartTime: time.Now(),
	}
}
