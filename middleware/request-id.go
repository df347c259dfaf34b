package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/fuchsia74/bedrock-gateway/common/ctxkey"
	"github.com/fuchsia74/bedrock-gateway/common/random"
)

// RequestId tags every request with a unique id, echoed in the response
// header so client reports can be matched against logs.
func RequestId() func(c *gin.Context) {
	return func(c *gin.Context) {
		id := c.GetHeader(ctxkey.RequestId)
		if id == "" {
			id = random.GetUUID()
		}
		c.Set(ctxkey.RequestId, id)
		c.Header(ctxkey.RequestId, id)
		c.Next()
	}
}
