package middleware

import (
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
)

// abortWithRelayError stops the request with a structured error body in the
// same {type, message} shape the relay controllers emit.
func abortWithRelayError(c *gin.Context, statusCode int, errType, message string) {
	gmw.GetLogger(c).Warn("request aborted",
		zap.Int("status_code", statusCode),
		zap.String("type", errType),
		zap.String("message", message))

	c.JSON(statusCode, gin.H{
		"error": relaymodel.Error{
			Message: message,
			Type:    errType,
			Code:    errType,
		},
	})
	c.Abort()
}
