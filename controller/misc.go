package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fuchsia74/bedrock-gateway/common/client"
)

// Health serves GET /health for load-balancer probes. It reports the bound
// region so a misconfigured deployment is visible at a glance.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"region": client.Region(),
	})
}
