// Package router wires the HTTP surface onto the gin engine.
package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/fuchsia74/bedrock-gateway/common/secret"
	"github.com/fuchsia74/bedrock-gateway/controller"
	"github.com/fuchsia74/bedrock-gateway/middleware"
)

// SetRouter registers all routes. The relay routes sit behind the bearer
// gate; health stays open for load-balancer probes.
func SetRouter(server *gin.Engine, credentials *secret.Provider) {
	server.Use(cors.Default())

	server.GET("/health", controller.Health)

	v1 := server.Group("/v1")
	v1.Use(
		middleware.BearerAuth(credentials),
		middleware.TrackInFlight(),
		middleware.RelayDeadline(),
	)
	{
		v1.POST("/chat/completions", controller.ChatCompletions)
		v1.POST("/embeddings", controller.Embeddings)
		v1.GET("/models", controller.ListModels)
		v1.GET("/models/:model", controller.RetrieveModel)
	}

	server.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{
			"message": "no such path",
			"type":    "invalid_request_error",
		}})
	})
}
