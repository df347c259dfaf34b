package controller

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fuchsia74/bedrock-gateway/common/helper"
	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
	"github.com/fuchsia74/bedrock-gateway/relay/registry"
)

// OpenAIModel is one entry of the OpenAI-compatible model listing.
type OpenAIModel struct {
	Id      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// OpenAIModelList is the OpenAI-compatible model listing envelope.
type OpenAIModelList struct {
	Object string        `json:"object"`
	Data   []OpenAIModel `json:"data"`
}

// ListModels serves GET /v1/models from the current model table.
func ListModels(c *gin.Context) {
	descriptors := registry.ListModels()
	created := helper.GetTimestamp()

	models := make([]OpenAIModel, 0, len(descriptors))
	for _, descriptor := range descriptors {
		models = append(models, OpenAIModel{
			Id:      descriptor.ID,
			Object:  "model",
			Created: created,
			OwnedBy: descriptor.OwnedBy,
		})
	}

	c.JSON(http.StatusOK, OpenAIModelList{Object: "list", Data: models})
}

// RetrieveModel serves GET /v1/models/:model.
func RetrieveModel(c *gin.Context) {
	modelID := c.Param("model")
	descriptor, ok := registry.GetModel(modelID)
	if !ok || !descriptor.Listable {
		c.JSON(http.StatusNotFound, gin.H{"error": relaymodel.Error{
			Message: fmt.Sprintf("the model %q does not exist", modelID),
			Type:    relaymodel.ErrTypeUnknownModel,
			Param:   "model",
			Code:    "model_not_found",
		}})
		return
	}

	c.JSON(http.StatusOK, OpenAIModel{
		Id:      descriptor.ID,
		Object:  "model",
		Created: helper.GetTimestamp(),
		OwnedBy: descriptor.OwnedBy,
	})
}
