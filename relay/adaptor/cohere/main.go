// Package cohere relays embedding requests to Cohere Embed models, which
// accept a batch of texts in a single invocation.
package cohere

import (
	"encoding/json"
	"net/http"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/gin-gonic/gin"

	"github.com/fuchsia74/bedrock-gateway/common/ctxkey"
	"github.com/fuchsia74/bedrock-gateway/relay/adaptor/utils"
	"github.com/fuchsia74/bedrock-gateway/relay/meta"
	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
)

// AwsModelIDMap maps client-facing model names to Bedrock model ids.
var AwsModelIDMap = map[string]string{
	"embed-english-v3":      "cohere.embed-english-v3",
	"embed-multilingual-v3": "cohere.embed-multilingual-v3",
}

// Request is the native Cohere embedding request.
type Request struct {
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
	Truncate  string   `json:"truncate,omitempty"`
}

// Response is the native Cohere embedding response. Cohere reports no token
// counts, so the relayed usage block stays empty.
type Response struct {
	Id         string      `json:"id"`
	Embeddings [][]float64 `json:"embeddings"`
	Texts      []string    `json:"texts"`
}

type Adaptor struct{}

func (a *Adaptor) ConvertEmbeddingRequest(c *gin.Context, request *relaymodel.EmbeddingRequest) (any, error) {
	if request == nil {
		return nil, errors.New("request is nil")
	}

	texts := request.InputTexts()
	if len(texts) == 0 {
		return nil, errors.New("input is empty")
	}

	cohereReq := &Request{
		Texts:     texts,
		InputType: "search_document",
	}

	c.Set(ctxkey.RequestModel, request.Model)
	c.Set(ctxkey.ConvertedRequest, cohereReq)
	return cohereReq, nil
}

func (a *Adaptor) DoEmbeddingResponse(c *gin.Context, awsCli *bedrockruntime.Client, meta *meta.Meta) (*relaymodel.Usage, *relaymodel.ErrorWithStatusCode) {
	resolvedModel := c.GetString(ctxkey.ResolvedModel)

	converted, ok := c.Get(ctxkey.ConvertedRequest)
	if !ok {
		return nil, utils.InvalidRequestErr(errors.New("request not found"))
	}
	cohereReq, ok := converted.(*Request)
	if !ok {
		return nil, utils.InvalidRequestErr(errors.New("request type mismatch"))
	}

	body, err := json.Marshal(cohereReq)
	if err != nil {
		return nil, utils.DecodeErr(errors.Wrap(err, "marshal native request"))
	}

	awsResp, err := awsCli.InvokeModel(gmw.Ctx(c), &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(resolvedModel),
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, utils.WrapErr(errors.Wrap(err, "InvokeModel"))
	}

	cohereResp := new(Response)
	if err := json.Unmarshal(awsResp.Body, cohereResp); err != nil {
		return nil, utils.DecodeErr(errors.Wrap(err, "unmarshal native response"))
	}

	resp := &relaymodel.EmbeddingResponse{
		Object: "list",
		Model:  meta.OriginModelName,
	}
	for i, embedding := range cohereResp.Embeddings {
		resp.Data = append(resp.Data, relaymodel.EmbeddingResponseItem{
			Object:    "embedding",
			Index:     i,
			Embedding: embedding,
		})
	}

	c.JSON(http.StatusOK, resp)
	return &relaymodel.Usage{}, nil
}
