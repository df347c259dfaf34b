// Package titan relays embedding requests to Amazon Titan embedding models.
// Titan accepts one input text per invocation, so batched inputs fan out
// into sequential InvokeModel calls in input order.
package titan

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
	"titan-embed-text-v1": "amazon.titan-embed-text-v1",
	"titan-embed-text-v2": "amazon.titan-embed-text-v2:0",
}

// Request is the native Titan embedding request.
type Request struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
	Normalize  *bool  `json:"normalize,omitempty"`
}

// Response is the native Titan embedding response.
type Response struct {
	Embedding           []float64 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
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

	requests := make([]Request, 0, len(texts))
	for _, text := range texts {
		requests = append(requests, Request{
			InputText:  text,
			Dimensions: request.Dimensions,
		})
	}

	c.Set(ctxkey.RequestModel, request.Model)
	c.Set(ctxkey.ConvertedRequest, requests)
	return requests, nil
}

func (a *Adaptor) DoEmbeddingResponse(c *gin.Context, awsCli *bedrockruntime.Client, meta *meta.Meta) (*relaymodel.Usage, *relaymodel.ErrorWithStatusCode) {
	resolvedModel := c.GetString(ctxkey.ResolvedModel)

	converted, ok := c.Get(ctxkey.ConvertedRequest)
	if !ok {
		return nil, utils.InvalidRequestErr(errors.New("request not found"))
	}
	requests, ok := converted.([]Request)
	if !ok {
		return nil, utils.InvalidRequestErr(errors.New("request type mismatch"))
	}

	resp := &relaymodel.EmbeddingResponse{
		Object: "list",
		Model:  meta.OriginModelName,
	}
	var usage relaymodel.Usage

	for i, titanReq := range requests {
		body, err := json.Marshal(titanReq)
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

		titanResp := new(Response)
		if err := json.Unmarshal(awsResp.Body, titanResp); err != nil {
			return nil, utils.DecodeErr(errors.Wrap(err, "unmarshal native response"))
		}

		resp.Data = append(resp.Data, relaymodel.EmbeddingResponseItem{
			Object:    "embedding",
			Index:     i,
			Embedding: titanResp.Embedding,
		})
		usage.PromptTokens += titanResp.InputTextTokenCount
	}

	usage.TotalTokens = usage.PromptTokens
	resp.Usage = usage

	c.JSON(http.StatusOK, resp)
	return &usage, nil
}
