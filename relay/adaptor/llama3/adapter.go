package llama3

import (
	"github.com/Laisky/errors/v2"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/gin-gonic/gin"

	"github.com/fuchsia74/bedrock-gateway/common/ctxkey"
	"github.com/fuchsia74/bedrock-gateway/relay/meta"
	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
)

type Adaptor struct{}

func (a *Adaptor) ConvertRequest(c *gin.Context, relayMode int, request *relaymodel.GeneralOpenAIRequest) (any, error) {
	if request == nil {
		return nil, errors.New("request is nil")
	}

	converseReq, err := ConvertRequest(*request)
	if err != nil {
		return nil, errors.Wrap(err, "convert request")
	}

	c.Set(ctxkey.RequestModel, request.Model)
	c.Set(ctxkey.ConvertedRequest, converseReq)
	return converseReq, nil
}

func (a *Adaptor) DoResponse(c *gin.Context, awsCli *bedrockruntime.Client, meta *meta.Meta) (usage *relaymodel.Usage, err *relaymodel.ErrorWithStatusCode) {
	if meta.IsStream {
		err, usage = StreamHandler(c, awsCli)
	} else {
		err, usage = Handler(c, awsCli, meta.OriginModelName)
	}
	return
}
