package cohere

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/fuchsia74/bedrock-gateway/common/ctxkey"
	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
)

func newTestContext(t *testing.T) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/v1/embeddings", nil)
	return c
}

func TestConvertEmbeddingRequestBatchesTexts(t *testing.T) {
	c := newTestContext(t)
	a := &Adaptor{}

	converted, err := a.ConvertEmbeddingRequest(c, &relaymodel.EmbeddingRequest{
		Model: "embed-english-v3",
		Input: []any{"first", "second"},
	})
	require.NoError(t, err)

	cohereReq, ok := converted.(*Request)
	require.True(t, ok)
	require.Equal(t, []string{"first", "second"}, cohereReq.Texts)
	require.Equal(t, "search_document", cohereReq.InputType)

	stashed, ok := c.Get(ctxkey.ConvertedRequest)
	require.True(t, ok)
	require.Equal(t, cohereReq, stashed)
	require.Equal(t, "embed-english-v3", c.GetString(ctxkey.RequestModel))
}

func TestConvertEmbeddingRequestRejectsEmptyInput(t *testing.T) {
	c := newTestContext(t)
	a := &Adaptor{}

	_, err := a.ConvertEmbeddingRequest(c, &relaymodel.EmbeddingRequest{
		Model: "embed-english-v3",
		Input: []any{},
	})
	require.Error(t, err)

	_, err = a.ConvertEmbeddingRequest(c, nil)
	require.Error(t, err)
}
