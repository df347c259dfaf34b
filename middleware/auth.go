package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/fuchsia74/bedrock-gateway/common/secret"
	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
)

// BearerAuth validates the Authorization header against the gateway
// credential reference. The comparison is constant-time; a request that
// fails here never reaches the relay controllers.
func BearerAuth(provider *secret.Provider) func(c *gin.Context) {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortWithRelayError(c, http.StatusUnauthorized,
				relaymodel.ErrTypeUnauthorized, "missing bearer credential")
			return
		}
		presented := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if presented == "" {
			abortWithRelayError(c, http.StatusUnauthorized,
				relaymodel.ErrTypeUnauthorized, "missing bearer credential")
			return
		}

		reference, err := provider.Reference(gmw.Ctx(c))
		if err != nil {
			gmw.GetLogger(c).Error("fetch credential reference", zap.Error(err))
			abortWithRelayError(c, http.StatusUnauthorized,
				relaymodel.ErrTypeUnauthorized, "credential verification unavailable")
			return
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(reference)) != 1 {
			abortWithRelayError(c, http.StatusUnauthorized,
				relaymodel.ErrTypeUnauthorized, "invalid bearer credential")
			return
		}

		c.Next()
	}
}
