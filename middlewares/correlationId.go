package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/matraxtyres/tyre_assistant/appctx"
)

const CorrelationIdHeader = "x-correlation-id"

// CorrelationIdMiddleware attaches one correlation id per request: the caller's
// header when present, otherwise a fresh uuid. Outbox events pick it up from the context.
func CorrelationIdMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := strings.TrimSpace(c.GetHeader(CorrelationIdHeader))
		if cid == "" || len(cid) > 64 {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(appctx.SetCorrelationId(c.Request.Context(), cid))
		c.Header(CorrelationIdHeader, cid)
		c.Next()
	}
}
