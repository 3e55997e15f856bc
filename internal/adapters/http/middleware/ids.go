package middleware

import (
	"context"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/platform-service/internal/platform/logging"
)

const (
	// HeaderRequestID identifies one HTTP exchange.
	HeaderRequestID = "X-Request-ID"

	// HeaderCorrelationID follows a platform create across the Command
	// service and event consumers.
	HeaderCorrelationID = "X-Correlation-ID"
)

// inboundID bounds what a caller may put in an ID header before it is echoed
// and logged.
var inboundID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// RequestID accepts or mints X-Request-ID, echoes it and makes it available
// to outbound clients and the request logger.
func RequestID() gin.HandlerFunc {
	return propagateID(HeaderRequestID, ContextWithRequestID, logging.WithRequestID)
}

// CorrelationID does the same for X-Correlation-ID.
func CorrelationID() gin.HandlerFunc {
	return propagateID(HeaderCorrelationID, ContextWithCorrelationID, logging.WithCorrelationID)
}

func propagateID(header string, enrich ...func(context.Context, string) context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(header)
		if !inboundID.MatchString(id) {
			id = uuid.NewString()
		}

		c.Header(header, id)

		ctx := c.Request.Context()
		for _, fn := range enrich {
			ctx = fn(ctx, id)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
