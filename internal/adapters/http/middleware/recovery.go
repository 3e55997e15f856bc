package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/platform-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/platform-service/internal/platform/logging"
)

// Recovery turns a handler panic into the standard 500 envelope. It must be
// the outermost middleware.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			traceID := dto.TraceID(c)
			logging.FromContextOr(c.Request.Context(), logger).Error("handler panicked",
				slog.Any("panic", r),
				slog.String("route", c.FullPath()),
				slog.String("trace_id", traceID),
				slog.String("stack", string(debug.Stack())),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError,
				dto.NewErrorResponse(dto.ErrorCodeInternal, "an internal error occurred").WithTraceID(traceID))
		}()

		c.Next()
	}
}
