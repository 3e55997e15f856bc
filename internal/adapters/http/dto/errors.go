// Package dto holds the JSON shapes of the platform API and the mapping from
// domain errors to error envelopes.
package dto

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/platform-service/internal/domain"
	"github.com/jsamuelsen/platform-service/internal/platform/logging"
)

// headerRequestID is middleware.HeaderRequestID; middleware imports dto.
const headerRequestID = "X-Request-ID"

// Envelope messages that replace the underlying error.
const (
	internalMessage    = "an internal error occurred"
	unavailableMessage = "a dependency is temporarily unavailable"
)

const (
	ErrorCodeNotFound    = "NOT_FOUND"
	ErrorCodeConflict    = "CONFLICT"
	ErrorCodeValidation  = "VALIDATION_ERROR"
	ErrorCodeForbidden   = "FORBIDDEN"
	ErrorCodeUnavailable = "SERVICE_UNAVAILABLE"
	ErrorCodeInternal    = "INTERNAL_ERROR"
	ErrorCodeBadRequest  = "BAD_REQUEST"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

// ErrorDetail carries a machine code, a message and, for validation
// failures, one message per rejected field.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

func (e *ErrorResponse) WithTraceID(traceID string) *ErrorResponse {
	e.TraceID = traceID
	return e
}

// errorClass ties a domain sentinel to its status and code. opaque classes
// replace the error text with a fixed message.
type errorClass struct {
	is     func(error) bool
	status int
	code   string
	opaque string
}

// Checked in order; validation comes first so a CreationError wrapping one
// stays a 400.
var errorClasses = []errorClass{
	{domain.IsValidation, http.StatusBadRequest, ErrorCodeValidation, ""},
	{domain.IsInvalidArgument, http.StatusBadRequest, ErrorCodeBadRequest, ""},
	{domain.IsNotFound, http.StatusNotFound, ErrorCodeNotFound, ""},
	{domain.IsConflict, http.StatusConflict, ErrorCodeConflict, ""},
	{domain.IsForbidden, http.StatusForbidden, ErrorCodeForbidden, ""},
	{domain.IsUnavailable, http.StatusServiceUnavailable, ErrorCodeUnavailable, unavailableMessage},
}

// MapDomainError picks the status and envelope for err. Anything without a
// class, persistence failures included, is an opaque 500.
func MapDomainError(err error) (int, *ErrorResponse) {
	if err == nil {
		return http.StatusOK, nil
	}

	for _, class := range errorClasses {
		if !class.is(err) {
			continue
		}

		msg := class.opaque
		if msg == "" {
			msg = err.Error()
		}

		resp := NewErrorResponse(class.code, msg)

		var ve *domain.ValidationError
		if class.code == ErrorCodeValidation && errors.As(err, &ve) && ve.Field != "" {
			resp.Error.Details = map[string]string{ve.Field: ve.Message}
		}

		return class.status, resp
	}

	return http.StatusInternalServerError, NewErrorResponse(ErrorCodeInternal, internalMessage)
}

// TraceID is the identifier echoed in error envelopes: the active span's
// trace ID when tracing is on, else the request ID.
func TraceID(c *gin.Context) string {
	if c.Request == nil {
		return ""
	}

	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}

	if id := c.Writer.Header().Get(headerRequestID); id != "" {
		return id
	}

	return c.GetHeader(headerRequestID)
}

// HandleError writes the envelope for err. Causes hidden behind a 5xx are
// logged in full.
func HandleError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	resp.TraceID = TraceID(c)

	if status >= http.StatusInternalServerError {
		ctx := c.Request.Context()
		logging.FromContext(ctx).ErrorContext(ctx, "request failed",
			slog.Int("status", status),
			slog.String("trace_id", resp.TraceID),
			slog.Any("error", err))
	}

	c.JSON(status, resp)
}

// AbortBadRequest rejects a request the handler could not even parse.
func AbortBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest,
		NewErrorResponse(ErrorCodeBadRequest, message).WithTraceID(TraceID(c)))
}

// RespondInvalid writes a 400 listing each rejected field.
func RespondInvalid(c *gin.Context, fields map[string]string) {
	resp := NewErrorResponse(ErrorCodeValidation, "request validation failed").WithTraceID(TraceID(c))
	resp.Error.Details = fields

	c.JSON(http.StatusBadRequest, resp)
}
