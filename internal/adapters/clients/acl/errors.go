package acl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/platform-service/internal/adapters/clients"
	"github.com/jsamuelsen/platform-service/internal/domain"
)

// maxErrorBody caps how much of a failed response is read for diagnostics.
const maxErrorBody = 64 << 10

// ErrorResponse is a downstream error body. The nested {"error":{...}} form
// and the flat {"code","message"} form are both understood.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func (e *ErrorResponse) GetCode() string    { return firstNonEmpty(e.Error.Code, e.Code) }
func (e *ErrorResponse) GetMessage() string { return firstNonEmpty(e.Error.Message, e.Message) }

// field returns one rejected field from the details, if any.
func (e *ErrorResponse) field() (name, msg string, ok bool) {
	for name, msg = range e.Error.Details {
		return name, msg, true
	}

	return "", "", false
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}

	return b
}

// ParseErrorResponse decodes body, returning nil when it is absent, not
// JSON, or says nothing.
func ParseErrorResponse(body io.Reader) *ErrorResponse {
	if body == nil {
		return nil
	}

	var out ErrorResponse
	if json.NewDecoder(io.LimitReader(body, maxErrorBody)).Decode(&out) != nil {
		return nil
	}

	if out.GetCode() == "" && out.GetMessage() == "" {
		return nil
	}

	return &out
}

// MapHTTPError converts the outcome of a downstream exchange into a domain
// error. clientErr wins over resp; a 2xx resp maps to nil. entityID names
// the record in a NotFoundError.
func MapHTTPError(resp *http.Response, clientErr error, serviceName, operation, entityID string) error {
	switch {
	case clientErr != nil:
		return fromClientError(clientErr, serviceName, operation)
	case resp == nil:
		return domain.NewUnavailableError(serviceName, "no response received")
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	}

	var body *ErrorResponse
	if resp.Body != nil {
		body = ParseErrorResponse(resp.Body)
	}

	return fromStatus(resp.StatusCode, body, serviceName, operation, entityID)
}

func fromClientError(err error, serviceName, operation string) error {
	if errors.Is(err, clients.ErrCircuitOpen) {
		return domain.NewUnavailableError(serviceName, operation+" skipped: circuit breaker open")
	}

	return domain.NewUnavailableError(serviceName, fmt.Sprintf("%s: %v", operation, err))
}

func fromStatus(status int, body *ErrorResponse, serviceName, operation, entityID string) error {
	msg := fmt.Sprintf("%s returned %d", operation, status)
	if body != nil && body.GetMessage() != "" {
		msg = body.GetMessage()
	}

	switch status {
	case http.StatusNotFound:
		return domain.NewNotFoundError(serviceName, entityID)
	case http.StatusConflict:
		return domain.NewConflictError(serviceName, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if body != nil {
			if name, fieldMsg, ok := body.field(); ok {
				return domain.NewValidationError(name, fieldMsg)
			}
		}

		return domain.NewValidationError("", msg)
	case http.StatusUnauthorized:
		return domain.NewForbiddenError(operation, "authentication required")
	case http.StatusForbidden:
		return domain.NewForbiddenError(operation, msg)
	case http.StatusTooManyRequests:
		return domain.NewUnavailableError(serviceName, "rate limited")
	}

	if status >= http.StatusInternalServerError {
		return domain.NewUnavailableError(serviceName, msg)
	}

	return domain.NewUnavailableError(serviceName, fmt.Sprintf("unexpected status %d", status))
}
