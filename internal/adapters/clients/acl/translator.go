package acl

import (
	"context"
	"io"
	"net/http"

	"github.com/jsamuelsen/platform-service/internal/adapters/clients"
	"github.com/jsamuelsen/platform-service/internal/domain"
)

// BaseAdapter holds what every downstream adapter needs: the instrumented
// client and the name used in domain errors. Embed it in concrete adapters.
type BaseAdapter struct {
	client      *clients.Client
	serviceName string
}

// NewBaseAdapter creates a base adapter for serviceName.
func NewBaseAdapter(client *clients.Client, serviceName string) BaseAdapter {
	return BaseAdapter{
		client:      client,
		serviceName: serviceName,
	}
}

// Client returns the underlying HTTP client.
func (a *BaseAdapter) Client() *clients.Client {
	return a.client
}

// ServiceName returns the name of the downstream service.
func (a *BaseAdapter) ServiceName() string {
	return a.serviceName
}

// PostJSON posts payload and returns the body of a 2xx response; the caller
// closes it. Every other outcome comes back as a domain error.
func (a *BaseAdapter) PostJSON(ctx context.Context, path string, payload any, operation, entityID string) (io.ReadCloser, error) {
	resp, err := a.client.PostJSON(ctx, path, payload)
	if err != nil {
		return nil, MapHTTPError(nil, err, a.serviceName, operation, entityID)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer func() { _ = resp.Body.Close() }()

		return nil, MapHTTPError(resp, nil, a.serviceName, operation, entityID)
	}

	return resp.Body, nil
}

// ValidateRequired rejects an empty value.
func ValidateRequired(value, fieldName string) error {
	if value == "" {
		return domain.NewValidationError(fieldName, "is required")
	}

	return nil
}

// ValidatePositive rejects zero and negative values.
func ValidatePositive[T ~int | ~int64 | ~float64](value T, fieldName string) error {
	if value <= 0 {
		return domain.NewValidationError(fieldName, "must be positive")
	}

	return nil
}
