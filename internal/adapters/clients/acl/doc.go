// Package acl is the anti-corruption layer between this service and its
// downstream HTTP collaborators.
//
// Adapters here own the wire DTOs of the remote API, translate domain values
// into them, and translate every failure back into a domain error so that
// nothing outside this package ever sees an *http.Response:
//
//   - 404 → [domain.ErrNotFound]
//   - 409 → [domain.ErrConflict]
//   - 400/422 → [domain.ErrValidation]
//   - 401/403 → [domain.ErrForbidden]
//   - 429, 5xx, transport errors, open circuit → [domain.ErrUnavailable]
//
// [CommandClient] is the synchronous notifier for the Command service.
package acl
