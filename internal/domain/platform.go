// Package domain holds the platform record, its events and the error
// vocabulary adapters translate into transport statuses.
package domain

import (
	"math"
	"strings"
)

// EventPlatformPublished tags every event announcing a newly created platform.
const EventPlatformPublished = "Platform_Published"

// Platform is a persisted platform record.
// ID is zero until the record store commits it.
type Platform struct {
	ID        int
	Name      string
	Publisher string
	Cost      float64
}

// NewPlatform builds an uncommitted platform from raw input.
// Name and publisher are trimmed; cost must be a finite, non-negative number.
func NewPlatform(name, publisher string, cost float64) (*Platform, error) {
	name = strings.TrimSpace(name)
	publisher = strings.TrimSpace(publisher)

	if name == "" {
		return nil, NewValidationError("name", "is required")
	}

	if publisher == "" {
		return nil, NewValidationError("publisher", "is required")
	}

	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return nil, NewValidationErrorWithValue("cost", "must be a finite number", cost)
	}

	if cost < 0 {
		return nil, NewValidationErrorWithValue("cost", "must not be negative", cost)
	}

	return &Platform{Name: name, Publisher: publisher, Cost: cost}, nil
}

// ToView projects the platform into its read shape.
func (p Platform) ToView() PlatformView {
	return PlatformView{
		ID:        p.ID,
		Name:      p.Name,
		Publisher: p.Publisher,
		Cost:      p.Cost,
	}
}

// PlatformView is the read-shaped projection handed to callers and to the
// command service.
type PlatformView struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Publisher string  `json:"publisher"`
	Cost      float64 `json:"cost"`
}

// PlatformEvent is the message published for every created platform.
// Field order is fixed so the serialized form is stable for consumers.
type PlatformEvent struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Publisher string  `json:"publisher"`
	Cost      float64 `json:"cost"`
	Event     string  `json:"event"`
}

// NewPlatformEvent flattens a view into a Platform_Published event.
func NewPlatformEvent(view PlatformView) PlatformEvent {
	return PlatformEvent{
		ID:        view.ID,
		Name:      view.Name,
		Publisher: view.Publisher,
		Cost:      view.Cost,
		Event:     EventPlatformPublished,
	}
}
