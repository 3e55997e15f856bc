// Package messaging holds what the event publishers share: the wire encoding
// of platform events.
package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/jsamuelsen/platform-service/internal/domain"
)

// Encode serializes an event as JSON. Field order is fixed by
// domain.PlatformEvent, so equal events always produce identical bytes.
func Encode(event domain.PlatformEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding %s event: %w", event.Event, err)
	}

	return data, nil
}

// Decode parses a payload produced by Encode.
func Decode(data []byte) (domain.PlatformEvent, error) {
	var event domain.PlatformEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.PlatformEvent{}, fmt.Errorf("decoding platform event: %w", err)
	}

	return event, nil
}
