package dto

import (
	"github.com/jsamuelsen/platform-service/internal/app"
	"github.com/jsamuelsen/platform-service/internal/domain"
)

// CreatePlatformRequest is the POST /api/platforms body.
// Cost is a pointer so an absent field fails "required" while 0 passes.
type CreatePlatformRequest struct {
	Name      string   `json:"name"      validate:"required,notempty"`
	Publisher string   `json:"publisher" validate:"required,notempty"`
	Cost      *float64 `json:"cost"      validate:"required,gte=0"`
}

// ToInput converts a validated request into the service input.
func (r *CreatePlatformRequest) ToInput() app.CreatePlatformInput {
	in := app.CreatePlatformInput{
		Name:      r.Name,
		Publisher: r.Publisher,
	}

	if r.Cost != nil {
		in.Cost = *r.Cost
	}

	return in
}

// PlatformResponse is the read shape returned by every platforms endpoint.
type PlatformResponse struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Publisher string  `json:"publisher"`
	Cost      float64 `json:"cost"`
}

// NewPlatformResponse converts a domain view.
func NewPlatformResponse(v domain.PlatformView) PlatformResponse {
	return PlatformResponse{
		ID:        v.ID,
		Name:      v.Name,
		Publisher: v.Publisher,
		Cost:      v.Cost,
	}
}

// NewPlatformListResponse converts views, never returning nil so an empty
// store encodes as [].
func NewPlatformListResponse(views []domain.PlatformView) []PlatformResponse {
	out := make([]PlatformResponse, 0, len(views))
	for _, v := range views {
		out = append(out, NewPlatformResponse(v))
	}

	return out
}
