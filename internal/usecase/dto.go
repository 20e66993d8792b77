package usecase

import (
	"github.com/xavierca1/aqar-matcher/internal/entity"
)

type SubmitRequirementsInput struct {
	Phone           string   `json:"phone" validate:"required,min=9,max=20"`
	Name            string   `json:"name" validate:"omitempty,max=120"`
	PropertyType    string   `json:"property_type" validate:"required,max=60"`
	Purpose         string   `json:"purpose" validate:"omitempty,oneof=buy rent"`
	PriceMin        *float64 `json:"price_min" validate:"omitempty,gte=0"`
	PriceMax        *float64 `json:"price_max" validate:"omitempty,gte=0"`
	AreaMin         *float64 `json:"area_min" validate:"omitempty,gte=0"`
	AreaMax         *float64 `json:"area_max" validate:"omitempty,gte=0"`
	City            string   `json:"city" validate:"omitempty,max=60"`
	Neighborhoods   []string `json:"neighborhoods" validate:"omitempty,max=30,dive,max=80"`
	ContactNumber   string   `json:"contact_number" validate:"omitempty,max=20"`
	AdditionalSpecs string   `json:"additional_specs" validate:"omitempty,max=500"`
}

type SubmitRequirementsOutput struct {
	Phone     string         `json:"phone"`
	RequestID string         `json:"request_id"`
	Created   bool           `json:"created"`
	Request   entity.Request `json:"request"`
	Requests  int            `json:"requests"`
}

type NotifyMatchesOutput struct {
	OfferID   string `json:"offer_id"`
	Matched   int    `json:"matched"`
	Scheduled int    `json:"scheduled"`
}

// InteractionStat aggregates one interaction type across all clients.
type InteractionStat struct {
	Count        int     `json:"count"`
	AverageScore float64 `json:"average_score"`
}

type InteractionStats struct {
	TotalMatches int                                        `json:"total_matches"`
	ByType       map[entity.InteractionType]InteractionStat `json:"by_type"`
}
