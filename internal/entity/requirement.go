package entity

// Requirement is the normalized search/match criteria shared by the fan-out,
// the relevance scorer and the similarity calculator.
type Requirement struct {
	PropertyType  string   `json:"property_type" validate:"omitempty,max=60"`
	SubCategory   string   `json:"sub_category,omitempty" validate:"omitempty,max=60"`
	Purpose       Purpose  `json:"purpose" validate:"omitempty,oneof=buy rent"`
	PriceMin      *float64 `json:"price_min,omitempty" validate:"omitempty,gte=0"`
	PriceMax      *float64 `json:"price_max,omitempty" validate:"omitempty,gte=0"`
	AreaMin       *float64 `json:"area_min,omitempty" validate:"omitempty,gte=0"`
	AreaMax       *float64 `json:"area_max,omitempty" validate:"omitempty,gte=0"`
	City          string   `json:"city,omitempty" validate:"omitempty,max=60"`
	Neighborhoods []string `json:"neighborhoods" validate:"omitempty,max=30,dive,max=80"`
	Page          int      `json:"page,omitempty" validate:"omitempty,gte=1"`
}

// HasPriceBounds reports whether at least one usable price bound is set.
func (r Requirement) HasPriceBounds() bool {
	return usable(r.PriceMin) || usable(r.PriceMax)
}

func (r Requirement) HasAreaBounds() bool {
	return usable(r.AreaMin) || usable(r.AreaMax)
}

func usable(f *float64) bool {
	return f != nil && *f > 0
}
