package entity

import (
	"time"
)

// LegacyRequestID identifies the request migrated from single-request records.
const LegacyRequestID = "legacy"

type Purpose string

const (
	PurposeUnset Purpose = ""
	PurposeBuy   Purpose = "buy"
	PurposeRent  Purpose = "rent"
)

// Request is a searcher's standing criteria. Within one client there is at most
// one active request per canonical property type.
type Request struct {
	ID              string        `json:"id"`
	PropertyType    string        `json:"property_type"`
	Purpose         Purpose       `json:"purpose,omitempty"`
	PriceMin        *float64      `json:"price_min,omitempty"`
	PriceMax        *float64      `json:"price_max,omitempty"`
	AreaMin         *float64      `json:"area_min,omitempty"`
	AreaMax         *float64      `json:"area_max,omitempty"`
	City            string        `json:"city,omitempty"`
	Neighborhoods   []string      `json:"neighborhoods"`
	ContactNumber   string        `json:"contact_number,omitempty"`
	AdditionalSpecs string        `json:"additional_specs,omitempty"`
	Status          RequestStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (r Request) IsActive() bool {
	return r.Status != RequestInactive
}

func (r Request) Clone() Request {
	out := r
	out.PriceMin = cloneFloat(r.PriceMin)
	out.PriceMax = cloneFloat(r.PriceMax)
	out.AreaMin = cloneFloat(r.AreaMin)
	out.AreaMax = cloneFloat(r.AreaMax)
	if r.Neighborhoods != nil {
		out.Neighborhoods = append([]string(nil), r.Neighborhoods...)
	}
	return out
}

// Requirement converts the stored request into the search/matching view.
func (r Request) Requirement() Requirement {
	return Requirement{
		PropertyType:  r.PropertyType,
		Purpose:       r.Purpose,
		PriceMin:      cloneFloat(r.PriceMin),
		PriceMax:      cloneFloat(r.PriceMax),
		AreaMin:       cloneFloat(r.AreaMin),
		AreaMax:       cloneFloat(r.AreaMax),
		City:          r.City,
		Neighborhoods: append([]string(nil), r.Neighborhoods...),
	}
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Float is a small helper for building optional numeric fields.
func Float(v float64) *float64 {
	return &v
}
