package entity

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Offer is a published listing as delivered by the publishing webhook.
type Offer struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Link  string    `json:"link"`
	Meta  OfferMeta `json:"meta"`
}

func (o *Offer) UnmarshalJSON(data []byte) error {
	var w struct {
		ID    FlexID    `json:"id"`
		Title string    `json:"title"`
		Link  string    `json:"link"`
		Meta  OfferMeta `json:"meta"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = Offer{ID: string(w.ID), Title: w.Title, Link: w.Link, Meta: w.Meta}
	return nil
}

// FlexID accepts identifiers sent either as JSON strings or numbers.
type FlexID string

func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexID(n.String())
	return nil
}

// OfferMeta normalizes the alias keys the publisher sends
// (price_amount|price, arc_space|area, location|neighborhood, purpose|offer_type).
type OfferMeta struct {
	Category     string   `json:"category,omitempty"`
	Subcategory  string   `json:"subcategory,omitempty"`
	PriceAmount  *float64 `json:"price_amount,omitempty"`
	PriceText    string   `json:"price_text,omitempty"`
	AreaAmount   *float64 `json:"arc_space,omitempty"`
	AreaText     string   `json:"area_text,omitempty"`
	City         string   `json:"city,omitempty"`
	Neighborhood string   `json:"location,omitempty"`
	Purpose      string   `json:"purpose,omitempty"`
}

type offerMetaWire struct {
	Category     string    `json:"category"`
	Subcategory  string    `json:"subcategory"`
	PriceAmount  FlexFloat `json:"price_amount"`
	Price        FlexFloat `json:"price"`
	PriceText    string    `json:"price_text"`
	ArcSpace     FlexFloat `json:"arc_space"`
	Area         FlexFloat `json:"area"`
	AreaText     string    `json:"area_text"`
	City         string    `json:"city"`
	Location     string    `json:"location"`
	Neighborhood string    `json:"neighborhood"`
	Purpose      string    `json:"purpose"`
	OfferType    string    `json:"offer_type"`
}

func (m *OfferMeta) UnmarshalJSON(data []byte) error {
	var w offerMetaWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = OfferMeta{
		Category:     w.Category,
		Subcategory:  w.Subcategory,
		PriceAmount:  firstFloat(w.PriceAmount, w.Price),
		PriceText:    firstNonEmpty(w.PriceText, firstText(w.PriceAmount, w.Price)),
		AreaAmount:   firstFloat(w.ArcSpace, w.Area),
		AreaText:     firstNonEmpty(w.AreaText, firstText(w.ArcSpace, w.Area)),
		City:         w.City,
		Neighborhood: firstNonEmpty(w.Location, w.Neighborhood),
		Purpose:      firstNonEmpty(w.Purpose, w.OfferType),
	}
	return nil
}

// FlexFloat accepts a JSON number, a numeric string ("450,000 ريال") or null.
// Value is nil when the field is absent or not numeric.
type FlexFloat struct {
	Value *float64
	Raw   string
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f.Raw = s
		f.Value = ParseAmount(s)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		// tipos estranhos (bool, objeto) ficam como desconhecidos
		return nil
	}
	f.Raw = string(data)
	f.Value = &v
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if f.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*f.Value)
}

// ParseAmount extracts a number from free text, accepting Arabic-Indic digits
// and thousands separators. Returns nil when nothing numeric is present.
func ParseAmount(s string) *float64 {
	var b strings.Builder
	seenDot := false
scan:
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		case (r == '.' || r == '٫') && !seenDot && b.Len() > 0:
			seenDot = true
			b.WriteRune('.')
		case r == ',' || r == '٬' || r == ' ':
			// separators
		default:
			if b.Len() > 0 {
				break scan
			}
		}
	}
	out := strings.TrimSuffix(b.String(), ".")
	if out == "" {
		return nil
	}
	v, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return nil
	}
	return &v
}

func firstFloat(values ...FlexFloat) *float64 {
	for _, v := range values {
		if v.Value != nil {
			return v.Value
		}
	}
	return nil
}

func firstText(values ...FlexFloat) string {
	for _, v := range values {
		if v.Raw != "" {
			return v.Raw
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Listing is one post returned by the listings search API. Absent numeric
// fields stay nil (unknown), never zero.
type Listing struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Link         string   `json:"link"`
	PriceAmount  *float64 `json:"price_amount,omitempty"`
	Space        *float64 `json:"space,omitempty"`
	City         string   `json:"city,omitempty"`
	Location     string   `json:"location,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
	Purpose      string   `json:"purpose,omitempty"`
	SubCategory  string   `json:"sub_catt,omitempty"`
	Thumbnail    string   `json:"thumbnail,omitempty"`
}

// SearchResult is a fan-out hit annotated for ranking.
type SearchResult struct {
	Listing  Listing `json:"listing"`
	Fallback bool    `json:"fallback"`
	Score    int     `json:"score"`
}
