package usecase

import (
	"math"
	"strings"

	"github.com/xavierca1/aqar-matcher/internal/entity"
	"github.com/xavierca1/aqar-matcher/internal/normalize"
)

const (
	weightPrice    = 0.40
	weightArea     = 0.30
	weightLocation = 0.30

	// sub-score for a side without data
	neutralSubScore = 70
	// GoodSubScore marks a breakdown item worth mentioning to the client.
	GoodSubScore = 70
)

// CalculateSimilarity compares a stored requirement with a published offer.
// A property type or purpose mismatch zeroes the score.
func CalculateSimilarity(req entity.Requirement, offer entity.Offer) entity.Similarity {
	if !typeCompatible(req, offer) || !purposeCompatible(req, offer) {
		return entity.Similarity{MatchQuality: entity.QualityFor(0)}
	}

	b := entity.Breakdown{
		Price:    proximity(offer.Meta.PriceAmount, req.PriceMin, req.PriceMax),
		Area:     proximity(offer.Meta.AreaAmount, req.AreaMin, req.AreaMax),
		Location: locationScore(req, offer),
	}
	score := int(math.Round(
		float64(b.Price)*weightPrice + float64(b.Area)*weightArea + float64(b.Location)*weightLocation,
	))
	if score > 100 {
		score = 100
	}
	return entity.Similarity{Score: score, Breakdown: b, MatchQuality: entity.QualityFor(score)}
}

// OfferPropertyType derives the canonical type from subcategory, category and
// title, in that order.
func OfferPropertyType(offer entity.Offer) (string, bool) {
	for _, text := range []string{offer.Meta.Subcategory, offer.Meta.Category, offer.Title} {
		if canonical, ok := normalize.KnownPropertyType(text); ok {
			return canonical, true
		}
	}
	return "", false
}

func typeCompatible(req entity.Requirement, offer entity.Offer) bool {
	want, ok := normalize.KnownPropertyType(req.PropertyType)
	if !ok {
		return true
	}
	got, ok := OfferPropertyType(offer)
	if !ok {
		return true
	}
	return want == got
}

func purposeCompatible(req entity.Requirement, offer entity.Offer) bool {
	if req.Purpose == entity.PurposeUnset {
		return true
	}
	got := normalize.Purpose(offer.Meta.Purpose)
	if got == entity.PurposeUnset {
		got = normalize.Purpose(offer.Title)
	}
	return got == entity.PurposeUnset || got == req.Purpose
}

// proximity is 100 inside [min,max] and decays linearly to 0 at 50% outside.
func proximity(value, lower, upper *float64) int {
	lo, hasLo := bound(lower)
	hi, hasHi := bound(upper)
	if value == nil || *value <= 0 || (!hasLo && !hasHi) {
		return neutralSubScore
	}
	v := *value

	var miss float64
	switch {
	case hasLo && v < lo:
		miss = (lo - v) / lo
	case hasHi && v > hi:
		miss = (v - hi) / hi
	default:
		return 100
	}
	s := 100 - miss*200
	if s < 0 {
		return 0
	}
	return int(math.Round(s))
}

func locationScore(req entity.Requirement, offer entity.Offer) int {
	hoods := req.Neighborhoods
	if len(hoods) == 0 && req.City == "" {
		return neutralSubScore
	}

	offerHood := offer.Meta.Neighborhood
	for _, h := range hoods {
		if offerHood != "" && normalize.SameArea(h, offerHood) {
			return 100
		}
	}
	title := normalize.Fold(offer.Title)
	for _, h := range hoods {
		if name := normalize.AreaName(h); name != "" && strings.Contains(title, name) {
			return 90
		}
	}

	if sameCity(req, offer) {
		return 50
	}
	if offerHood == "" && offer.Meta.City == "" {
		return neutralSubScore
	}
	return 0
}

func sameCity(req entity.Requirement, offer entity.Offer) bool {
	wanted := map[string]bool{}
	if c := normalize.CanonicalCity(req.City); c != "" {
		wanted[c] = true
	}
	for _, h := range req.Neighborhoods {
		for _, c := range normalize.CitiesOf(h) {
			wanted[c] = true
		}
	}
	if len(wanted) == 0 {
		return false
	}
	if c := normalize.CanonicalCity(offer.Meta.City); c != "" {
		return wanted[c]
	}
	for _, c := range normalize.CitiesOf(offer.Meta.Neighborhood) {
		if wanted[c] {
			return true
		}
	}
	return false
}
