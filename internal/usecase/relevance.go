package usecase

import (
	"math"
	"sort"

	"github.com/xavierca1/aqar-matcher/internal/entity"
	"github.com/xavierca1/aqar-matcher/internal/normalize"
)

// Pesos do ranking de busca interativa
const (
	scoreTerritory         = 40
	scoreTerritoryFallback = 10
	scoreSubcatExact       = 20
	scoreSubcatPartial     = 10
	scoreSubcatNeutral     = 10
	scoreRangeInside       = 15
	scoreRangeNear         = 7
	scoreRangeNeutral      = 7
	scoreTitleType         = 10
	scoreTitleSubcat       = 5

	rangeTolerance = 0.20
)

// Score ranks one search result against the requirement, 0..100.
func Score(result entity.SearchResult, req entity.Requirement) int {
	l := result.Listing
	total := 0.0

	if result.Fallback {
		total += scoreTerritoryFallback
	} else {
		total += scoreTerritory
	}

	total += subcategoryScore(l.SubCategory, req.SubCategory)
	total += rangeScore(l.PriceAmount, req.PriceMin, req.PriceMax)
	total += rangeScore(l.Space, req.AreaMin, req.AreaMax)

	if normalize.MentionsPropertyType(l.Title, req.PropertyType) {
		total += scoreTitleType
		if req.SubCategory != "" && normalize.ContainsEither(l.Title, req.SubCategory) {
			total += scoreTitleSubcat
		}
	}

	score := int(math.Round(total))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ScoreAndSort annotates each result and returns a new slice ordered by score,
// keeping the original order on ties.
func ScoreAndSort(results []entity.SearchResult, req entity.Requirement) []entity.SearchResult {
	out := make([]entity.SearchResult, len(results))
	for i, r := range results {
		r.Score = Score(r, req)
		out[i] = r
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func subcategoryScore(got, want string) float64 {
	if normalize.Fold(want) == "" {
		return scoreSubcatNeutral
	}
	if normalize.Fold(got) == normalize.Fold(want) {
		return scoreSubcatExact
	}
	if normalize.ContainsEither(got, want) {
		return scoreSubcatPartial
	}
	return 0
}

// rangeScore: inside [min,max] full credit, within the tolerance band partial,
// unknown value or no usable bound neutral.
func rangeScore(value, lower, upper *float64) float64 {
	lo, hasLo := bound(lower)
	hi, hasHi := bound(upper)
	if !hasLo && !hasHi {
		return scoreRangeNeutral
	}
	if value == nil {
		return scoreRangeNeutral
	}
	v := *value

	inside := (!hasLo || v >= lo) && (!hasHi || v <= hi)
	if inside {
		return scoreRangeInside
	}
	near := (!hasLo || v >= lo*(1-rangeTolerance)) && (!hasHi || v <= hi*(1+rangeTolerance))
	if near {
		return scoreRangeNear
	}
	return 0
}

func bound(f *float64) (float64, bool) {
	if f == nil || *f <= 0 {
		return 0, false
	}
	return *f, true
}
