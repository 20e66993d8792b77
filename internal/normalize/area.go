package normalize

import (
	"strings"
)

// cityNeighborhoods is the known neighborhood set per city. Keys and values
// are display spellings; lookups go through Fold.
var cityNeighborhoods = map[string][]string{
	"الرياض": {
		"الرابية", "النرجس", "الملقا", "الياسمين", "العليا", "السليمانية", "الورود", "حطين",
		"الصحافة", "النخيل", "الربوة", "الروضة", "المروج", "الغدير", "القيروان", "العارض",
	},
	"جدة": {
		"الروضة", "الشاطئ", "الحمراء", "السلامة", "النعيم", "الزهراء", "البوادي", "الصفا",
		"المروة", "أبحر الشمالية", "الخالدية", "الفيصلية",
	},
	"الدمام": {
		"الفيصلية", "الشاطئ", "الجلوية", "الفيحاء", "النزهة", "الشعلة", "الفرسان", "طيبة",
	},
	"مكة": {
		"العزيزية", "الشوقية", "النسيم", "الزاهر", "العوالي", "الرصيفة",
	},
	"المدينة المنورة": {
		"العزيزية", "قباء", "العوالي", "الخالدية", "السيح",
	},
}

var cityAliases = map[string]string{
	"riyadh":      "الرياض",
	"jeddah":      "جدة",
	"جده":         "جدة",
	"dammam":      "الدمام",
	"مكه":         "مكة",
	"مكة المكرمة": "مكة",
	"makkah":      "مكة",
	"المدينه":     "المدينة المنورة",
	"المدينة":     "المدينة المنورة",
	"madinah":     "المدينة المنورة",
}

var areaPrefixes = []string{"حي", "حى", "مخطط"}

// AreaName canonicalizes a neighborhood/city spelling: prefixes such as
// "حي" are removed and the result is folded.
func AreaName(name string) string {
	f := Fold(name)
	for _, p := range areaPrefixes {
		f = strings.TrimPrefix(f, Fold(p)+" ")
	}
	return strings.TrimSpace(f)
}

// SameArea compares two area names, substring-tolerant in both directions.
func SameArea(a, b string) bool {
	na, nb := AreaName(a), AreaName(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	return ContainsEither(na, nb)
}

// CanonicalCity resolves a city spelling to its table key, or "".
func CanonicalCity(name string) string {
	n := AreaName(name)
	if n == "" {
		return ""
	}
	for city := range cityNeighborhoods {
		if Fold(city) == n {
			return city
		}
	}
	for alias, city := range cityAliases {
		if Fold(alias) == n {
			return city
		}
	}
	return ""
}

// IsCity reports whether name is a known city rather than a neighborhood.
func IsCity(name string) bool {
	return CanonicalCity(name) != ""
}

// ExpandCityToNeighborhoods returns the known neighborhoods of a city so a
// city-level request can fan out across all of them. Nil for unknown cities.
func ExpandCityToNeighborhoods(city string) []string {
	canonical := CanonicalCity(city)
	if canonical == "" {
		return nil
	}
	return append([]string(nil), cityNeighborhoods[canonical]...)
}

// CitiesOf returns every city whose table contains the neighborhood.
func CitiesOf(neighborhood string) []string {
	var out []string
	n := AreaName(neighborhood)
	if n == "" {
		return nil
	}
	for city, hoods := range cityNeighborhoods {
		for _, h := range hoods {
			if AreaName(h) == n {
				out = append(out, city)
				break
			}
		}
	}
	return out
}

// Neighborhoods normalizes a list of areas: blanks dropped, duplicates removed
// by canonical name, first spelling kept.
func Neighborhoods(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		name := strings.TrimSpace(raw)
		key := AreaName(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}
