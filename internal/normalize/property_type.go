package normalize

import (
	"strings"
)

// synonymGroups lists property-type spellings. The first entry of each group
// is the canonical token; the second is the first synonym used when relaxing a
// query.
var synonymGroups = [][]string{
	{"بيت", "منزل", "فيلا", "فله", "فلل", "دور", "دوبلكس", "ڤيلا", "villa", "house", "duplex"},
	{"شقة", "شقق", "استوديو", "apartment", "flat"},
	{"أرض", "ارض", "اراضي", "قطعة أرض", "land", "plot"},
	{"عمارة", "عمائر", "بناية", "building"},
	{"استراحة", "شاليه", "استراحات", "chalet"},
	{"مزرعة", "مزارع", "farm"},
	{"محل", "محلات", "معرض", "shop"},
	{"مكتب", "مكاتب", "office"},
	{"مستودع", "مخزن", "مستودعات", "warehouse"},
}

type synonymEntry struct {
	folded    string
	canonical string
}

var (
	exactIndex = map[string]string{}
	// longest first so "قطعة أرض" wins over "أرض"
	substringIndex []synonymEntry
)

func init() {
	for _, group := range synonymGroups {
		canonical := group[0]
		for _, word := range group {
			f := Fold(word)
			exactIndex[f] = canonical
			substringIndex = append(substringIndex, synonymEntry{folded: f, canonical: canonical})
		}
	}
	for i := 1; i < len(substringIndex); i++ {
		for j := i; j > 0 && len(substringIndex[j].folded) > len(substringIndex[j-1].folded); j-- {
			substringIndex[j], substringIndex[j-1] = substringIndex[j-1], substringIndex[j]
		}
	}
}

// PropertyType maps any known spelling to its canonical token. Matching is
// substring-tolerant in both directions; unknown text is returned folded.
func PropertyType(text string) string {
	f := Fold(text)
	if f == "" {
		return ""
	}
	if canonical, ok := exactIndex[f]; ok {
		return canonical
	}
	for _, w := range strings.Fields(f) {
		if canonical, ok := exactIndex[w]; ok {
			return canonical
		}
		if canonical, ok := exactIndex[strings.TrimPrefix(w, "ال")]; ok {
			return canonical
		}
	}
	for _, e := range substringIndex {
		if strings.Contains(f, e.folded) {
			return e.canonical
		}
	}
	for _, e := range substringIndex {
		// very short input ("دو") must not claim a group
		if len([]rune(f)) >= 3 && strings.Contains(e.folded, f) {
			return e.canonical
		}
	}
	return f
}

// KnownPropertyType is PropertyType restricted to the synonym table.
func KnownPropertyType(text string) (string, bool) {
	canonical := PropertyType(text)
	for _, group := range synonymGroups {
		if group[0] == canonical {
			return canonical, true
		}
	}
	return "", false
}

// SamePropertyType compares two spellings by canonical token.
func SamePropertyType(a, b string) bool {
	ca, cb := PropertyType(a), PropertyType(b)
	return ca != "" && ca == cb
}

// FirstSynonym returns the first alternative spelling of the canonical type,
// or "" when the type has no group.
func FirstSynonym(text string) string {
	canonical := PropertyType(text)
	for _, group := range synonymGroups {
		if group[0] == canonical && len(group) > 1 {
			return group[1]
		}
	}
	return ""
}

// Synonyms returns every spelling in the canonical type's group.
func Synonyms(text string) []string {
	canonical := PropertyType(text)
	for _, group := range synonymGroups {
		if group[0] == canonical {
			return append([]string(nil), group...)
		}
	}
	if canonical == "" {
		return nil
	}
	return []string{canonical}
}

// MentionsPropertyType reports whether any word (or word pair) of text maps
// to the canonical type.
func MentionsPropertyType(text, propertyType string) bool {
	canonical := PropertyType(propertyType)
	if canonical == "" {
		return false
	}
	folded := Fold(text)
	for _, syn := range Synonyms(canonical) {
		if strings.Contains(folded, Fold(syn)) {
			return true
		}
	}
	return false
}
