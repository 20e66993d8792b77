package normalize

import (
	"strings"

	"github.com/xavierca1/aqar-matcher/internal/entity"
)

var (
	rentWords = []string{"ايجار", "للايجار", "اجار", "تاجير", "rent", "lease"}
	buyWords  = []string{"بيع", "للبيع", "شراء", "تمليك", "sale", "sell", "buy"}
)

// Purpose reads buy/rent from free text. Rent words win over sale words.
func Purpose(text string) entity.Purpose {
	f := Fold(text)
	if f == "" {
		return entity.PurposeUnset
	}
	switch entity.Purpose(f) {
	case entity.PurposeBuy, entity.PurposeRent:
		return entity.Purpose(f)
	}
	for _, w := range rentWords {
		if strings.Contains(f, w) {
			return entity.PurposeRent
		}
	}
	for _, w := range buyWords {
		if strings.Contains(f, w) {
			return entity.PurposeBuy
		}
	}
	return entity.PurposeUnset
}
