package usecase

import (
	"strconv"
	"strings"

	"github.com/xavierca1/aqar-matcher/internal/entity"
)

var qualityLabels = map[entity.MatchQuality]string{
	entity.QualityExcellent: "تطابق ممتاز",
	entity.QualityVeryGood:  "تطابق جيد جداً",
	entity.QualityGood:      "تطابق جيد",
	entity.QualityFair:      "تطابق مقبول",
	entity.QualityWeak:      "تطابق ضعيف",
}

// RenderMatchMessage builds the WhatsApp text for one candidate.
func RenderMatchMessage(c entity.MatchCandidate) string {
	o := c.Offer
	var b strings.Builder

	greeting := "🏠 عرض جديد يناسب طلبك!"
	if c.Name != "" {
		greeting = "🏠 مرحباً " + c.Name + "، عرض جديد يناسب طلبك!"
	}
	b.WriteString(greeting + "\n\n")

	b.WriteString(c.Similarity.MatchQuality.Stars() + " " + qualityLabels[c.Similarity.MatchQuality])
	b.WriteString(" (" + strconv.Itoa(c.Similarity.Score) + "%)\n")

	title := o.Title
	if o.Meta.Category != "" {
		title = o.Meta.Category + " | " + title
	}
	b.WriteString("📌 " + title + "\n")
	b.WriteString("💰 السعر: " + describeAmount(o.Meta.PriceAmount, o.Meta.PriceText, "ريال") + "\n")
	b.WriteString("📐 المساحة: " + describeAmount(o.Meta.AreaAmount, o.Meta.AreaText, "م²") + "\n")
	b.WriteString("📍 الموقع: " + describeLocation(o.Meta) + "\n")

	if reasons := matchReasons(c.Similarity.Breakdown); len(reasons) > 0 {
		b.WriteString("✅ يناسبك من حيث: " + strings.Join(reasons, "، ") + "\n")
	}
	if o.Link != "" {
		b.WriteString("\n🔗 " + o.Link)
	}
	return strings.TrimRight(b.String(), "\n")
}

func matchReasons(bd entity.Breakdown) []string {
	var out []string
	if bd.Price >= GoodSubScore {
		out = append(out, "السعر")
	}
	if bd.Area >= GoodSubScore {
		out = append(out, "المساحة")
	}
	if bd.Location >= GoodSubScore {
		out = append(out, "الموقع")
	}
	return out
}

func describeAmount(v *float64, raw, unit string) string {
	if v == nil {
		if strings.TrimSpace(raw) != "" {
			return raw
		}
		return "غير محدد"
	}
	return groupThousands(int64(*v)) + " " + unit
}

func describeLocation(m entity.OfferMeta) string {
	parts := make([]string, 0, 2)
	if m.Neighborhood != "" {
		parts = append(parts, m.Neighborhood)
	}
	if m.City != "" {
		parts = append(parts, m.City)
	}
	if len(parts) == 0 {
		return "غير محدد"
	}
	return strings.Join(parts, "، ")
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
