package normalize

import (
	"strings"

	"github.com/servicekpi/internal/model"
)

// ApplianceNormalizer maps raw appliance text to a closed category set by
// keyword containment. Categories are checked in declaration order and the
// first hit wins.
type ApplianceNormalizer struct {
	categories []model.KeywordCategory
}

// NewApplianceNormalizer builds the normalizer from an ordered category
// table. Keywords are folded to uppercase once here.
func NewApplianceNormalizer(categories []model.KeywordCategory) *ApplianceNormalizer {
	out := make([]model.KeywordCategory, 0, len(categories))
	for _, cat := range categories {
		upper := model.KeywordCategory{Name: strings.ToUpper(strings.TrimSpace(cat.Name))}
		for _, kw := range cat.Keywords {
			kw = strings.ToUpper(strings.TrimSpace(kw))
			if kw != "" {
				upper.Keywords = append(upper.Keywords, kw)
			}
		}
		out = append(out, upper)
	}
	return &ApplianceNormalizer{categories: out}
}

// Normalize returns the first matching category, the uppercased input
// when nothing matches (uncategorized, deliberately not forced to OTHER),
// or UNKNOWN for empty input.
func (n *ApplianceNormalizer) Normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return model.Unknown
	}
	for _, cat := range n.categories {
		for _, kw := range cat.Keywords {
			if strings.Contains(s, kw) {
				return cat.Name
			}
		}
	}
	return s
}
