package classify

import (
	"strings"

	"github.com/servicekpi/internal/model"
)

// Reason labels outside the configured category tables.
const (
	NotCanceled   = "NOT_CANCELED"
	Uncategorized = "UNCATEGORIZED"
)

// ExtractCancellationReason buckets a cancellation note into one of the
// configured reason categories. The category with the most keyword hits
// wins; ties resolve to the earlier (higher priority) category. The
// confidence is the matched fraction of that category's keyword list,
// capped at 1.
func (c *Classifier) ExtractCancellationReason(text string) (string, float64) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Unknown, 0
	}
	lower := strings.ToLower(text)

	best := ""
	bestHits := 0
	bestTotal := 0
	for _, cat := range c.categories {
		hits := 0
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best = cat.Name
			bestHits = hits
			bestTotal = len(cat.Keywords)
		}
	}
	if bestHits == 0 {
		return Uncategorized, 0
	}

	confidence := float64(bestHits) / float64(bestTotal)
	if confidence > 1 {
		confidence = 1
	}
	return best, confidence
}
