package match

import (
	"math"

	"github.com/servicekpi/internal/normalize"
)

// Matcher scores similarity between two free-text addresses on a 0-100
// scale. Thresholds are injected so tests and callers can tune the
// short-address handling without package state.
type Matcher struct {
	rules    *normalize.AddressRules
	shortLen int
	penalty  float64
}

// NewMatcher builds a matcher over the given normalization rules.
// Addresses whose normalized form is shorter than shortLen characters get
// their ratio scaled by penalty: short strings produce spuriously high
// similarity, and a false negative is the cheaper mistake here.
func NewMatcher(rules *normalize.AddressRules, shortLen int, penalty float64) *Matcher {
	return &Matcher{rules: rules, shortLen: shortLen, penalty: penalty}
}

// Confidence returns the match confidence between two raw addresses.
// Both pass through the address normalizer first. Equal after
// normalization short-circuits to 100; an empty side is always 0.
func (m *Matcher) Confidence(addr1, addr2 string) int {
	a := m.rules.Normalize(addr1)
	b := m.rules.Normalize(addr2)

	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	score := TokenSortRatio(a, b)

	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	if minLen < m.shortLen {
		score = int(math.Round(float64(score) * m.penalty))
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}
