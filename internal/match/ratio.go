package match

import (
	"math"
	"sort"
	"strings"
)

// TokenSortRatio compares two strings ignoring token order: each side is
// reduced to its sorted alphanumeric tokens and the joined forms are
// compared by similarity ratio.
func TokenSortRatio(a, b string) int {
	as := sortTokens(a)
	bs := sortTokens(b)
	if as == bs {
		return 100
	}
	return ratio(as, bs)
}

// sortTokens strips punctuation, splits on whitespace, and rejoins the
// sorted tokens with single spaces.
func sortTokens(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return ' '
		}
	}, strings.ToUpper(s))

	tokens := strings.Fields(cleaned)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// ratio is the classic sequence similarity: twice the length of the
// longest common subsequence over the combined length, scaled to 0-100.
func ratio(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	lensum := len(ra) + len(rb)
	if lensum == 0 {
		return 100
	}
	lcs := lcsLength(ra, rb)
	return int(math.Round(float64(2*lcs) / float64(lensum) * 100))
}

// lcsLength computes the longest-common-subsequence length with a
// two-row dynamic program.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
