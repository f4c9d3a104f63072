package normalize

import (
	"regexp"
	"sort"
	"strings"
)

// abbrevRule is one compiled word-boundary replacement.
type abbrevRule struct {
	re          *regexp.Regexp
	replacement string
}

// AddressRules normalizes free-text street addresses with a fixed
// abbreviation table. Rules compile once at construction; Normalize is
// idempotent so already-normalized text passes through unchanged.
type AddressRules struct {
	abbrevs  []abbrevRule // \bSTREET\b -> ST
	dotted   []abbrevRule // \bST\.     -> ST
	suffixes []abbrevRule // trailing ", USA" -> ""
}

var (
	reWhitespace   = regexp.MustCompile(`\s+`)
	reDoubleComma  = regexp.MustCompile(`,\s*,`)
	reDoublePeriod = regexp.MustCompile(`\.\s*\.`)
	reZipCode      = regexp.MustCompile(`(\d{5})(?:-\d{4})?`)
)

// NewAddressRules compiles the abbreviation table (full token -> short
// form) and the trailing country suffixes to strip.
func NewAddressRules(abbrevs map[string]string, countrySuffixes []string) *AddressRules {
	r := &AddressRules{}

	// Sorted so rule application order is deterministic.
	fulls := make([]string, 0, len(abbrevs))
	for full := range abbrevs {
		fulls = append(fulls, full)
	}
	sort.Strings(fulls)

	for _, full := range fulls {
		abbr := strings.ToUpper(strings.TrimSpace(abbrevs[full]))
		full = strings.ToUpper(strings.TrimSpace(full))
		if full == "" || abbr == "" {
			continue
		}
		r.abbrevs = append(r.abbrevs, abbrevRule{
			re:          regexp.MustCompile(`\b` + regexp.QuoteMeta(full) + `\b`),
			replacement: abbr,
		})
		r.dotted = append(r.dotted, abbrevRule{
			re:          regexp.MustCompile(`\b` + regexp.QuoteMeta(abbr) + `\.`),
			replacement: abbr,
		})
	}

	for _, suffix := range countrySuffixes {
		token := strings.ToUpper(strings.Trim(suffix, " ,"))
		if token == "" {
			continue
		}
		r.suffixes = append(r.suffixes, abbrevRule{
			re: regexp.MustCompile(`\s*,?\s*` + regexp.QuoteMeta(token) + `\s*$`),
		})
	}

	return r
}

// Normalize standardizes one address: uppercase, abbreviation table,
// punctuation cleanup, country suffix strip. Empty input stays empty.
func (r *AddressRules) Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	s := strings.ToUpper(strings.TrimSpace(raw))

	for _, rule := range r.abbrevs {
		s = rule.re.ReplaceAllString(s, rule.replacement)
	}
	for _, rule := range r.dotted {
		s = rule.re.ReplaceAllString(s, rule.replacement)
	}

	s = reWhitespace.ReplaceAllString(s, " ")
	s = reDoubleComma.ReplaceAllString(s, ",")
	s = reDoublePeriod.ReplaceAllString(s, ".")

	for _, rule := range r.suffixes {
		s = rule.re.ReplaceAllString(s, "")
	}

	return strings.TrimSpace(s)
}

// ExtractZipCode returns the first 5-digit ZIP in the address, ignoring
// any +4 extension, or "" when none is present.
func ExtractZipCode(address string) string {
	m := reZipCode.FindStringSubmatch(address)
	if m == nil {
		return ""
	}
	return m[1]
}
