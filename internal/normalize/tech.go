package normalize

import (
	"strings"

	"github.com/servicekpi/internal/model"
)

// TechNormalizer canonicalizes technician identifiers against an injected
// variant table and valid-code set. It is total: every input, including
// numeric-looking text and empty strings, comes back as an uppercase code
// or the UNKNOWN sentinel.
type TechNormalizer struct {
	variants map[string]string
	valid    map[string]bool
}

// NewTechNormalizer builds the normalizer. Variant keys and codes are
// folded to uppercase; validCodes lists every canonical code that should
// pass through unchanged.
func NewTechNormalizer(variants map[string]string, validCodes []string) *TechNormalizer {
	n := &TechNormalizer{
		variants: make(map[string]string, len(variants)),
		valid:    make(map[string]bool, len(validCodes)),
	}
	for variant, code := range variants {
		n.variants[strings.ToUpper(strings.TrimSpace(variant))] = strings.ToUpper(strings.TrimSpace(code))
	}
	for _, code := range validCodes {
		n.valid[strings.ToUpper(strings.TrimSpace(code))] = true
	}
	return n
}

// Normalize maps one raw identifier to its canonical code, or UNKNOWN.
// Spreadsheet exports render numeric identifier cells as floats, so a
// trailing ".0" on an all-digit value is stripped before lookup.
func (n *TechNormalizer) Normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if t, ok := strings.CutSuffix(s, ".0"); ok && isDigits(t) {
		s = t
	}
	if s == "" {
		return model.Unknown
	}
	if code, ok := n.variants[s]; ok {
		return code
	}
	if n.valid[s] {
		return s
	}
	return model.Unknown
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
