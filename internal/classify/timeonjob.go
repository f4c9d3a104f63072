package classify

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reHours   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:hours?|hrs?|h)\b`)
	reMinutes = regexp.MustCompile(`(\d+)\s*(?:minutes?|mins?|m)\b`)
)

// ExtractTimeOnJob pulls an explicit time-spent mention out of a work
// description and returns it in minutes. Hours and minutes mentions
// combine, so "1h 30m" yields 90. Zero means no mention was found.
func ExtractTimeOnJob(text string) float64 {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)

	var minutes float64
	if m := reHours.FindStringSubmatch(lower); m != nil {
		if h, err := strconv.ParseFloat(m[1], 64); err == nil {
			minutes += h * 60
		}
	}
	if m := reMinutes.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			minutes += v
		}
	}
	return minutes
}
