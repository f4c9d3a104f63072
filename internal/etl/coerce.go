package etl

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CoerceStats tallies cells that failed to parse, per category. Empty
// cells are legitimate absences and are not counted.
type CoerceStats struct {
	Timestamps int `json:"timestamps"`
	Numbers    int `json:"numbers"`
	Booleans   int `json:"booleans"`
	Durations  int `json:"durations"`
}

// Total returns the combined failure count.
func (s CoerceStats) Total() int {
	return s.Timestamps + s.Numbers + s.Booleans + s.Durations
}

// Coercer parses loosely formatted cells. Failures substitute the zero
// value and increment the matching counter instead of returning an error,
// so one bad cell never aborts a load.
type Coercer struct {
	Stats CoerceStats
}

var (
	reTZAbbrev      = regexp.MustCompile(`\s+(?:PST|PDT|MST|MDT|CST|CDT|EST|EDT|UTC|GMT)$`)
	reLeadingNumber = regexp.MustCompile(`^-?\d+(?:\.\d+)?`)
	moneyJunk       = strings.NewReplacer("$", "", ",", "", " ", "")
)

// timestampLayouts covers the formats seen across the job, sales, and
// fleet exports. Two-digit years come last so four-digit forms win.
var timestampLayouts = []string{
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"Jan 2, 2006 3:04:05 PM",
	"Jan 2, 2006 3:04 PM",
	"1/2/2006",
	"2006-01-02",
	"1/2/06 3:04 PM",
	"1/2/06",
}

// Timestamp parses a date or date+time cell. A trailing timezone
// abbreviation (the fleet platform appends PST/PDT) is stripped first.
func (c *Coercer) Timestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	s = reTZAbbrev.ReplaceAllString(s, "")
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	c.Stats.Timestamps++
	return time.Time{}
}

// Number parses a float cell, tolerating currency symbols, thousands
// separators, accounting-style negatives, and unit suffixes ("65 mph").
func (c *Coercer) Number(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = moneyJunk.Replace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		m := reLeadingNumber.FindString(s)
		if m == "" {
			c.Stats.Numbers++
			return 0
		}
		f, _ = strconv.ParseFloat(m, 64)
	}
	if negative {
		f = -f
	}
	return f
}

// Int parses an integer cell through Number, so "3.0" visit counts work.
func (c *Coercer) Int(s string) int {
	return int(c.Number(s))
}

// Bool parses the Yes/No style flags the job system exports.
func (c *Coercer) Bool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "no", "n", "false", "f", "0":
		return false
	case "yes", "y", "true", "t", "1":
		return true
	}
	c.Stats.Booleans++
	return false
}

// DurationSec parses HH:MM:SS or MM:SS cells to seconds. A bare number
// is already seconds.
func (c *Coercer) DurationSec(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
	case 2:
		m, errM := strconv.Atoi(strings.TrimSpace(parts[0]))
		sec, errS := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errM == nil && errS == nil {
			return m*60 + sec
		}
	case 3:
		h, errH := strconv.Atoi(strings.TrimSpace(parts[0]))
		m, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
		sec, errS := strconv.Atoi(strings.TrimSpace(parts[2]))
		if errH == nil && errM == nil && errS == nil {
			return h*3600 + m*60 + sec
		}
	}
	c.Stats.Durations++
	return 0
}
