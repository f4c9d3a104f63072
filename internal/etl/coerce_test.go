package etl

import (
	"testing"
	"time"
)

func TestCoercerTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		want     time.Time
		wantFail bool
	}{
		{"empty", "", time.Time{}, false},
		{"slash date", "3/4/2021", time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), false},
		{"slash datetime am", "1/5/2024 7:42 AM", time.Date(2024, 1, 5, 7, 42, 0, 0, time.UTC), false},
		{"slash datetime pm seconds", "1/5/2024 3:04:05 PM", time.Date(2024, 1, 5, 15, 4, 5, 0, time.UTC), false},
		{"iso datetime", "2024-03-15 13:04:05", time.Date(2024, 3, 15, 13, 4, 5, 0, time.UTC), false},
		{"trailing zone abbreviation", "1/5/2024 7:42 AM PST", time.Date(2024, 1, 5, 7, 42, 0, 0, time.UTC), false},
		{"month name", "Jan 5, 2024 7:42 AM", time.Date(2024, 1, 5, 7, 42, 0, 0, time.UTC), false},
		{"garbage", "not a date", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			co := &Coercer{}
			got := co.Timestamp(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("Timestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if failed := co.Stats.Timestamps > 0; failed != tt.wantFail {
				t.Errorf("Timestamp(%q) failure counted = %v, want %v", tt.in, failed, tt.wantFail)
			}
		})
	}
}

func TestCoercerNumber(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		want     float64
		wantFail bool
	}{
		{"empty", "", 0, false},
		{"plain", "125.50", 125.50, false},
		{"negative", "-12.5", -12.5, false},
		{"currency and separators", "$1,234.50", 1234.50, false},
		{"accounting negative", "(45.00)", -45, false},
		{"unit suffix", "65 mph", 65, false},
		{"garbage", "n/a", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			co := &Coercer{}
			got := co.Number(tt.in)
			if got != tt.want {
				t.Errorf("Number(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if failed := co.Stats.Numbers > 0; failed != tt.wantFail {
				t.Errorf("Number(%q) failure counted = %v, want %v", tt.in, failed, tt.wantFail)
			}
		})
	}
}

func TestCoercerBool(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		want     bool
		wantFail bool
	}{
		{"empty", "", false, false},
		{"yes", "Yes", true, false},
		{"y", "y", true, false},
		{"true upper", "TRUE", true, false},
		{"one", "1", true, false},
		{"no", "No", false, false},
		{"zero", "0", false, false},
		{"garbage", "maybe", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			co := &Coercer{}
			got := co.Bool(tt.in)
			if got != tt.want {
				t.Errorf("Bool(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if failed := co.Stats.Booleans > 0; failed != tt.wantFail {
				t.Errorf("Bool(%q) failure counted = %v, want %v", tt.in, failed, tt.wantFail)
			}
		})
	}
}

func TestCoercerDurationSec(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		want     int
		wantFail bool
	}{
		{"empty", "", 0, false},
		{"h m s", "0:05:32", 332, false},
		{"large hours", "12:05:32", 43532, false},
		{"m s", "05:32", 332, false},
		{"bare seconds", "90", 90, false},
		{"garbage", "soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			co := &Coercer{}
			got := co.DurationSec(tt.in)
			if got != tt.want {
				t.Errorf("DurationSec(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if failed := co.Stats.Durations > 0; failed != tt.wantFail {
				t.Errorf("DurationSec(%q) failure counted = %v, want %v", tt.in, failed, tt.wantFail)
			}
		})
	}
}
