package metrics

import (
	"sort"
	"time"

	"github.com/servicekpi/internal/model"
)

// IdleStats is the engine-idle rollup for one device.
type IdleStats struct {
	Device         string  `json:"device"`
	Events         int     `json:"events"`
	TotalSec       int     `json:"total_sec"`
	AvgSec         float64 `json:"avg_sec"`
	MedianSec      float64 `json:"median_sec"`
	MaxSec         int     `json:"max_sec"`
	TotalHours     float64 `json:"total_hours"`
	SpanDays       int     `json:"span_days"`
	AvgHoursPerDay float64 `json:"avg_hours_per_day"`
}

// IdleAnalysis rolls up idle intervals per device. SpanDays covers first
// to last dated event inclusive; undated events still count toward the
// duration statistics.
func (e *Engine) IdleAnalysis(idle []model.IdleInterval) []IdleStats {
	byDevice := make(map[string][]model.IdleInterval)
	for _, iv := range idle {
		byDevice[iv.Device] = append(byDevice[iv.Device], iv)
	}

	devices := make([]string, 0, len(byDevice))
	for d := range byDevice {
		devices = append(devices, d)
	}
	sort.Strings(devices)

	out := make([]IdleStats, 0, len(devices))
	for _, device := range devices {
		events := byDevice[device]
		s := IdleStats{Device: device, Events: len(events)}

		durations := make([]int, 0, len(events))
		var first, last time.Time
		for _, ev := range events {
			s.TotalSec += ev.DurationSec
			if ev.DurationSec > s.MaxSec {
				s.MaxSec = ev.DurationSec
			}
			durations = append(durations, ev.DurationSec)
			if ev.StartTime.IsZero() {
				continue
			}
			if first.IsZero() || ev.StartTime.Before(first) {
				first = ev.StartTime
			}
			if ev.StartTime.After(last) {
				last = ev.StartTime
			}
		}

		s.AvgSec = float64(s.TotalSec) / float64(len(events))
		s.MedianSec = medianInt(durations)
		s.TotalHours = float64(s.TotalSec) / 3600
		if !first.IsZero() {
			s.SpanDays = int(last.Truncate(24*time.Hour).Sub(first.Truncate(24*time.Hour))/(24*time.Hour)) + 1
			s.AvgHoursPerDay = s.TotalHours / float64(s.SpanDays)
		}
		out = append(out, s)
	}
	return out
}

func medianInt(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}
