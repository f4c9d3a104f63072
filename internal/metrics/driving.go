package metrics

import (
	"sort"
	"time"

	"github.com/servicekpi/internal/model"
)

// CategoryPoor is the floor bucket for driving scores.
const CategoryPoor = "Poor"

// defaultAlertWeight applies to alert types missing from the configured
// weight table.
const defaultAlertWeight = -1

// DrivingScore is the safety rollup for one technician.
type DrivingScore struct {
	Tech    string         `json:"tech"`
	Alerts  int            `json:"alerts"`
	Counts  map[string]int `json:"counts"`
	Windows map[int]int    `json:"windows"`
	// Penalty is the weighted sum over recent alerts; Score normalizes it
	// against the worst technician, 100 meaning clean.
	Penalty  float64 `json:"penalty"`
	Score    float64 `json:"score"`
	Category string  `json:"category"`
}

// DrivingScores turns per-technician alerts into 0-100 driving scores.
// The score weighs alerts within the configured decay window of the
// newest alert seen anywhere, normalized against the worst technician's
// penalty so the fleet is comparable run to run. Window counts cover the
// configured trailing day spans ending at that same newest timestamp.
func (e *Engine) DrivingScores(alertsByTech map[string][]model.AlertRecord) []DrivingScore {
	dc := e.cfg.Driving

	var newest time.Time
	for _, alerts := range alertsByTech {
		for _, a := range alerts {
			if a.Time.After(newest) {
				newest = a.Time
			}
		}
	}
	cutoff := newest.AddDate(0, 0, -dc.DecayDays)

	techs := make([]string, 0, len(alertsByTech))
	for tech := range alertsByTech {
		techs = append(techs, tech)
	}
	sort.Strings(techs)

	out := make([]DrivingScore, 0, len(techs))
	var maxPenalty float64
	for _, tech := range techs {
		s := DrivingScore{
			Tech:    tech,
			Counts:  make(map[string]int),
			Windows: make(map[int]int, len(dc.WindowsDays)),
		}
		for _, days := range dc.WindowsDays {
			s.Windows[days] = 0
		}
		for _, a := range alertsByTech[tech] {
			s.Alerts++
			s.Counts[a.AlertType]++

			weight, ok := dc.AlertWeights[a.AlertType]
			if !ok {
				weight = defaultAlertWeight
			}
			// Undated alerts still happened; they weigh in but cannot be
			// placed in a trailing window.
			if a.Time.IsZero() {
				s.Penalty += -weight
				continue
			}
			if !a.Time.Before(cutoff) {
				s.Penalty += -weight
			}
			for _, days := range dc.WindowsDays {
				if !a.Time.Before(newest.AddDate(0, 0, -days)) {
					s.Windows[days]++
				}
			}
		}
		if s.Penalty > maxPenalty {
			maxPenalty = s.Penalty
		}
		out = append(out, s)
	}

	for i := range out {
		out[i].Score = scoreFromPenalty(out[i].Penalty, maxPenalty)
		out[i].Category = e.categorize(out[i].Score)
	}
	return out
}

func scoreFromPenalty(penalty, maxPenalty float64) float64 {
	if maxPenalty <= 0 || penalty <= 0 {
		return 100
	}
	score := 100 - penalty/maxPenalty*100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func (e *Engine) categorize(score float64) string {
	dc := e.cfg.Driving
	switch {
	case score >= dc.Excellent:
		return "Excellent"
	case score >= dc.Good:
		return "Good"
	case score >= dc.Average:
		return "Average"
	case score >= dc.BelowAverage:
		return "Below Average"
	}
	return CategoryPoor
}
