package metrics

import (
	"sort"

	"github.com/servicekpi/internal/classify"
	"github.com/servicekpi/internal/model"
)

// ReasonCount is one row of a cancellation-reason breakdown. Share is the
// fraction of canceled jobs carrying this reason.
type ReasonCount struct {
	Reason string  `json:"reason"`
	Count  int     `json:"count"`
	Share  float64 `json:"share"`
}

// TechCancellation is the cancellation rollup for one technician.
type TechCancellation struct {
	Tech     string        `json:"tech"`
	Jobs     int           `json:"jobs"`
	Canceled int           `json:"canceled"`
	Rate     float64       `json:"rate"`
	Reasons  []ReasonCount `json:"reasons"`
}

// CancellationSummary is the company-wide cancellation rollup.
type CancellationSummary struct {
	Jobs     int           `json:"jobs"`
	Canceled int           `json:"canceled"`
	Rate     float64       `json:"rate"`
	Reasons  []ReasonCount `json:"reasons"`
}

// Cancellations rolls up cancellations by technician. Orphan rows carry
// no classification and are excluded.
func (e *Engine) Cancellations(linked []model.LinkedJob) []TechCancellation {
	byTech := groupByTech(linked)

	out := make([]TechCancellation, 0, len(byTech))
	for _, tech := range sortedKeys(byTech) {
		c := TechCancellation{Tech: tech}
		reasons := make(map[string]int)
		for _, lj := range byTech[tech] {
			if lj.LinkStatus == model.LinkOrphan {
				continue
			}
			c.Jobs++
			if lj.Class.Canceled {
				c.Canceled++
				reasons[lj.Class.CancelReason]++
			}
		}
		if c.Jobs == 0 {
			continue
		}
		c.Rate = float64(c.Canceled) / float64(c.Jobs)
		c.Reasons = reasonBreakdown(reasons, c.Canceled)
		out = append(out, c)
	}
	return out
}

// CompanyCancellation rolls up cancellations across every technician.
func (e *Engine) CompanyCancellation(linked []model.LinkedJob) CancellationSummary {
	s := CancellationSummary{}
	reasons := make(map[string]int)
	for i := range linked {
		lj := &linked[i]
		if lj.LinkStatus == model.LinkOrphan {
			continue
		}
		s.Jobs++
		if lj.Class.Canceled {
			s.Canceled++
			reasons[lj.Class.CancelReason]++
		}
	}
	if s.Jobs > 0 {
		s.Rate = float64(s.Canceled) / float64(s.Jobs)
	}
	s.Reasons = reasonBreakdown(reasons, s.Canceled)
	return s
}

// reasonBreakdown orders reasons by count descending, then name. The
// NOT_CANCELED label never belongs in a breakdown of canceled jobs.
func reasonBreakdown(reasons map[string]int, canceled int) []ReasonCount {
	out := make([]ReasonCount, 0, len(reasons))
	for reason, count := range reasons {
		if reason == classify.NotCanceled {
			continue
		}
		rc := ReasonCount{Reason: reason, Count: count}
		if canceled > 0 {
			rc.Share = float64(count) / float64(canceled)
		}
		out = append(out, rc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}
