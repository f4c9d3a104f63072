package metrics

import (
	"sort"

	"github.com/servicekpi/internal/config"
	"github.com/servicekpi/internal/model"
)

// Engine aggregates linked rows into the per-technician KPI tables.
type Engine struct {
	cfg *config.Config
}

// NewEngine returns a metrics engine using the given configuration for
// goals, pricing, and driving weights.
func NewEngine(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg}
}

// TechRevenue is the revenue rollup for one technician.
type TechRevenue struct {
	Tech          string  `json:"tech"`
	Rows          int     `json:"rows"`
	Labor         float64 `json:"labor"`
	Parts         float64 `json:"parts"`
	SCall         float64 `json:"scall"`
	Merchandise   float64 `json:"merchandise"`
	Total         float64 `json:"total"`
	AvgLabor      float64 `json:"avg_labor"`
	AvgParts      float64 `json:"avg_parts"`
	RevenuePerJob float64 `json:"revenue_per_job"`
	PartsToLabor  float64 `json:"parts_to_labor"`
	// ProfitProxy is revenue minus the configured parts-cost share; the
	// journal carries no real cost column.
	ProfitProxy float64 `json:"profit_proxy"`
	// ExpectedSCall prices each visit from the call-type table, giving
	// the actual service-call column a configured baseline. Canceled
	// jobs and orphan rows price at zero.
	ExpectedSCall float64 `json:"expected_scall"`
}

// Revenue rolls up the sales-side money by technician. Orphan rows
// attribute to the sales-side technician, so recorded money is never
// lost from the table.
func (e *Engine) Revenue(linked []model.LinkedJob) []TechRevenue {
	byTech := groupByTech(linked)

	out := make([]TechRevenue, 0, len(byTech))
	for _, tech := range sortedKeys(byTech) {
		rows := byTech[tech]
		r := TechRevenue{Tech: tech, Rows: len(rows)}
		for _, lj := range rows {
			r.Labor += lj.Revenue.Labor
			r.Parts += lj.Revenue.Parts
			r.SCall += lj.Revenue.SCall
			r.Merchandise += lj.Revenue.Merchandise
			r.Total += lj.Revenue.Total
			r.ExpectedSCall += e.expectedCall(&lj)
		}
		n := float64(len(rows))
		r.AvgLabor = r.Labor / n
		r.AvgParts = r.Parts / n
		r.RevenuePerJob = r.Total / n
		if r.Labor > 0 {
			r.PartsToLabor = r.Parts / r.Labor
		}
		r.ProfitProxy = r.Total - r.Parts*e.cfg.Pricing.PartsCostRatio
		out = append(out, r)
	}
	return out
}

// expectedCall prices one visit from the configured call-type table,
// falling back to the zone-1 call price for call types the table does
// not list.
func (e *Engine) expectedCall(lj *model.LinkedJob) float64 {
	if lj.LinkStatus == model.LinkOrphan || lj.Class.Canceled {
		return 0
	}
	kind := "STANDARD"
	switch {
	case lj.Class.Recall:
		kind = "RECALL"
	case lj.Class.DiagnosticOnly:
		kind = "DIAGNOSTIC"
	}
	if price, ok := e.cfg.Pricing.ServiceCall[kind]; ok {
		return price
	}
	return e.cfg.Pricing.Zone1Call
}

// TechPerformance is the classification rollup for one technician.
// Strict counts take only structured-field classifications; lenient adds
// the keyword-derived ones. Rates use the lenient counts over non-canceled
// jobs.
type TechPerformance struct {
	Tech     string `json:"tech"`
	Jobs     int    `json:"jobs"`
	Canceled int    `json:"canceled"`

	FTCStrict     int `json:"ftc_strict"`
	FTCLenient    int `json:"ftc_lenient"`
	DiagStrict    int `json:"diag_strict"`
	DiagLenient   int `json:"diag_lenient"`
	RecallStrict  int `json:"recall_strict"`
	RecallLenient int `json:"recall_lenient"`

	FTCRate    float64 `json:"ftc_rate"`
	DiagRate   float64 `json:"diag_rate"`
	RecallRate float64 `json:"recall_rate"`

	MeetsFTCGoal    bool `json:"meets_ftc_goal"`
	InDiagBand      bool `json:"in_diag_band"`
	MeetsRecallGoal bool `json:"meets_recall_goal"`
}

// Performance rolls up the classification labels by technician. Orphan
// rows carry no job side and are excluded; canceled jobs are excluded
// from every rate denominator.
func (e *Engine) Performance(linked []model.LinkedJob) []TechPerformance {
	byTech := groupByTech(linked)
	goals := e.cfg.Goals

	out := make([]TechPerformance, 0, len(byTech))
	for _, tech := range sortedKeys(byTech) {
		p := TechPerformance{Tech: tech}
		for _, lj := range byTech[tech] {
			if lj.LinkStatus == model.LinkOrphan {
				continue
			}
			if lj.Class.Canceled {
				p.Canceled++
				continue
			}
			p.Jobs++
			countTiered(lj.Class.FirstTripComplete, lj.Class.FTCTier, &p.FTCStrict, &p.FTCLenient)
			countTiered(lj.Class.DiagnosticOnly, lj.Class.DiagnosticTier, &p.DiagStrict, &p.DiagLenient)
			countTiered(lj.Class.Recall, lj.Class.RecallTier, &p.RecallStrict, &p.RecallLenient)
		}
		if p.Jobs == 0 && p.Canceled == 0 {
			continue
		}
		if p.Jobs > 0 {
			n := float64(p.Jobs)
			p.FTCRate = float64(p.FTCLenient) / n
			p.DiagRate = float64(p.DiagLenient) / n
			p.RecallRate = float64(p.RecallLenient) / n
		}
		p.MeetsFTCGoal = p.FTCRate >= goals.FirstTripComplete
		p.InDiagBand = p.DiagRate >= goals.DiagnosticOnlyMin && p.DiagRate <= goals.DiagnosticOnlyMax
		p.MeetsRecallGoal = p.RecallRate <= goals.RecallMax
		out = append(out, p)
	}
	return out
}

func countTiered(flag bool, tier model.Tier, strict, lenient *int) {
	if !flag {
		return
	}
	*lenient++
	if tier == model.TierHigh {
		*strict++
	}
}

func groupByTech(linked []model.LinkedJob) map[string][]model.LinkedJob {
	byTech := make(map[string][]model.LinkedJob)
	for i := range linked {
		tech := linked[i].Technician()
		byTech[tech] = append(byTech[tech], linked[i])
	}
	return byTech
}

func sortedKeys(m map[string][]model.LinkedJob) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
