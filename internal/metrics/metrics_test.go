package metrics

import (
	"math"
	"testing"

	"github.com/servicekpi/internal/classify"
	"github.com/servicekpi/internal/config"
	"github.com/servicekpi/internal/model"
)

func newTestEngine() *Engine {
	return NewEngine(config.Default())
}

func matchedRow(tech string, rev model.Revenue, cls model.Classification) model.LinkedJob {
	return model.LinkedJob{
		Job:        model.JobRecord{TechCode: tech},
		Class:      cls,
		LinkStatus: model.LinkMatched,
		Revenue:    rev,
	}
}

func orphanRow(tech string, rev model.Revenue) model.LinkedJob {
	return model.LinkedJob{
		LinkStatus: model.LinkOrphan,
		SalesTech:  tech,
		Revenue:    rev,
	}
}

func TestRevenue(t *testing.T) {
	linked := []model.LinkedJob{
		matchedRow("BB", model.Revenue{Labor: 110, Parts: 40, Total: 150}, model.Classification{}),
		matchedRow("BB", model.Revenue{SCall: 89, Total: 89}, model.Classification{}),
		matchedRow("JS", model.Revenue{}, model.Classification{}),
		matchedRow("JS", model.Revenue{}, model.Classification{DiagnosticOnly: true, DiagnosticTier: model.TierHigh}),
		matchedRow("JS", model.Revenue{}, model.Classification{Canceled: true, CancelTier: model.TierHigh}),
		orphanRow("JD", model.Revenue{SCall: 75, Total: 75}),
	}

	rows := newTestEngine().Revenue(linked)

	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0].Tech != "BB" || rows[1].Tech != "JD" || rows[2].Tech != "JS" {
		t.Fatalf("tech order = %s/%s/%s, want BB/JD/JS", rows[0].Tech, rows[1].Tech, rows[2].Tech)
	}

	bb := rows[0]
	if bb.Rows != 2 || bb.Total != 239 {
		t.Errorf("BB = %d rows total %v, want 2 rows total 239", bb.Rows, bb.Total)
	}
	if bb.RevenuePerJob != 119.5 {
		t.Errorf("BB RevenuePerJob = %v, want 119.5", bb.RevenuePerJob)
	}
	// Profit proxy: revenue minus half the parts (default cost ratio 0.5).
	if bb.ProfitProxy != 219 {
		t.Errorf("BB ProfitProxy = %v, want 219", bb.ProfitProxy)
	}
	if math.Abs(bb.PartsToLabor-40.0/110.0) > 1e-9 {
		t.Errorf("BB PartsToLabor = %v, want %v", bb.PartsToLabor, 40.0/110.0)
	}
	// Two standard calls at the default $89.
	if bb.ExpectedSCall != 178 {
		t.Errorf("BB ExpectedSCall = %v, want 178", bb.ExpectedSCall)
	}

	// Orphan sales keep their technician's money in the table.
	jd := rows[1]
	if jd.Total != 75 {
		t.Errorf("JD Total = %v, want 75", jd.Total)
	}
	if jd.ExpectedSCall != 0 {
		t.Errorf("JD ExpectedSCall = %v, want 0 for orphan rows", jd.ExpectedSCall)
	}

	js := rows[2]
	if js.Total != 0 || js.PartsToLabor != 0 {
		t.Errorf("JS = total %v ratio %v, want zeros", js.Total, js.PartsToLabor)
	}
	// One standard call, one diagnostic call, nothing for the canceled job.
	if js.ExpectedSCall != 89+69 {
		t.Errorf("JS ExpectedSCall = %v, want %v", js.ExpectedSCall, 89+69)
	}
}

func TestPerformance(t *testing.T) {
	linked := []model.LinkedJob{
		matchedRow("BB", model.Revenue{}, model.Classification{
			FirstTripComplete: true, FTCTier: model.TierHigh,
		}),
		matchedRow("BB", model.Revenue{}, model.Classification{
			DiagnosticOnly: true, DiagnosticTier: model.TierMedium,
		}),
		matchedRow("BB", model.Revenue{}, model.Classification{
			Canceled: true, CancelTier: model.TierHigh,
		}),
		orphanRow("BB", model.Revenue{Total: 10}),
		matchedRow("JS", model.Revenue{}, model.Classification{
			FirstTripComplete: true, FTCTier: model.TierHigh,
		}),
		matchedRow("JS", model.Revenue{}, model.Classification{
			FirstTripComplete: true, FTCTier: model.TierHigh,
			Recall: true, RecallTier: model.TierMedium,
		}),
	}

	rows := newTestEngine().Performance(linked)

	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}

	bb := rows[0]
	if bb.Tech != "BB" {
		t.Fatalf("rows[0].Tech = %q, want BB", bb.Tech)
	}
	// Canceled jobs stay out of the denominator; orphans out entirely.
	if bb.Jobs != 2 || bb.Canceled != 1 {
		t.Errorf("BB = %d jobs / %d canceled, want 2/1", bb.Jobs, bb.Canceled)
	}
	if bb.FTCStrict != 1 || bb.FTCLenient != 1 {
		t.Errorf("BB FTC = %d strict / %d lenient, want 1/1", bb.FTCStrict, bb.FTCLenient)
	}
	if bb.DiagStrict != 0 || bb.DiagLenient != 1 {
		t.Errorf("BB Diag = %d strict / %d lenient, want 0/1", bb.DiagStrict, bb.DiagLenient)
	}
	if bb.FTCRate != 0.5 || bb.MeetsFTCGoal {
		t.Errorf("BB FTCRate = %v meets=%v, want 0.5 and not meeting the 0.70 goal", bb.FTCRate, bb.MeetsFTCGoal)
	}
	if bb.InDiagBand {
		t.Error("BB InDiagBand = true, want false (0.5 is above the 0.10-0.20 band)")
	}
	if !bb.MeetsRecallGoal {
		t.Error("BB MeetsRecallGoal = false, want true at zero recalls")
	}

	js := rows[1]
	if js.FTCRate != 1 || !js.MeetsFTCGoal {
		t.Errorf("JS FTCRate = %v meets=%v, want 1.0 meeting the goal", js.FTCRate, js.MeetsFTCGoal)
	}
	if js.RecallRate != 0.5 || js.MeetsRecallGoal {
		t.Errorf("JS RecallRate = %v meets=%v, want 0.5 over the 0.05 cap", js.RecallRate, js.MeetsRecallGoal)
	}
}

func TestCancellations(t *testing.T) {
	linked := []model.LinkedJob{
		matchedRow("BB", model.Revenue{}, model.Classification{}),
		matchedRow("BB", model.Revenue{}, model.Classification{}),
		matchedRow("BB", model.Revenue{}, model.Classification{
			Canceled: true, CancelReason: "SCHEDULING", CancelConfidence: 1.0 / 7,
		}),
		matchedRow("JS", model.Revenue{}, model.Classification{
			Canceled: true, CancelReason: classify.Uncategorized,
		}),
	}

	e := newTestEngine()

	rows := e.Cancellations(linked)
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	bb := rows[0]
	if bb.Canceled != 1 || math.Abs(bb.Rate-1.0/3) > 1e-9 {
		t.Errorf("BB = %d canceled rate %v, want 1 at 1/3", bb.Canceled, bb.Rate)
	}
	if len(bb.Reasons) != 1 || bb.Reasons[0].Reason != "SCHEDULING" || bb.Reasons[0].Share != 1 {
		t.Errorf("BB reasons = %+v, want SCHEDULING at share 1", bb.Reasons)
	}

	company := e.CompanyCancellation(linked)
	if company.Jobs != 4 || company.Canceled != 2 || company.Rate != 0.5 {
		t.Errorf("company = %d jobs %d canceled rate %v, want 4/2/0.5", company.Jobs, company.Canceled, company.Rate)
	}
	if len(company.Reasons) != 2 {
		t.Fatalf("len(company.Reasons) = %d, want 2", len(company.Reasons))
	}
	// Equal counts fall back to name order.
	if company.Reasons[0].Reason != "SCHEDULING" || company.Reasons[1].Reason != classify.Uncategorized {
		t.Errorf("company reasons = %+v, want SCHEDULING then UNCATEGORIZED", company.Reasons)
	}
}
