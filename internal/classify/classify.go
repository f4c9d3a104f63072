package classify

import (
	"strings"

	"github.com/servicekpi/internal/model"
)

// Job type summary labels.
const (
	JobTypeStandard   = "Standard Repair"
	JobTypeDiagnostic = "Diagnostic Only"
	JobTypeRecall     = "Recall"
	JobTypeCanceled   = "Canceled"
)

// Tables carries the classifier's keyword configuration. Everything is
// injected so fixtures can swap tables without shared state.
type Tables struct {
	DiagnosticKeywords []string
	RecallKeywords     []string
	CompletedStatuses  []string
	CancelCategories   []model.KeywordCategory
	CancelMarkers      []string
}

// Classifier derives per-job labels from structured flags and free text.
// All rules are state-free and total over their input.
type Classifier struct {
	diagKeywords   []string
	recallKeywords []string
	completed      []string
	categories     []model.KeywordCategory
	markers        []string
}

// NewClassifier folds the keyword tables to lowercase once.
func NewClassifier(t Tables) *Classifier {
	c := &Classifier{
		diagKeywords:   lowerAll(t.DiagnosticKeywords),
		recallKeywords: lowerAll(t.RecallKeywords),
		completed:      lowerAll(t.CompletedStatuses),
		markers:        lowerAll(t.CancelMarkers),
	}
	for _, cat := range t.CancelCategories {
		c.categories = append(c.categories, model.KeywordCategory{
			Name:     strings.ToUpper(strings.TrimSpace(cat.Name)),
			Keywords: lowerAll(cat.Keywords),
		})
	}
	return c
}

// Classify labels one job. rev is the sales-side revenue already linked
// to the job; the zero value means no sales context, which only disables
// the structured diagnostic branch.
//
// Precedence: a canceled job is never FTC, and Recall suppresses
// Diagnostic-Only when both would match.
func (c *Classifier) Classify(job model.JobRecord, rev model.Revenue) model.Classification {
	cls := model.Classification{
		FTCTier:        model.TierLow,
		DiagnosticTier: model.TierLow,
		RecallTier:     model.TierLow,
		CancelTier:     model.TierLow,
	}

	desc := strings.ToLower(job.WorkDescription)

	cls.Canceled, cls.CancelTier = c.detectCanceled(job, desc)
	if cls.Canceled {
		cls.CancelReason, cls.CancelConfidence = c.ExtractCancellationReason(job.WorkDescription)
	} else {
		cls.CancelReason = NotCanceled
	}

	cls.Recall, cls.RecallTier = c.detectRecall(job, desc)

	cls.DiagnosticOnly, cls.DiagnosticTier = c.detectDiagnostic(job, rev, desc)
	if cls.Recall && cls.DiagnosticOnly {
		cls.DiagnosticOnly = false
		cls.DiagnosticTier = model.TierLow
	}

	cls.FirstTripComplete, cls.FTCTier = c.detectFTC(job)
	if cls.Canceled {
		cls.FirstTripComplete = false
		cls.FTCTier = model.TierLow
	}

	cls.JobType = c.jobType(cls)
	cls.TimeOnJobMin = ExtractTimeOnJob(job.WorkDescription)

	return cls
}

// detectFTC: the structured flag wins outright; otherwise a single visit
// that reached a completed status counts.
func (c *Classifier) detectFTC(job model.JobRecord) (bool, model.Tier) {
	if job.CompletedOnFirstTrip {
		return true, model.TierHigh
	}
	if job.HowManyVisits == 1 && c.statusCompleted(job.Status) {
		return true, model.TierHigh
	}
	return false, model.TierLow
}

func (c *Classifier) statusCompleted(status string) bool {
	status = strings.ToLower(status)
	for _, s := range c.completed {
		if s != "" && strings.Contains(status, s) {
			return true
		}
	}
	return false
}

// detectDiagnostic: parts must be zero/absent on both sides; a positive
// service-call charge is the structured signal, a description keyword the
// text signal.
func (c *Classifier) detectDiagnostic(job model.JobRecord, rev model.Revenue, desc string) (bool, model.Tier) {
	partsZero := job.TotalMaterialInSale == 0 && rev.Parts == 0
	if !partsZero {
		return false, model.TierLow
	}
	if rev.SCall > 0 {
		return true, model.TierHigh
	}
	if containsAny(desc, c.diagKeywords) {
		return true, model.TierMedium
	}
	return false, model.TierLow
}

// detectRecall: a recall department is the explicit flag; keywords in the
// description or make/model fields are the text signal.
func (c *Classifier) detectRecall(job model.JobRecord, desc string) (bool, model.Tier) {
	if strings.Contains(strings.ToLower(job.Department), "recall") {
		return true, model.TierHigh
	}
	if containsAny(desc, c.recallKeywords) {
		return true, model.TierMedium
	}
	makeModel := strings.ToLower(job.Make + " " + job.Model)
	if containsAny(makeModel, c.recallKeywords) {
		return true, model.TierMedium
	}
	return false, model.TierLow
}

// detectCanceled: flag and status are structured; description markers are
// the text fallback.
func (c *Classifier) detectCanceled(job model.JobRecord, desc string) (bool, model.Tier) {
	if job.JobCanceled {
		return true, model.TierHigh
	}
	if strings.Contains(strings.ToLower(job.Status), "cancel") {
		return true, model.TierHigh
	}
	if containsAny(desc, c.markers) {
		return true, model.TierMedium
	}
	return false, model.TierLow
}

func (c *Classifier) jobType(cls model.Classification) string {
	switch {
	case cls.Canceled:
		return JobTypeCanceled
	case cls.Recall:
		return JobTypeRecall
	case cls.DiagnosticOnly:
		return JobTypeDiagnostic
	default:
		return JobTypeStandard
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
