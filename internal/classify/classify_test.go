package classify

import (
	"math"
	"testing"

	"github.com/servicekpi/internal/config"
	"github.com/servicekpi/internal/model"
)

func newTestClassifier() *Classifier {
	t := config.Default().Tables
	return NewClassifier(Tables{
		DiagnosticKeywords: t.DiagnosticKeywords,
		RecallKeywords:     t.RecallKeywords,
		CompletedStatuses:  t.CompletedStatuses,
		CancelCategories:   t.CancelCategories,
		CancelMarkers:      t.CancelMarkers,
	})
}

func TestClassifyJobType(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name string
		job  model.JobRecord
		rev  model.Revenue
		want string
	}{
		{
			name: "standard repair",
			job: model.JobRecord{
				Status:              "Completed",
				HowManyVisits:       2,
				TotalMaterialInSale: 120,
				WorkDescription:     "Replaced drain pump",
			},
			rev:  model.Revenue{Parts: 120, Labor: 150},
			want: JobTypeStandard,
		},
		{
			name: "diagnostic only from service call charge",
			job: model.JobRecord{
				Status:        "Completed",
				HowManyVisits: 1,
			},
			rev:  model.Revenue{SCall: 89},
			want: JobTypeDiagnostic,
		},
		{
			name: "diagnostic only from description",
			job: model.JobRecord{
				Status:          "Completed",
				HowManyVisits:   1,
				WorkDescription: "Gave estimate, customer will decide",
			},
			want: JobTypeDiagnostic,
		},
		{
			name: "recall wins over diagnostic only",
			job: model.JobRecord{
				Status:          "Completed",
				HowManyVisits:   1,
				WorkDescription: "Recall visit, no parts used",
			},
			rev:  model.Revenue{SCall: 89},
			want: JobTypeRecall,
		},
		{
			name: "canceled wins over recall",
			job: model.JobRecord{
				JobCanceled:     true,
				WorkDescription: "Factory recall, customer canceled",
			},
			want: JobTypeCanceled,
		},
		{
			name: "parts sold blocks diagnostic keyword",
			job: model.JobRecord{
				Status:              "Completed",
				TotalMaterialInSale: 45,
				WorkDescription:     "Quoted repair, parts installed same day",
			},
			rev:  model.Revenue{Parts: 45},
			want: JobTypeStandard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.job, tt.rev)
			if got.JobType != tt.want {
				t.Errorf("Classify() JobType = %q, want %q", got.JobType, tt.want)
			}
		})
	}
}

func TestClassifyFirstTrip(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name     string
		job      model.JobRecord
		want     bool
		wantTier model.Tier
	}{
		{
			name:     "flag set despite several visits",
			job:      model.JobRecord{CompletedOnFirstTrip: true, HowManyVisits: 3, Status: "Completed"},
			want:     true,
			wantTier: model.TierHigh,
		},
		{
			name:     "single visit archived",
			job:      model.JobRecord{HowManyVisits: 1, Status: "Archived"},
			want:     true,
			wantTier: model.TierHigh,
		},
		{
			name: "single visit still scheduled",
			job:  model.JobRecord{HowManyVisits: 1, Status: "Scheduled"},
			want: false,
		},
		{
			name: "two visits completed",
			job:  model.JobRecord{HowManyVisits: 2, Status: "Completed"},
			want: false,
		},
		{
			name: "cancellation overrides the flag",
			job:  model.JobRecord{CompletedOnFirstTrip: true, JobCanceled: true},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.job, model.Revenue{Parts: 1})
			if got.FirstTripComplete != tt.want {
				t.Errorf("Classify() FirstTripComplete = %v, want %v", got.FirstTripComplete, tt.want)
			}
			if tt.want && got.FTCTier != tt.wantTier {
				t.Errorf("Classify() FTCTier = %q, want %q", got.FTCTier, tt.wantTier)
			}
		})
	}
}

func TestClassifyCancelDetection(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name     string
		job      model.JobRecord
		want     bool
		wantTier model.Tier
	}{
		{
			name:     "canceled flag",
			job:      model.JobRecord{JobCanceled: true},
			want:     true,
			wantTier: model.TierHigh,
		},
		{
			name:     "canceled status",
			job:      model.JobRecord{Status: "Canceled"},
			want:     true,
			wantTier: model.TierHigh,
		},
		{
			name:     "description marker",
			job:      model.JobRecord{Status: "Open", WorkDescription: "Customer called off the visit"},
			want:     true,
			wantTier: model.TierMedium,
		},
		{
			name: "no cancel signal",
			job:  model.JobRecord{Status: "Completed", WorkDescription: "Replaced igniter"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.job, model.Revenue{})
			if got.Canceled != tt.want {
				t.Errorf("Classify() Canceled = %v, want %v", got.Canceled, tt.want)
			}
			if tt.want && got.CancelTier != tt.wantTier {
				t.Errorf("Classify() CancelTier = %q, want %q", got.CancelTier, tt.wantTier)
			}
			if !tt.want && got.CancelReason != NotCanceled {
				t.Errorf("Classify() CancelReason = %q, want %q", got.CancelReason, NotCanceled)
			}
		})
	}
}

func TestClassifyRecallDetection(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name     string
		job      model.JobRecord
		want     bool
		wantTier model.Tier
	}{
		{
			name:     "recall department",
			job:      model.JobRecord{Department: "Warranty Recall", TotalMaterialInSale: 10},
			want:     true,
			wantTier: model.TierHigh,
		},
		{
			name:     "recall keyword in description",
			job:      model.JobRecord{WorkDescription: "Service bulletin applies to this unit", TotalMaterialInSale: 10},
			want:     true,
			wantTier: model.TierMedium,
		},
		{
			name:     "recall keyword in model field",
			job:      model.JobRecord{Model: "WF45-RECALL-A", TotalMaterialInSale: 10},
			want:     true,
			wantTier: model.TierMedium,
		},
		{
			name: "no recall signal",
			job:  model.JobRecord{Department: "Service", WorkDescription: "Cleaned condenser coils", TotalMaterialInSale: 10},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.job, model.Revenue{})
			if got.Recall != tt.want {
				t.Errorf("Classify() Recall = %v, want %v", got.Recall, tt.want)
			}
			if tt.want && got.RecallTier != tt.wantTier {
				t.Errorf("Classify() RecallTier = %q, want %q", got.RecallTier, tt.wantTier)
			}
		})
	}
}

func TestClassifyDiagnosticTiers(t *testing.T) {
	c := newTestClassifier()

	structured := c.Classify(model.JobRecord{Status: "Completed"}, model.Revenue{SCall: 69})
	if !structured.DiagnosticOnly || structured.DiagnosticTier != model.TierHigh {
		t.Errorf("structured diagnostic = (%v, %q), want (true, %q)",
			structured.DiagnosticOnly, structured.DiagnosticTier, model.TierHigh)
	}

	keyword := c.Classify(model.JobRecord{Status: "Completed", WorkDescription: "Diagnosis only, will call back"}, model.Revenue{})
	if !keyword.DiagnosticOnly || keyword.DiagnosticTier != model.TierMedium {
		t.Errorf("keyword diagnostic = (%v, %q), want (true, %q)",
			keyword.DiagnosticOnly, keyword.DiagnosticTier, model.TierMedium)
	}

	none := c.Classify(model.JobRecord{Status: "Completed", WorkDescription: "Replaced thermostat"}, model.Revenue{Parts: 30})
	if none.DiagnosticOnly || none.DiagnosticTier != model.TierLow {
		t.Errorf("no-signal diagnostic = (%v, %q), want (false, %q)",
			none.DiagnosticOnly, none.DiagnosticTier, model.TierLow)
	}
}

func TestExtractCancellationReason(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name     string
		text     string
		want     string
		wantConf float64
	}{
		{
			name:     "empty text",
			text:     "",
			want:     model.Unknown,
			wantConf: 0,
		},
		{
			name:     "bare cancellation",
			text:     "canceled",
			want:     Uncategorized,
			wantConf: 0,
		},
		{
			name:     "scheduling conflict",
			text:     "Customer canceled - scheduling conflict",
			want:     "SCHEDULING",
			wantConf: 1.0 / 7.0,
		},
		{
			name:     "price complaints stack up",
			text:     "Price too high, found it cheaper elsewhere",
			want:     "PRICE",
			wantConf: 3.0 / 5.0,
		},
		{
			name:     "tie resolves to higher priority",
			text:     "Customer declined, not worth it",
			want:     "CUSTOMER_INITIATED",
			wantConf: 1.0 / 6.0,
		},
		{
			name:     "match count beats priority",
			text:     "Customer declined, no show, not home",
			want:     "NO_SHOW",
			wantConf: 2.0 / 4.0,
		},
		{
			name:     "appliance recovered on its own",
			text:     "Unit started working again, unplugged overnight",
			want:     "TECHNICAL",
			wantConf: 3.0 / 5.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, conf := c.ExtractCancellationReason(tt.text)
			if got != tt.want {
				t.Errorf("ExtractCancellationReason(%q) = %q, want %q", tt.text, got, tt.want)
			}
			if math.Abs(conf-tt.wantConf) > 1e-9 {
				t.Errorf("ExtractCancellationReason(%q) confidence = %v, want %v", tt.text, conf, tt.wantConf)
			}
		})
	}
}

func TestExtractTimeOnJob(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"empty", "", 0},
		{"no mention", "Replaced belt and pulley", 0},
		{"whole hours", "Spent 2 hours on site", 120},
		{"compact hours and minutes", "1h 30m diagnostics", 90},
		{"minutes only", "45 min drain cleanout", 45},
		{"fractional hours", "2.5 hrs compressor swap", 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTimeOnJob(tt.text); got != tt.want {
				t.Errorf("ExtractTimeOnJob(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
