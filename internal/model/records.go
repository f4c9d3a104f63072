package model

import "time"

// Unknown is the sentinel for identifiers that could not be resolved.
// Downstream grouping keys on it instead of dropping rows.
const Unknown = "UNKNOWN"

// KeywordCategory is one named bucket of match keywords. Order inside a
// slice of categories is significant: it is the priority order.
type KeywordCategory struct {
	Name     string   `json:"name" mapstructure:"name"`
	Keywords []string `json:"keywords" mapstructure:"keywords"`
}

// Tier describes how a classification was derived.
type Tier string

const (
	TierHigh   Tier = "high"   // structured field
	TierMedium Tier = "medium" // keyword/text inference
	TierLow    Tier = "low"    // no signal
)

// Link status values for LinkedJob rows.
const (
	LinkMatched      = "matched"
	LinkUnreconciled = "unreconciled"
	LinkOrphan       = "orphan_sale"
)

// JobRecord is one row of the job-system (Type6) report.
// JobNumber is the join key and stays opaque text end to end.
type JobRecord struct {
	JobNumber            string    `json:"job_number"`
	Status               string    `json:"status"`
	TechCode             string    `json:"tech_code"`
	OriginDate           time.Time `json:"origin_date,omitempty"`
	FirstAppmnt          time.Time `json:"first_appmnt,omitempty"`
	CmpltnDate           time.Time `json:"cmpltn_date,omitempty"`
	HowManyVisits        int       `json:"how_many_visits"`
	CompletedOnFirstTrip bool      `json:"completed_on_first_trip"`
	JobCanceled          bool      `json:"job_canceled"`
	WorkDescription      string    `json:"work_description"`
	TotalMaterialInSale  float64   `json:"total_material_in_sale"`
	TotalLaborInSale     float64   `json:"total_labor_in_sale"`
	Make                 string    `json:"make"`
	Model                string    `json:"model"`
	ApplianceType        string    `json:"appliance_type"`
	PayingParty          string    `json:"paying_party"`
	Department           string    `json:"department"`
	ServiceAddress       string    `json:"service_address"`
	City                 string    `json:"city"`
	Zip                  string    `json:"zip"`
}

// SalesRecord is one row of the sales journal.
type SalesRecord struct {
	DateRecorded    time.Time `json:"date_recorded,omitempty"`
	Technician      string    `json:"technician"`
	CustomerName    string    `json:"customer_name"`
	InvoiceNumber   string    `json:"invoice_number"`
	MerchandiseSold float64   `json:"merchandise_sold"`
	PartsSold       float64   `json:"parts_sold"`
	SCallSold       float64   `json:"scall_sold"`
	LaborSold       float64   `json:"labor_sold"`
	ImpliedTax      float64   `json:"implied_tax"`
	TotalSale       float64   `json:"total_sale"`
	PayCode         string    `json:"pay_code"`
	Department      string    `json:"department"`
}

// GpsSegment is one drive or stop interval from the fleet tracker.
type GpsSegment struct {
	Device      string    `json:"device"`
	Status      string    `json:"status"`
	StartTime   time.Time `json:"start_time,omitempty"`
	EndTime     time.Time `json:"end_time,omitempty"`
	DurationSec int       `json:"duration_sec"`
	Address     string    `json:"address"`
	LengthMiles float64   `json:"length_miles"`
	TopSpeedMPH float64   `json:"top_speed_mph"`
	AvgSpeedMPH float64   `json:"avg_speed_mph"`
}

// DaySpan is one device's working day from the day_start_end table.
type DaySpan struct {
	Device    string    `json:"device"`
	Date      time.Time `json:"date,omitempty"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

// EngineDay is one device's engine-hour accumulation for a day.
type EngineDay struct {
	Device           string    `json:"device"`
	Date             time.Time `json:"date,omitempty"`
	DailyHoursSec    int       `json:"daily_hours_sec"`
	LifetimeHoursSec int       `json:"lifetime_hours_sec"`
}

// IdleInterval is one engine-idle interval.
type IdleInterval struct {
	Device      string    `json:"device"`
	StartTime   time.Time `json:"start_time,omitempty"`
	DurationSec int       `json:"duration_sec"`
}

// AlertRecord is one driving alert (harsh braking, speeding, etc).
type AlertRecord struct {
	Device      string    `json:"device"`
	AlertType   string    `json:"alert_type"`
	Time        time.Time `json:"time,omitempty"`
	PostedSpeed float64   `json:"posted_speed"`
	Speed       float64   `json:"speed"`
}

// Classification carries the per-job labels with the tier each one was
// derived at, so metrics can report strict and lenient counts separately.
type Classification struct {
	FirstTripComplete bool    `json:"first_trip_complete"`
	FTCTier           Tier    `json:"ftc_tier"`
	DiagnosticOnly    bool    `json:"diagnostic_only"`
	DiagnosticTier    Tier    `json:"diagnostic_tier"`
	Recall            bool    `json:"recall"`
	RecallTier        Tier    `json:"recall_tier"`
	Canceled          bool    `json:"canceled"`
	CancelTier        Tier    `json:"cancel_tier"`
	CancelReason      string  `json:"cancel_reason"`
	CancelConfidence  float64 `json:"cancel_confidence"`
	JobType           string  `json:"job_type"`
	// TimeOnJobMin is mined from the work description; 0 means no
	// duration phrase was found.
	TimeOnJobMin float64 `json:"time_on_job_min"`
}

// Revenue is the sales-side money attributed to a linked row.
type Revenue struct {
	Labor       float64 `json:"labor"`
	Parts       float64 `json:"parts"`
	SCall       float64 `json:"scall"`
	Merchandise float64 `json:"merchandise"`
	Total       float64 `json:"total"`
}

// GpsMatch is the best GPS stop correlated to a job, if any.
type GpsMatch struct {
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	DurationMin float64   `json:"duration_min"`
	Address     string    `json:"address"`
	Confidence  int       `json:"confidence"`
}

// LinkedJob is one output row of the record linker: a job joined to its
// sales rows, or an orphan sale with no job side. Left-join semantics per
// the linker contract; nothing is dropped.
type LinkedJob struct {
	Job          JobRecord      `json:"job"`
	Sales        []SalesRecord  `json:"sales,omitempty"`
	Class        Classification `json:"class"`
	LinkStatus   string         `json:"link_status"`
	TechMismatch bool           `json:"tech_mismatch"`
	SalesTech    string         `json:"sales_tech,omitempty"`
	Revenue      Revenue        `json:"revenue"`
	GPS          *GpsMatch      `json:"gps,omitempty"`
}

// Technician returns the canonical technician code for the row, falling
// back to the sales side for orphan rows.
func (lj *LinkedJob) Technician() string {
	if lj.LinkStatus == LinkOrphan {
		if lj.SalesTech != "" {
			return lj.SalesTech
		}
		return Unknown
	}
	return lj.Job.TechCode
}
