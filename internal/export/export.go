// Package export renders a pipeline snapshot as CSV files, one per
// aggregate table, with stable column ordering so downstream spreadsheets
// survive re-runs.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/servicekpi/internal/etl"
	"github.com/servicekpi/internal/metrics"
	"github.com/servicekpi/internal/model"
)

// Table names accepted by WriteTable. Each becomes <name>.csv on disk.
const (
	TableKPIs          = "technician_kpis"
	TableCancellations = "cancellation_reasons"
	TableDriving       = "driving_scores"
	TableIdle          = "vehicle_idle"
	TableOrphans       = "review_orphan_sales"
	TableMismatches    = "review_tech_mismatches"
	TableJobs          = "linked_jobs"
)

// Tables lists every exportable table in write order.
func Tables() []string {
	return []string{
		TableKPIs,
		TableCancellations,
		TableDriving,
		TableIdle,
		TableOrphans,
		TableMismatches,
		TableJobs,
	}
}

// Writer renders one snapshot's tables as CSV.
type Writer struct {
	snap *etl.Snapshot
}

// NewWriter creates a writer over the given snapshot.
func NewWriter(snap *etl.Snapshot) *Writer {
	return &Writer{snap: snap}
}

// ExportAll writes every table into dir and returns the file paths written.
func (w *Writer) ExportAll(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	paths := make([]string, 0, len(Tables()))
	for _, table := range Tables() {
		path := filepath.Join(dir, table+".csv")
		if err := w.exportFile(path, table); err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", table, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (w *Writer) exportFile(path, table string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()
	return w.WriteTable(file, table)
}

// WriteTable streams one named table as CSV.
func (w *Writer) WriteTable(out io.Writer, table string) error {
	cw := csv.NewWriter(out)
	switch table {
	case TableKPIs:
		w.writeKPIs(cw)
	case TableCancellations:
		w.writeCancellations(cw)
	case TableDriving:
		w.writeDriving(cw)
	case TableIdle:
		w.writeIdle(cw)
	case TableOrphans:
		w.writeOrphans(cw)
	case TableMismatches:
		w.writeMismatches(cw)
	case TableJobs:
		w.writeJobs(cw)
	default:
		return fmt.Errorf("unknown export table %q", table)
	}
	cw.Flush()
	return cw.Error()
}

// writeKPIs joins the revenue and performance tables per technician. A
// technician present only through orphan sales has revenue but no
// performance columns.
func (w *Writer) writeKPIs(cw *csv.Writer) {
	cw.Write([]string{
		"Technician", "Rows", "Jobs", "Canceled",
		"Total_Revenue", "Labor", "Parts", "Service_Call", "Merchandise",
		"Revenue_Per_Job", "Parts_To_Labor", "Profit_Proxy", "Expected_Service_Call",
		"FTC_Rate", "FTC_Strict", "FTC_Lenient", "Meets_FTC_Goal",
		"Diagnostic_Rate", "Diagnostic_Strict", "Diagnostic_Lenient", "In_Diagnostic_Band",
		"Recall_Rate", "Recall_Strict", "Recall_Lenient", "Meets_Recall_Goal",
		"Cancel_Rate",
	})

	perf := make(map[string]int, len(w.snap.Performance))
	for i, p := range w.snap.Performance {
		perf[p.Tech] = i
	}
	cancel := make(map[string]float64, len(w.snap.Cancellations))
	for _, c := range w.snap.Cancellations {
		cancel[c.Tech] = c.Rate
	}

	for _, r := range w.snap.Revenue {
		row := []string{
			r.Tech,
			strconv.Itoa(r.Rows),
			"0", "0",
			formatFloat(r.Total),
			formatFloat(r.Labor),
			formatFloat(r.Parts),
			formatFloat(r.SCall),
			formatFloat(r.Merchandise),
			formatFloat(r.RevenuePerJob),
			formatFloat(r.PartsToLabor),
			formatFloat(r.ProfitProxy),
			formatFloat(r.ExpectedSCall),
			"", "", "", "",
			"", "", "", "",
			"", "", "", "",
			"",
		}
		if i, ok := perf[r.Tech]; ok {
			p := w.snap.Performance[i]
			row[2] = strconv.Itoa(p.Jobs)
			row[3] = strconv.Itoa(p.Canceled)
			row[13] = formatFloat(p.FTCRate)
			row[14] = strconv.Itoa(p.FTCStrict)
			row[15] = strconv.Itoa(p.FTCLenient)
			row[16] = strconv.FormatBool(p.MeetsFTCGoal)
			row[17] = formatFloat(p.DiagRate)
			row[18] = strconv.Itoa(p.DiagStrict)
			row[19] = strconv.Itoa(p.DiagLenient)
			row[20] = strconv.FormatBool(p.InDiagBand)
			row[21] = formatFloat(p.RecallRate)
			row[22] = strconv.Itoa(p.RecallStrict)
			row[23] = strconv.Itoa(p.RecallLenient)
			row[24] = strconv.FormatBool(p.MeetsRecallGoal)
		}
		if rate, ok := cancel[r.Tech]; ok {
			row[25] = formatFloat(rate)
		}
		cw.Write(row)
	}
}

// writeCancellations emits the reason breakdown in long format, company
// scope first, then per technician.
func (w *Writer) writeCancellations(cw *csv.Writer) {
	cw.Write([]string{"Scope", "Jobs", "Canceled", "Cancel_Rate", "Reason", "Count", "Share"})

	company := w.snap.Company
	writeReasonRows(cw, "COMPANY", company.Jobs, company.Canceled, company.Rate, company.Reasons)
	for _, c := range w.snap.Cancellations {
		writeReasonRows(cw, c.Tech, c.Jobs, c.Canceled, c.Rate, c.Reasons)
	}
}

func writeReasonRows(cw *csv.Writer, scope string, jobs, canceled int, rate float64, reasons []metrics.ReasonCount) {
	if len(reasons) == 0 {
		cw.Write([]string{scope, strconv.Itoa(jobs), strconv.Itoa(canceled), formatFloat(rate), "", "0", ""})
		return
	}
	for _, rc := range reasons {
		cw.Write([]string{
			scope,
			strconv.Itoa(jobs),
			strconv.Itoa(canceled),
			formatFloat(rate),
			rc.Reason,
			strconv.Itoa(rc.Count),
			formatFloat(rc.Share),
		})
	}
}

func (w *Writer) writeDriving(cw *csv.Writer) {
	days := w.windowDays()
	header := []string{"Technician", "Alerts", "Penalty", "Score", "Category"}
	for _, d := range days {
		header = append(header, fmt.Sprintf("Alerts_%dd", d))
	}
	header = append(header, "Alert_Breakdown")
	cw.Write(header)

	for _, s := range w.snap.Driving {
		row := []string{
			s.Tech,
			strconv.Itoa(s.Alerts),
			formatFloat(s.Penalty),
			formatFloat(s.Score),
			s.Category,
		}
		for _, d := range days {
			row = append(row, strconv.Itoa(s.Windows[d]))
		}
		row = append(row, alertBreakdown(s.Counts))
		cw.Write(row)
	}
}

func (w *Writer) writeIdle(cw *csv.Writer) {
	cw.Write([]string{
		"Device", "Events", "Total_Hours", "Avg_Sec", "Median_Sec", "Max_Sec",
		"Span_Days", "Avg_Hours_Per_Day",
	})
	for _, s := range w.snap.Idle {
		cw.Write([]string{
			s.Device,
			strconv.Itoa(s.Events),
			formatFloat(s.TotalHours),
			formatFloat(s.AvgSec),
			formatFloat(s.MedianSec),
			strconv.Itoa(s.MaxSec),
			strconv.Itoa(s.SpanDays),
			formatFloat(s.AvgHoursPerDay),
		})
	}
}

func (w *Writer) writeOrphans(cw *csv.Writer) {
	cw.Write([]string{
		"Invoice", "Technician", "Customer", "Date_Recorded", "Sales_Rows",
		"Labor", "Parts", "Service_Call", "Merchandise", "Total",
	})
	for i := range w.snap.Rows {
		lj := &w.snap.Rows[i]
		if lj.LinkStatus != model.LinkOrphan {
			continue
		}
		var customer, date string
		if len(lj.Sales) > 0 {
			customer = lj.Sales[0].CustomerName
			date = formatTime(lj.Sales[0].DateRecorded)
		}
		cw.Write([]string{
			lj.Job.JobNumber,
			lj.Technician(),
			customer,
			date,
			strconv.Itoa(len(lj.Sales)),
			formatFloat(lj.Revenue.Labor),
			formatFloat(lj.Revenue.Parts),
			formatFloat(lj.Revenue.SCall),
			formatFloat(lj.Revenue.Merchandise),
			formatFloat(lj.Revenue.Total),
		})
	}
}

func (w *Writer) writeMismatches(cw *csv.Writer) {
	cw.Write([]string{
		"Job_Number", "Job_Tech", "Sales_Tech", "Status", "First_Appointment",
		"Customer", "Total_Sale",
	})
	for i := range w.snap.Rows {
		lj := &w.snap.Rows[i]
		if !lj.TechMismatch {
			continue
		}
		var customer string
		if len(lj.Sales) > 0 {
			customer = lj.Sales[0].CustomerName
		}
		cw.Write([]string{
			lj.Job.JobNumber,
			lj.Job.TechCode,
			lj.SalesTech,
			lj.Job.Status,
			formatTime(lj.Job.FirstAppmnt),
			customer,
			formatFloat(lj.Revenue.Total),
		})
	}
}

func (w *Writer) writeJobs(cw *csv.Writer) {
	cw.Write([]string{
		"Job_Number", "Link_Status", "Technician", "Sales_Tech", "Tech_Mismatch",
		"Status", "Origin_Date", "First_Appointment", "Completion_Date", "Visits",
		"Job_Type", "First_Trip_Complete", "FTC_Tier",
		"Diagnostic_Only", "Diagnostic_Tier", "Recall", "Recall_Tier",
		"Canceled", "Cancel_Reason", "Cancel_Confidence", "Time_On_Job_Min",
		"Appliance", "Make", "Model", "Service_Address", "City", "Zip",
		"Labor", "Parts", "Service_Call", "Merchandise", "Total_Revenue",
		"GPS_Confidence", "GPS_Duration_Min", "GPS_Address",
	})
	for i := range w.snap.Rows {
		lj := &w.snap.Rows[i]
		row := []string{
			lj.Job.JobNumber,
			lj.LinkStatus,
			lj.Technician(),
			lj.SalesTech,
			strconv.FormatBool(lj.TechMismatch),
			lj.Job.Status,
			formatTime(lj.Job.OriginDate),
			formatTime(lj.Job.FirstAppmnt),
			formatTime(lj.Job.CmpltnDate),
			strconv.Itoa(lj.Job.HowManyVisits),
			lj.Class.JobType,
			strconv.FormatBool(lj.Class.FirstTripComplete),
			string(lj.Class.FTCTier),
			strconv.FormatBool(lj.Class.DiagnosticOnly),
			string(lj.Class.DiagnosticTier),
			strconv.FormatBool(lj.Class.Recall),
			string(lj.Class.RecallTier),
			strconv.FormatBool(lj.Class.Canceled),
			lj.Class.CancelReason,
			formatFloat(lj.Class.CancelConfidence),
			formatFloat(lj.Class.TimeOnJobMin),
			lj.Job.ApplianceType,
			lj.Job.Make,
			lj.Job.Model,
			lj.Job.ServiceAddress,
			lj.Job.City,
			lj.Job.Zip,
			formatFloat(lj.Revenue.Labor),
			formatFloat(lj.Revenue.Parts),
			formatFloat(lj.Revenue.SCall),
			formatFloat(lj.Revenue.Merchandise),
			formatFloat(lj.Revenue.Total),
			"", "", "",
		}
		if lj.GPS != nil {
			row[32] = strconv.Itoa(lj.GPS.Confidence)
			row[33] = formatFloat(lj.GPS.DurationMin)
			row[34] = lj.GPS.Address
		}
		cw.Write(row)
	}
}

// windowDays returns the alert-window spans actually present, ascending,
// so the driving header stays stable for a given configuration.
func (w *Writer) windowDays() []int {
	seen := map[int]bool{}
	for _, s := range w.snap.Driving {
		for d := range s.Windows {
			seen[d] = true
		}
	}
	days := make([]int, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}

func alertBreakdown(counts map[string]int) string {
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%s:%d", t, counts[t]))
	}
	return strings.Join(parts, "|")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
