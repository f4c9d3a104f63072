package etl

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/servicekpi/internal/config"
	"github.com/servicekpi/internal/model"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// writeDataDir lays out a small but complete dataset: two jobs, a sales
// row for one of them, an orphan sale, one on-site GPS stop, and one
// driving alert. The engine-hour, idle, and day-span files are absent on
// purpose.
func writeDataDir(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"Type6report.csv": "JobNumber,Status,TechCode,OriginDate,FirstAppmnt,HowManyVisits,CompletedOnFirstTrip,JobCanceled,WorkDescription,TotalMaterialInSale,TotalLaborInSale,Type,ServiceAddress,City,Zip\n" +
			"1001,Completed,BB,1/2/2024,1/5/2024 9:00 AM,1,Yes,No,Replaced drain pump,40,100,Washer,123 Main Street,Napa,94558\n" +
			"1002,Scheduled,JS,1/3/2024,1/6/2024 10:00 AM,0,No,No,Waiting on part,10,0,Dryer,456 Oak Avenue,Sonoma,95476\n",
		"SlsJrnl.csv": "DateRecorded,Technician,CustomerName,InvoiceNumber,MerchandiseSold,PartsSold,SCallSold,LaborSold,ImpliedTax,TotalSale,PayCode,Department\n" +
			"1/5/2024,bb ,SMITH,1001,0,40,0,110,0,150,CC,Service\n" +
			"1/4/2024,JD,ORPHAN CO,9999,0,0,75,0,0,75,CC,Service\n",
		"drives_stops.csv": "Device,Status,Start Time,End Time,Duration,Address,Length (mi),Top Speed (mph),Avg Speed (mph)\n" +
			`Bianca,Stopped,1/5/2024 8:55 AM PST,1/5/2024 9:40 AM PST,0:45:00,"123 Main St, Napa, CA 94558, USA",0,0,0` + "\n",
		"alert_summary.csv": "Device,Date & Time,Alert Type,Posted Speed,Speed\n" +
			"Bianca,1/5/2024 2:15 PM PST,Harsh Braking,,\n",
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	cfg := config.Default()
	cfg.Data.Dir = dir
	return cfg
}

func TestPipelineRun(t *testing.T) {
	cfg := writeDataDir(t)
	p := NewPipeline(cfg, quietLogger())

	snap, err := p.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// One row per job plus the orphan sale.
	if len(snap.Rows) != 3 {
		t.Fatalf("len(Rows) = %d, want 3", len(snap.Rows))
	}

	var linked, unreconciled, orphan *model.LinkedJob
	for i := range snap.Rows {
		switch snap.Rows[i].Job.JobNumber {
		case "1001":
			linked = &snap.Rows[i]
		case "1002":
			unreconciled = &snap.Rows[i]
		case "9999":
			orphan = &snap.Rows[i]
		}
	}
	if linked == nil || unreconciled == nil || orphan == nil {
		t.Fatalf("rows missing: linked=%v unreconciled=%v orphan=%v", linked, unreconciled, orphan)
	}

	if linked.LinkStatus != model.LinkMatched {
		t.Errorf("1001 LinkStatus = %q, want %q", linked.LinkStatus, model.LinkMatched)
	}
	if linked.TechMismatch {
		t.Error(`1001 TechMismatch = true, want false ("bb " normalizes to BB)`)
	}
	if linked.Revenue.Total != 150 {
		t.Errorf("1001 Revenue.Total = %v, want 150", linked.Revenue.Total)
	}
	if !linked.Class.FirstTripComplete {
		t.Error("1001 FirstTripComplete = false, want true")
	}
	if linked.Job.ServiceAddress != "123 MAIN ST" {
		t.Errorf("1001 ServiceAddress = %q, want normalized %q", linked.Job.ServiceAddress, "123 MAIN ST")
	}
	if linked.Job.ApplianceType != "WASHER" {
		t.Errorf("1001 ApplianceType = %q, want WASHER", linked.Job.ApplianceType)
	}
	if linked.GPS == nil {
		t.Error("1001 GPS = nil, want the on-site stop attached")
	}
	if snap.GPSLinked != 1 {
		t.Errorf("GPSLinked = %d, want 1", snap.GPSLinked)
	}

	if unreconciled.LinkStatus != model.LinkUnreconciled {
		t.Errorf("1002 LinkStatus = %q, want %q", unreconciled.LinkStatus, model.LinkUnreconciled)
	}
	if orphan.LinkStatus != model.LinkOrphan || orphan.Technician() != "JD" {
		t.Errorf("9999 = %q tech %q, want orphan owned by JD", orphan.LinkStatus, orphan.Technician())
	}

	// Three GPS files are absent; each skips with a warning.
	if len(snap.Warnings) != 3 {
		t.Errorf("len(Warnings) = %d, want 3: %v", len(snap.Warnings), snap.Warnings)
	}
	if len(snap.Loads) != 4 {
		t.Errorf("len(Loads) = %d, want 4 (jobs, sales, stops, alerts)", len(snap.Loads))
	}

	if len(snap.Revenue) != 3 {
		t.Errorf("len(Revenue) = %d, want 3 technicians", len(snap.Revenue))
	}
	if len(snap.Performance) != 2 {
		t.Errorf("len(Performance) = %d, want 2 (orphan tech has no jobs)", len(snap.Performance))
	}
	if len(snap.Driving) != 1 || snap.Driving[0].Tech != "BB" || snap.Driving[0].Alerts != 1 {
		t.Errorf("Driving = %+v, want one BB row with one alert", snap.Driving)
	}
}

func TestPipelineCache(t *testing.T) {
	cfg := writeDataDir(t)
	p := NewPipeline(cfg, quietLogger())
	ctx := context.Background()

	first, err := p.Run(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	second, err := p.Run(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if second.RunID != first.RunID {
		t.Error("unchanged dataset produced a fresh snapshot, want the cached one")
	}

	p.Invalidate()
	third, err := p.Run(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if third.RunID == first.RunID {
		t.Error("Invalidate() did not force a recompute")
	}

	// Different options never reuse a cached snapshot.
	filtered, err := p.Run(ctx, RunOptions{Techs: []string{"BB"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if filtered.RunID == third.RunID {
		t.Error("filtered run reused the unfiltered snapshot")
	}
}

func TestPipelineFilters(t *testing.T) {
	cfg := writeDataDir(t)
	p := NewPipeline(cfg, quietLogger())
	ctx := context.Background()

	// Technician filter accepts any spelling the normalizer resolves.
	snap, err := p.Run(ctx, RunOptions{Techs: []string{"bianca"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(snap.Rows) != 1 || snap.Rows[0].Job.JobNumber != "1001" {
		t.Fatalf("tech filter rows = %d, want just job 1001", len(snap.Rows))
	}

	// Date filter: job 1001 originates 1/2, before the window opens, so
	// its sale comes back as an orphan.
	from := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	snap, err = p.Run(ctx, RunOptions{From: from})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if snap.LinkStats.Matched != 0 || snap.LinkStats.Unreconciled != 1 || snap.LinkStats.Orphans != 2 {
		t.Errorf("date-filtered stats = %+v, want 0 matched / 1 unreconciled / 2 orphans", snap.LinkStats)
	}
}

func TestPipelineMissingRequiredFile(t *testing.T) {
	cfg := config.Default()
	cfg.Data.Dir = t.TempDir()
	p := NewPipeline(cfg, quietLogger())

	_, err := p.Run(context.Background(), RunOptions{})
	if err == nil {
		t.Fatal("Run() error = nil, want failure for the missing job report")
	}
	if !strings.Contains(err.Error(), "job report") && !strings.Contains(err.Error(), "sales journal") {
		t.Errorf("error = %v, want it to name the missing required source", err)
	}
}
