package etl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/servicekpi/internal/classify"
	"github.com/servicekpi/internal/config"
	"github.com/servicekpi/internal/identity"
	"github.com/servicekpi/internal/link"
	"github.com/servicekpi/internal/match"
	"github.com/servicekpi/internal/metrics"
	"github.com/servicekpi/internal/model"
	"github.com/servicekpi/internal/normalize"
)

// RunOptions narrows one pipeline run. Zero values mean no filtering.
type RunOptions struct {
	From  time.Time
	To    time.Time
	Techs []string

	// Progress, when set, is called once per row during the linking and
	// classification phase.
	Progress func(done, total int)
}

// Snapshot is the full result of one pipeline run: every linked row plus
// the aggregate tables the exports and the API serve.
type Snapshot struct {
	RunID       string    `json:"run_id"`
	CreatedAt   time.Time `json:"created_at"`
	Fingerprint string    `json:"fingerprint"`

	Rows      []model.LinkedJob `json:"rows"`
	LinkStats link.LinkStats    `json:"link_stats"`
	GPSLinked int               `json:"gps_linked"`

	Revenue       []metrics.TechRevenue       `json:"revenue"`
	Performance   []metrics.TechPerformance   `json:"performance"`
	Cancellations []metrics.TechCancellation  `json:"cancellations"`
	Company       metrics.CancellationSummary `json:"company_cancellation"`
	Driving       []metrics.DrivingScore      `json:"driving"`
	Idle          []metrics.IdleStats         `json:"idle"`

	Loads    []*LoadReport `json:"loads"`
	Warnings []string      `json:"warnings,omitempty"`
}

// Pipeline wires the loaders, normalizers, linker, classifier, and
// metrics engine into one run, memoizing the result per input dataset.
type Pipeline struct {
	cfg *config.Config
	log *logrus.Logger
	ing *Ingestor

	techs      *normalize.TechNormalizer
	addrRules  *normalize.AddressRules
	appliances *normalize.ApplianceNormalizer
	ids        *identity.Map
	matcher    *match.Matcher
	classifier *classify.Classifier
	linker     *link.Linker
	engine     *metrics.Engine

	mu       sync.Mutex
	cacheKey string
	cached   *Snapshot
}

// NewPipeline builds a pipeline from the configuration.
func NewPipeline(cfg *config.Config, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	t := cfg.Tables

	valid := make([]string, 0, len(t.TechMapping)+len(t.StaffNoGPS))
	for _, code := range t.TechMapping {
		valid = append(valid, code)
	}
	for code := range t.StaffNoGPS {
		valid = append(valid, code)
	}

	techs := normalize.NewTechNormalizer(t.TechVariants, valid)
	addrRules := normalize.NewAddressRules(t.AddressAbbrevs, t.CountrySuffixes)

	return &Pipeline{
		cfg:        cfg,
		log:        log,
		ing:        NewIngestor(log),
		techs:      techs,
		addrRules:  addrRules,
		appliances: normalize.NewApplianceNormalizer(t.ApplianceCategories),
		ids:        identity.NewMap(t.TechMapping, t.StaffNoGPS),
		matcher:    match.NewMatcher(addrRules, cfg.Matching.ShortAddressLen, cfg.Matching.ShortAddressPenalty),
		classifier: classify.NewClassifier(classify.Tables{
			DiagnosticKeywords: t.DiagnosticKeywords,
			RecallKeywords:     t.RecallKeywords,
			CompletedStatuses:  t.CompletedStatuses,
			CancelCategories:   t.CancelCategories,
			CancelMarkers:      t.CancelMarkers,
		}),
		linker: link.NewLinker(techs),
		engine: metrics.NewEngine(cfg),
	}
}

// SourcePaths lists every configured input file, required ones first.
func (p *Pipeline) SourcePaths() []string {
	d := p.cfg.Data
	paths := []string{
		filepath.Join(d.Dir, d.JobsFile),
		filepath.Join(d.Dir, d.SalesFile),
	}
	kinds := make([]string, 0, len(d.GPSFiles))
	for kind := range d.GPSFiles {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		paths = append(paths, filepath.Join(d.Dir, d.GPSFiles[kind]))
	}
	return paths
}

// Run executes the pipeline. Jobs and sales are required; each missing
// GPS file only skips its enrichment. An unchanged dataset with unchanged
// options returns the memoized snapshot.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Snapshot, error) {
	fp, err := Fingerprint(p.SourcePaths())
	if err != nil {
		return nil, err
	}
	key := fp + "|" + optionsKey(opts, p.techs)

	p.mu.Lock()
	if p.cached != nil && p.cacheKey == key {
		snap := p.cached
		p.mu.Unlock()
		p.log.WithField("run_id", snap.RunID).Debug("dataset unchanged, serving cached snapshot")
		return snap, nil
	}
	p.mu.Unlock()

	snap, err := p.compute(ctx, opts, fp)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cacheKey = key
	p.cached = snap
	p.mu.Unlock()
	return snap, nil
}

// Invalidate drops the memoized snapshot so the next Run recomputes.
func (p *Pipeline) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.cacheKey = ""
	p.mu.Unlock()
}

func (p *Pipeline) compute(ctx context.Context, opts RunOptions, fp string) (*Snapshot, error) {
	d := p.cfg.Data
	jobsPath := filepath.Join(d.Dir, d.JobsFile)
	salesPath := filepath.Join(d.Dir, d.SalesFile)

	var (
		jobs     []model.JobRecord
		sales    []model.SalesRecord
		jobsRep  *LoadReport
		salesRep *LoadReport

		gpsMu      sync.Mutex
		gps        GPSData
		gpsReports []*LoadReport
		warnings   []string
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		jobs, jobsRep, err = p.ing.LoadJobs(jobsPath)
		if err != nil {
			return fmt.Errorf("job report: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sales, salesRep, err = p.ing.LoadSales(salesPath)
		if err != nil {
			return fmt.Errorf("sales journal: %w", err)
		}
		return nil
	})
	for kind, file := range d.GPSFiles {
		kind, path := GPSKind(kind), filepath.Join(d.Dir, file)
		g.Go(func() error {
			if _, err := os.Stat(path); err != nil {
				msg := fmt.Sprintf("GPS %s file %s unavailable, skipping its enrichment", kind, path)
				p.log.Warn(msg)
				gpsMu.Lock()
				warnings = append(warnings, msg)
				gpsMu.Unlock()
				return nil
			}
			data, rep, err := p.ing.LoadGPS(kind, path)
			if err != nil {
				msg := fmt.Sprintf("GPS %s file %s unreadable (%v), skipping its enrichment", kind, path, err)
				p.log.Warn(msg)
				gpsMu.Lock()
				warnings = append(warnings, msg)
				gpsMu.Unlock()
				return nil
			}
			gpsMu.Lock()
			gps.Merge(data)
			gpsReports = append(gpsReports, rep)
			gpsMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	jobs, sales = p.filter(jobs, sales, opts)

	for i := range jobs {
		jobs[i].ServiceAddress = p.addrRules.Normalize(jobs[i].ServiceAddress)
		jobs[i].ApplianceType = p.appliances.Normalize(jobs[i].ApplianceType)
		if jobs[i].Zip == "" {
			jobs[i].Zip = normalize.ExtractZipCode(jobs[i].ServiceAddress)
		}
	}

	rows, stats := p.linker.Link(jobs, sales)
	p.log.WithFields(logrus.Fields{
		"matched":      stats.Matched,
		"unreconciled": stats.Unreconciled,
		"orphans":      stats.Orphans,
		"mismatches":   stats.TechMismatches,
	}).Info("record linking complete")

	for i := range rows {
		if rows[i].LinkStatus != model.LinkOrphan {
			rows[i].Class = p.classifier.Classify(rows[i].Job, rows[i].Revenue)
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(rows))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gpsLinked := link.CorrelateGPS(rows, gps.Segments, p.ids, p.matcher, p.cfg.Matching)
	alertsByTech := link.AttachAlerts(gps.Alerts, p.ids)

	snap := &Snapshot{
		RunID:       uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Fingerprint: fp,

		Rows:      rows,
		LinkStats: stats,
		GPSLinked: gpsLinked,

		Revenue:       p.engine.Revenue(rows),
		Performance:   p.engine.Performance(rows),
		Cancellations: p.engine.Cancellations(rows),
		Company:       p.engine.CompanyCancellation(rows),
		Driving:       p.engine.DrivingScores(alertsByTech),
		Idle:          p.engine.IdleAnalysis(gps.Idle),

		Loads:    append([]*LoadReport{jobsRep, salesRep}, gpsReports...),
		Warnings: warnings,
	}
	p.log.WithFields(logrus.Fields{
		"run_id": snap.RunID,
		"rows":   len(snap.Rows),
		"gps":    gpsLinked,
	}).Info("pipeline run complete")
	return snap, nil
}

// filter applies the optional date range and technician set. Jobs date
// on origin date, falling back to the first appointment; sales date on
// the journal record date.
func (p *Pipeline) filter(jobs []model.JobRecord, sales []model.SalesRecord, opts RunOptions) ([]model.JobRecord, []model.SalesRecord) {
	if !opts.From.IsZero() || !opts.To.IsZero() {
		kept := jobs[:0]
		for _, job := range jobs {
			when := job.OriginDate
			if when.IsZero() {
				when = job.FirstAppmnt
			}
			if inRange(when, opts.From, opts.To) {
				kept = append(kept, job)
			}
		}
		jobs = kept

		keptSales := sales[:0]
		for _, s := range sales {
			if inRange(s.DateRecorded, opts.From, opts.To) {
				keptSales = append(keptSales, s)
			}
		}
		sales = keptSales
	}

	if len(opts.Techs) > 0 {
		want := make(map[string]bool, len(opts.Techs))
		for _, tech := range opts.Techs {
			want[p.techs.Normalize(tech)] = true
		}
		kept := jobs[:0]
		for _, job := range jobs {
			if want[p.techs.Normalize(job.TechCode)] {
				kept = append(kept, job)
			}
		}
		jobs = kept

		keptSales := sales[:0]
		for _, s := range sales {
			if want[p.techs.Normalize(s.Technician)] {
				keptSales = append(keptSales, s)
			}
		}
		sales = keptSales
	}

	return jobs, sales
}

func inRange(when, from, to time.Time) bool {
	if when.IsZero() {
		return false
	}
	if !from.IsZero() && when.Before(from) {
		return false
	}
	if !to.IsZero() && when.After(to) {
		return false
	}
	return true
}

func optionsKey(opts RunOptions, techs *normalize.TechNormalizer) string {
	normalized := make([]string, 0, len(opts.Techs))
	for _, tech := range opts.Techs {
		normalized = append(normalized, techs.Normalize(tech))
	}
	sort.Strings(normalized)
	return opts.From.Format(time.RFC3339) + "|" + opts.To.Format(time.RFC3339) + "|" + strings.Join(normalized, ",")
}
