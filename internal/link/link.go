package link

import (
	"strings"

	"github.com/servicekpi/internal/model"
	"github.com/servicekpi/internal/normalize"
)

// LinkStats summarizes one linking pass for the run metadata.
type LinkStats struct {
	Jobs           int `json:"jobs"`
	Sales          int `json:"sales"`
	DuplicateSales int `json:"duplicate_sales"`
	Matched        int `json:"matched"`
	Unreconciled   int `json:"unreconciled"`
	Orphans        int `json:"orphans"`
	TechMismatches int `json:"tech_mismatches"`
}

// Linker joins job records to sales-journal rows on invoice number.
type Linker struct {
	techs *normalize.TechNormalizer
}

// NewLinker returns a linker normalizing technician identifiers with the
// given normalizer.
func NewLinker(techs *normalize.TechNormalizer) *Linker {
	return &Linker{techs: techs}
}

// Link joins jobs to sales. The join key is the invoice number, exact
// after trim and case-fold; the technician is secondary validation only,
// so an invoice match with technician disagreement still links but is
// flagged for review. Left-outer from the job side: jobs without sales
// come back unreconciled, sales without jobs come back as orphan rows.
// Nothing is dropped.
//
// On matched rows the sales side is the money truth and the job-side
// material/labor amounts are zeroed so revenue is never counted twice.
func (l *Linker) Link(jobs []model.JobRecord, sales []model.SalesRecord) ([]model.LinkedJob, LinkStats) {
	stats := LinkStats{Jobs: len(jobs), Sales: len(sales)}

	type dedupeKey struct {
		tech    string
		invoice string
	}
	seen := make(map[dedupeKey]bool, len(sales))
	byInvoice := make(map[string][]model.SalesRecord)
	var invoiceOrder []string
	var noInvoice []model.SalesRecord

	// The journal repeats a row when a ticket is reprinted; keep the
	// first occurrence per (technician, invoice).
	for _, s := range sales {
		s.Technician = l.techs.Normalize(s.Technician)
		inv := invoiceKey(s.InvoiceNumber)
		if inv == "" {
			noInvoice = append(noInvoice, s)
			continue
		}
		k := dedupeKey{s.Technician, inv}
		if seen[k] {
			stats.DuplicateSales++
			continue
		}
		seen[k] = true
		if _, ok := byInvoice[inv]; !ok {
			invoiceOrder = append(invoiceOrder, inv)
		}
		byInvoice[inv] = append(byInvoice[inv], s)
	}

	matched := make(map[string]bool, len(jobs))
	out := make([]model.LinkedJob, 0, len(jobs)+len(byInvoice))

	for _, job := range jobs {
		job.TechCode = l.techs.Normalize(job.TechCode)
		lj := model.LinkedJob{Job: job}

		inv := invoiceKey(job.JobNumber)
		rows := byInvoice[inv]
		if len(rows) == 0 {
			lj.LinkStatus = model.LinkUnreconciled
			stats.Unreconciled++
			out = append(out, lj)
			continue
		}

		matched[inv] = true
		lj.LinkStatus = model.LinkMatched
		lj.Sales = rows
		lj.SalesTech = rows[0].Technician
		for _, s := range rows {
			addRevenue(&lj.Revenue, s)
			if s.Technician != job.TechCode {
				lj.TechMismatch = true
			}
		}
		lj.Job.TotalMaterialInSale = 0
		lj.Job.TotalLaborInSale = 0

		stats.Matched++
		if lj.TechMismatch {
			stats.TechMismatches++
		}
		out = append(out, lj)
	}

	// Unconsumed invoices surface as orphan rows, keyed by the invoice
	// in the job-number position, in first-appearance order.
	for _, inv := range invoiceOrder {
		if matched[inv] {
			continue
		}
		rows := byInvoice[inv]
		lj := model.LinkedJob{
			Job:        model.JobRecord{JobNumber: rows[0].InvoiceNumber},
			Sales:      rows,
			LinkStatus: model.LinkOrphan,
			SalesTech:  rows[0].Technician,
		}
		for _, s := range rows {
			addRevenue(&lj.Revenue, s)
		}
		stats.Orphans++
		out = append(out, lj)
	}
	for _, s := range noInvoice {
		lj := model.LinkedJob{
			Sales:      []model.SalesRecord{s},
			LinkStatus: model.LinkOrphan,
			SalesTech:  s.Technician,
		}
		addRevenue(&lj.Revenue, s)
		stats.Orphans++
		out = append(out, lj)
	}

	return out, stats
}

func addRevenue(r *model.Revenue, s model.SalesRecord) {
	r.Labor += s.LaborSold
	r.Parts += s.PartsSold
	r.SCall += s.SCallSold
	r.Merchandise += s.MerchandiseSold
	r.Total += s.TotalSale
}

func invoiceKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
