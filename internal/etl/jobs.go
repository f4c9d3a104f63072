package etl

import (
	"github.com/servicekpi/internal/model"
)

// LoadJobs reads the Type6 job report. The job-number column is named
// InvNmbr or JobNumber depending on the export vintage; both are accepted.
func (ing *Ingestor) LoadJobs(path string) ([]model.JobRecord, *LoadReport, error) {
	table, err := ReadTable(path)
	if err != nil {
		return nil, nil, err
	}
	if err := table.RequireAny("jobnumber", "invnmbr"); err != nil {
		return nil, nil, err
	}
	if err := table.Require("status", "techcode"); err != nil {
		return nil, nil, err
	}

	report := newLoadReport(path, table)
	co := &Coercer{}
	jobs := make([]model.JobRecord, 0, len(table.Rows))

	for i, row := range table.Rows {
		number := table.Get(row, "jobnumber")
		if number == "" {
			number = table.Get(row, "invnmbr")
		}
		if number == "" {
			report.warnf("row %d: missing job number", i+2)
			continue
		}

		jobs = append(jobs, model.JobRecord{
			JobNumber:            number,
			Status:               table.Get(row, "status"),
			TechCode:             table.Get(row, "techcode"),
			OriginDate:           co.Timestamp(table.Get(row, "origindate")),
			FirstAppmnt:          co.Timestamp(table.Get(row, "firstappmnt")),
			CmpltnDate:           co.Timestamp(table.Get(row, "cmpltndate")),
			HowManyVisits:        co.Int(table.Get(row, "howmanyvisits")),
			CompletedOnFirstTrip: co.Bool(table.Get(row, "completedonfirsttrip")),
			JobCanceled:          co.Bool(table.Get(row, "jobcanceled")),
			WorkDescription:      table.Get(row, "workdescription"),
			TotalMaterialInSale:  co.Number(table.Get(row, "totalmaterialinsale")),
			TotalLaborInSale:     co.Number(table.Get(row, "totallaborinsale")),
			Make:                 table.Get(row, "make"),
			Model:                table.Get(row, "model"),
			ApplianceType:        table.Get(row, "type"),
			PayingParty:          table.Get(row, "payingparty"),
			Department:           table.Get(row, "department"),
			ServiceAddress:       table.Get(row, "serviceaddress"),
			City:                 table.Get(row, "city"),
			Zip:                  table.Get(row, "zip"),
		})
		ing.progress(path, len(jobs))
	}

	report.Loaded = len(jobs)
	report.Coercions = co.Stats
	return jobs, report, nil
}
