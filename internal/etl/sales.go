package etl

import (
	"github.com/servicekpi/internal/model"
)

// LoadSales reads the sales journal. Rows with neither an invoice number
// nor a technician carry nothing linkable and are skipped with a warning.
func (ing *Ingestor) LoadSales(path string) ([]model.SalesRecord, *LoadReport, error) {
	table, err := ReadTable(path)
	if err != nil {
		return nil, nil, err
	}
	if err := table.Require("invoicenumber", "technician"); err != nil {
		return nil, nil, err
	}

	report := newLoadReport(path, table)
	co := &Coercer{}
	sales := make([]model.SalesRecord, 0, len(table.Rows))

	for i, row := range table.Rows {
		invoice := table.Get(row, "invoicenumber")
		tech := table.Get(row, "technician")
		if invoice == "" && tech == "" {
			report.warnf("row %d: no invoice number or technician", i+2)
			continue
		}

		sales = append(sales, model.SalesRecord{
			DateRecorded:    co.Timestamp(table.Get(row, "daterecorded")),
			Technician:      tech,
			CustomerName:    table.Get(row, "customername"),
			InvoiceNumber:   invoice,
			MerchandiseSold: co.Number(table.Get(row, "merchandisesold")),
			PartsSold:       co.Number(table.Get(row, "partssold")),
			SCallSold:       co.Number(table.Get(row, "scallsold")),
			LaborSold:       co.Number(table.Get(row, "laborsold")),
			ImpliedTax:      co.Number(table.Get(row, "impliedtax")),
			TotalSale:       co.Number(table.Get(row, "totalsale")),
			PayCode:         table.Get(row, "paycode"),
			Department:      table.Get(row, "department"),
		})
		ing.progress(path, len(sales))
	}

	report.Loaded = len(sales)
	report.Coercions = co.Stats
	return sales, report, nil
}
