package etl

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// progressInterval is how many loaded rows between progress log lines.
const progressInterval = 1000

// Table is one CSV file read into memory, with a lowercased header map
// for case-insensitive column access.
type Table struct {
	Header   []string
	Rows     [][]string
	Encoding string
	Warnings []string

	columns map[string]int
}

// ReadTable reads a CSV file through the encoding fallback. Ragged rows
// are padded or truncated to the header width and recorded as warnings;
// unreadable rows are skipped the same way. Only an unreadable file or
// header is an error.
func ReadTable(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	data, encName := DecodeFallback(raw)

	r := csv.NewReader(strings.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	t := &Table{
		Header:   header,
		Encoding: encName,
		columns:  make(map[string]int, len(header)),
	}
	for i, col := range header {
		t.columns[strings.ToLower(strings.TrimSpace(col))] = i
	}

	line := 1
	for {
		record, err := r.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Warnings = append(t.Warnings, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if len(record) != len(header) {
			t.Warnings = append(t.Warnings, fmt.Sprintf("line %d: %d fields, want %d", line, len(record), len(header)))
			for len(record) < len(header) {
				record = append(record, "")
			}
			record = record[:len(header)]
		}
		t.Rows = append(t.Rows, record)
	}
	return t, nil
}

// Get returns the trimmed cell for a column, or "" when the column does
// not exist.
func (t *Table) Get(row []string, column string) string {
	if idx, ok := t.columns[strings.ToLower(column)]; ok && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

// HasColumn reports whether the header contains the column.
func (t *Table) HasColumn(column string) bool {
	_, ok := t.columns[strings.ToLower(column)]
	return ok
}

// Require returns a structural error naming every missing column.
func (t *Table) Require(columns ...string) error {
	var missing []string
	for _, col := range columns {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// RequireAny returns a structural error unless at least one of the given
// columns exists. Used for columns renamed across export vintages.
func (t *Table) RequireAny(columns ...string) error {
	for _, col := range columns {
		if t.HasColumn(col) {
			return nil
		}
	}
	return fmt.Errorf("missing required column (any of: %s)", strings.Join(columns, ", "))
}

// LoadReport summarizes one file load for the run metadata and the
// verify command.
type LoadReport struct {
	File      string      `json:"file"`
	Encoding  string      `json:"encoding"`
	Rows      int         `json:"rows"`
	Loaded    int         `json:"loaded"`
	Skipped   int         `json:"skipped"`
	Coercions CoerceStats `json:"coercions"`
	Warnings  []string    `json:"warnings,omitempty"`
}

func newLoadReport(path string, t *Table) *LoadReport {
	return &LoadReport{
		File:     path,
		Encoding: t.Encoding,
		Rows:     len(t.Rows),
		Warnings: append([]string(nil), t.Warnings...),
	}
}

func (r *LoadReport) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
	r.Skipped++
}

// Ingestor loads the source files into typed records.
type Ingestor struct {
	log *logrus.Logger
}

// NewIngestor returns an ingestor logging through the given logger.
func NewIngestor(log *logrus.Logger) *Ingestor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Ingestor{log: log}
}

func (ing *Ingestor) progress(path string, loaded int) {
	if loaded > 0 && loaded%progressInterval == 0 {
		ing.log.Debugf("loaded %d rows from %s", loaded, path)
	}
}
