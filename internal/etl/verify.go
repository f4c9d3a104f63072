package etl

import (
	"path/filepath"
	"strings"
)

// VerifyReport is the data-quality summary for one file.
type VerifyReport struct {
	File       string         `json:"file"`
	Type       string         `json:"type"`
	Encoding   string         `json:"encoding"`
	Rows       int            `json:"rows"`
	Columns    []string       `json:"columns"`
	Missing    map[string]int `json:"missing_by_column"`
	Duplicates int            `json:"duplicate_rows"`
	Coercions  CoerceStats    `json:"coercions"`
	Warnings   []string       `json:"warnings,omitempty"`
}

// Verify loads a file by its declared or filename-detected type and
// reports row/column counts, per-column missing values, duplicate rows,
// and the coercion tallies of the typed load.
func (ing *Ingestor) Verify(path, declaredType string) (*VerifyReport, error) {
	fileType := declaredType
	if fileType == "" {
		fileType = DetectFileType(path)
	}

	table, err := ReadTable(path)
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{
		File:     path,
		Type:     fileType,
		Encoding: table.Encoding,
		Rows:     len(table.Rows),
		Columns:  table.Header,
		Missing:  make(map[string]int, len(table.Header)),
		Warnings: append([]string(nil), table.Warnings...),
	}

	for _, col := range table.Header {
		report.Missing[col] = 0
	}
	seen := make(map[string]int, len(table.Rows))
	for _, row := range table.Rows {
		for i, col := range table.Header {
			if i < len(row) && strings.TrimSpace(row[i]) == "" {
				report.Missing[col]++
			}
		}
		key := strings.Join(row, "\x1f")
		seen[key]++
		if seen[key] > 1 {
			report.Duplicates++
		}
	}

	// A typed load surfaces the coercion failures a raw read cannot see.
	var loadRep *LoadReport
	switch fileType {
	case "jobs":
		_, loadRep, err = ing.LoadJobs(path)
	case "sales":
		_, loadRep, err = ing.LoadSales(path)
	case string(KindDayStartEnd), string(KindDrivesStops), string(KindDayEngine), string(KindIdleTime), string(KindAlert):
		_, loadRep, err = ing.LoadGPS(GPSKind(fileType), path)
	}
	if err != nil {
		report.Warnings = append(report.Warnings, err.Error())
	} else if loadRep != nil {
		report.Coercions = loadRep.Coercions
		// The typed load's warnings subsume the raw read's.
		report.Warnings = loadRep.Warnings
	}

	return report, nil
}

// DetectFileType guesses a source type from the file name.
func DetectFileType(path string) string {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(name, "type6") || strings.Contains(name, "job"):
		return "jobs"
	case strings.Contains(name, "slsjrnl") || strings.Contains(name, "sales"):
		return "sales"
	case strings.Contains(name, "day_start_end") || strings.Contains(name, "start_end"):
		return string(KindDayStartEnd)
	case strings.Contains(name, "drives_stops") || strings.Contains(name, "drives"):
		return string(KindDrivesStops)
	case strings.Contains(name, "engine"):
		return string(KindDayEngine)
	case strings.Contains(name, "idle"):
		return string(KindIdleTime)
	case strings.Contains(name, "alert"):
		return string(KindAlert)
	}
	return "generic"
}
