package etl

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// ConvertReport summarizes a DAT to CSV conversion.
type ConvertReport struct {
	Input   string `json:"input"`
	Output  string `json:"output"`
	Columns int    `json:"columns"`
	Rows    int    `json:"rows"`
}

var reMultiSpace = regexp.MustCompile(`\s{2,}`)

// ConvertDAT rewrites a legacy .dat/.str sales-journal export as CSV.
// The first line is the header; data lines are either delimited like CSV
// with #date# tokens and quoted text fields, or whitespace-aligned with
// overflow folded into the last column.
func ConvertDAT(inputPath, outputPath string) (*ConvertReport, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", inputPath, err)
	}
	defer in.Close()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var header []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if strings.TrimSpace(line) == "" {
			continue
		}
		header = splitHeaderLine(line)
		break
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", inputPath, err)
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("%s: no header line found", inputPath)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", outputPath, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	rows := 0
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if strings.TrimSpace(line) == "" {
			continue
		}
		record := splitDataLine(line, len(header))
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", rows+1, err)
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush %s: %w", outputPath, err)
	}

	return &ConvertReport{
		Input:   inputPath,
		Output:  outputPath,
		Columns: len(header),
		Rows:    rows,
	}, nil
}

// splitHeaderLine splits the header on commas, tabs, or runs of two or
// more spaces, whichever the export used.
func splitHeaderLine(line string) []string {
	var parts []string
	switch {
	case strings.Contains(line, ","):
		parts = strings.Split(line, ",")
	case strings.Contains(line, "\t"):
		parts = strings.Split(line, "\t")
	default:
		parts = reMultiSpace.Split(line, -1)
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitDataLine splits one data line into exactly width fields. Lines
// carrying quotes, #date# tokens, or commas follow delimiter rules;
// anything else is whitespace-split with extra fields joined into the
// last column.
func splitDataLine(line string, width int) []string {
	var fields []string
	if strings.ContainsAny(line, `#",`) {
		fields = splitDelimited(line)
	} else {
		fields = strings.Fields(line)
		if len(fields) > width && width > 0 {
			head := fields[:width-1]
			tail := strings.Join(fields[width-1:], " ")
			fields = append(append([]string{}, head...), tail)
		}
	}
	for len(fields) < width {
		fields = append(fields, "")
	}
	if width > 0 && len(fields) > width {
		fields = fields[:width]
	}
	return fields
}

// splitDelimited walks a comma-delimited line, unwrapping "..." quoting
// and #...# date tokens.
func splitDelimited(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuote := false
	inHash := false
	for _, r := range line {
		switch {
		case r == '"' && !inHash:
			inQuote = !inQuote
		case r == '#' && !inQuote:
			inHash = !inHash
		case r == ',' && !inQuote && !inHash:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, strings.TrimSpace(cur.String()))
	return fields
}
