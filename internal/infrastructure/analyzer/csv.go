package analyzer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/file-processor/internal/core/domain"
)

const (
	csvRetainedRows = 5
	csvReportedRows = 3
)

const (
	ColumnNumber = "number"
	ColumnEmail  = "email"
	ColumnDate   = "date"
	ColumnText   = "text"
	ColumnEmpty  = "empty"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	time.ANSIC,
}

type CSVAnalyzer struct{}

func NewCSVAnalyzer() *CSVAnalyzer {
	return &CSVAnalyzer{}
}

// Analyze streams every record to count rows but keeps only the first few for
// the sample and for column type inference.
func (a *CSVAnalyzer) Analyze(_ context.Context, req domain.ProcessingRequest) (domain.Analysis, error) {
	reader := csv.NewReader(bytes.NewReader(req.Data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, csvFailure(errors.New("csv has no header row"))
	}
	if err != nil {
		return nil, csvFailure(fmt.Errorf("read header: %w", err))
	}
	columns := normalizeHeader(header)

	total := 0
	retained := make([]map[string]string, 0, csvRetainedRows)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvFailure(fmt.Errorf("read record: %w", err))
		}
		total++
		if len(retained) < csvRetainedRows {
			retained = append(retained, recordToRow(columns, record))
		}
	}

	types := make(map[string]string, len(columns))
	for _, col := range columns {
		values := make([]string, 0, len(retained))
		for _, row := range retained {
			if v := strings.TrimSpace(row[col]); v != "" {
				values = append(values, v)
			}
		}
		types[col] = inferColumnType(values)
	}

	return domain.CSVAnalysis{
		TotalRows:   total,
		Columns:     columns,
		ColumnCount: len(columns),
		SampleRows:  retained[:min(len(retained), csvReportedRows)],
		ColumnTypes: types,
	}, nil
}

func csvFailure(err error) error {
	return domain.NewProcessingError(domain.KindCSV, domain.ErrAnalyzerFailure, err)
}

func normalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}
		columns[i] = name
	}
	return columns
}

func recordToRow(columns, record []string) map[string]string {
	row := make(map[string]string, len(columns))
	for i, col := range columns {
		if i < len(record) {
			row[col] = record[i]
		} else {
			row[col] = ""
		}
	}
	return row
}

// inferColumnType applies the checks in a fixed order: a column is numeric only
// if every value is, while a single email or date match is enough for those types.
func inferColumnType(values []string) string {
	if len(values) == 0 {
		return ColumnEmpty
	}
	if allMatch(values, isNumeric) {
		return ColumnNumber
	}
	if anyMatch(values, isEmail) {
		return ColumnEmail
	}
	if anyMatch(values, isDate) {
		return ColumnDate
	}
	return ColumnText
}

func allMatch(values []string, fn func(string) bool) bool {
	for _, v := range values {
		if !fn(v) {
			return false
		}
	}
	return true
}

func anyMatch(values []string, fn func(string) bool) bool {
	for _, v := range values {
		if fn(v) {
			return true
		}
	}
	return false
}

func isNumeric(v string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isEmail(v string) bool {
	return emailPattern.MatchString(strings.TrimSpace(v))
}

func isDate(v string) bool {
	v = strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}
