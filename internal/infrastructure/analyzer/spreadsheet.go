package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/file-processor/internal/core/domain"
)

const (
	sheetSampleRows = 3
	unknownAuthor   = "Unknown"
)

type SpreadsheetAnalyzer struct{}

func NewSpreadsheetAnalyzer() *SpreadsheetAnalyzer {
	return &SpreadsheetAnalyzer{}
}

func (a *SpreadsheetAnalyzer) Analyze(_ context.Context, req domain.ProcessingRequest) (domain.Analysis, error) {
	book, err := excelize.OpenReader(bytes.NewReader(req.Data))
	if err != nil {
		return nil, spreadsheetFailure(fmt.Errorf("open workbook: %w", err))
	}
	defer book.Close()

	names := book.GetSheetList()
	sheets := make([]domain.SheetSummary, 0, len(names))
	for _, name := range names {
		rows, err := book.GetRows(name)
		if err != nil {
			return nil, spreadsheetFailure(fmt.Errorf("read sheet %q: %w", name, err))
		}
		sheets = append(sheets, summarizeSheet(name, rows))
	}

	return domain.SpreadsheetAnalysis{
		Sheets:     sheets,
		SheetCount: len(sheets),
		Author:     workbookAuthor(book),
	}, nil
}

func spreadsheetFailure(err error) error {
	return domain.NewProcessingError(domain.KindSpreadsheet, domain.ErrAnalyzerFailure, err)
}

func summarizeSheet(name string, rows [][]string) domain.SheetSummary {
	columns := 0
	for _, row := range rows {
		columns = max(columns, len(row))
	}

	sample := make([][]string, 0, sheetSampleRows)
	for _, row := range rows[:min(len(rows), sheetSampleRows)] {
		sample = append(sample, append([]string(nil), row...))
	}

	return domain.SheetSummary{
		Name:        name,
		RowCount:    len(rows),
		ColumnCount: columns,
		HasHeaders:  len(rows) > 0 && rowHasValue(rows[0]),
		SampleRows:  sample,
	}
}

func rowHasValue(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return true
		}
	}
	return false
}

func workbookAuthor(book *excelize.File) string {
	props, err := book.GetDocProps()
	if err != nil || props == nil {
		return unknownAuthor
	}
	if author := strings.TrimSpace(props.Creator); author != "" {
		return author
	}
	return unknownAuthor
}
