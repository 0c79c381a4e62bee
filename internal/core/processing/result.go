package processing

import (
	"time"

	"github.com/kirillkom/file-processor/internal/core/domain"
)

const failedJobError = "Processing failed"

func completedResult(kind domain.AnalysisKind, analysis domain.Analysis, start, end time.Time) domain.ProcessingResult {
	return domain.ProcessingResult{
		Status:     domain.ResultCompleted,
		Kind:       kind,
		Analysis:   analysis,
		StartTime:  start,
		EndTime:    end,
		DurationMs: end.Sub(start).Milliseconds(),
	}
}

// failedResult never carries the technical error; only the family message and category.
func failedResult(kind domain.AnalysisKind, err error, start, end time.Time) domain.ProcessingResult {
	return domain.ProcessingResult{
		Status:     domain.ResultError,
		Kind:       kind,
		Error:      failedJobError,
		Message:    failureMessage(kind),
		Category:   domain.CategoryName(err),
		StartTime:  start,
		EndTime:    end,
		DurationMs: end.Sub(start).Milliseconds(),
	}
}

func failureMessage(kind domain.AnalysisKind) string {
	switch kind {
	case domain.KindImage:
		return "Image processing failed"
	case domain.KindCSV:
		return "CSV processing failed"
	case domain.KindSpreadsheet:
		return "Spreadsheet processing failed"
	case domain.KindPDF:
		return "PDF processing failed"
	case domain.KindText:
		return "Text processing failed"
	default:
		return "File processing failed"
	}
}

// FailedResult is the sanitized result for a job that could not be handed to
// an analyzer, for example when its stored bytes are unreadable.
func FailedResult(kind domain.AnalysisKind, err error, at time.Time) domain.ProcessingResult {
	return failedResult(kind, err, at, at)
}
