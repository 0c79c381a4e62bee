package analyzer

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/file-processor/internal/core/domain"
)

const textPreviewRunes = 200

type TextAnalyzer struct{}

func NewTextAnalyzer() *TextAnalyzer {
	return &TextAnalyzer{}
}

func (a *TextAnalyzer) Analyze(_ context.Context, req domain.ProcessingRequest) (domain.Analysis, error) {
	if !utf8.Valid(req.Data) {
		return nil, domain.NewProcessingError(domain.KindText, domain.ErrAnalyzerFailure, errors.New("content is not valid utf-8"))
	}
	return analyzeText(string(req.Data)), nil
}

func analyzeText(content string) domain.TextAnalysis {
	// An empty string still counts as one line.
	lines := strings.Split(content, "\n")
	words := strings.Fields(content)

	return domain.TextAnalysis{
		LineCount:           len(lines),
		WordCount:           len(words),
		CharacterCount:      utf8.RuneCountInString(content),
		AverageWordsPerLine: roundTo(float64(len(words))/float64(len(lines)), 1),
		Preview:             preview(content, textPreviewRunes),
	}
}

func preview(content string, limit int) string {
	if utf8.RuneCountInString(content) <= limit {
		return content
	}
	runes := []rune(content)
	return string(runes[:limit]) + "..."
}
