package analyzer

import (
	"context"

	"github.com/kirillkom/file-processor/internal/core/domain"
)

const genericNote = "File type not specifically supported for processing"

type GenericAnalyzer struct{}

func NewGenericAnalyzer() *GenericAnalyzer {
	return &GenericAnalyzer{}
}

// Analyze always succeeds: unsupported types are recorded, not rejected.
func (a *GenericAnalyzer) Analyze(_ context.Context, req domain.ProcessingRequest) (domain.Analysis, error) {
	size := req.Size
	if size <= 0 {
		size = int64(len(req.Data))
	}
	return domain.GenericAnalysis{
		Note:      genericNote,
		Size:      size,
		MediaType: req.MediaType,
	}, nil
}
