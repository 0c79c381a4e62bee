package analyzer

import (
	"github.com/kirillkom/file-processor/internal/core/domain"
	"github.com/kirillkom/file-processor/internal/core/ports"
)

type Options struct {
	ThumbnailMaxSide int
	ThumbnailQuality int
}

// Registry routes declared media types to analyzers. Types without a
// dedicated analyzer fall back to the generic one.
type Registry struct {
	analyzers map[domain.AnalysisKind]ports.Analyzer
	fallback  ports.Analyzer
}

func NewRegistry(storage ports.ObjectStorage, options Options) *Registry {
	r := &Registry{
		analyzers: make(map[domain.AnalysisKind]ports.Analyzer),
		fallback:  NewGenericAnalyzer(),
	}
	r.Register(domain.KindImage, NewImageAnalyzer(storage, options.ThumbnailMaxSide, options.ThumbnailQuality))
	r.Register(domain.KindCSV, NewCSVAnalyzer())
	r.Register(domain.KindSpreadsheet, NewSpreadsheetAnalyzer())
	r.Register(domain.KindPDF, NewPDFAnalyzer())
	r.Register(domain.KindText, NewTextAnalyzer())
	return r
}

func (r *Registry) Register(kind domain.AnalysisKind, a ports.Analyzer) {
	r.analyzers[kind] = a
}

func (r *Registry) AnalyzerFor(mediaType string) (domain.AnalysisKind, ports.Analyzer) {
	kind := domain.KindForMediaType(mediaType)
	if a, ok := r.analyzers[kind]; ok {
		return kind, a
	}
	return domain.KindGeneric, r.fallback
}
