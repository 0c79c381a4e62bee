package analyzer

import (
	"bytes"
	"context"
	"errors"
	"regexp"

	"github.com/kirillkom/file-processor/internal/core/domain"
)

const (
	pdfBytesPerPage  = 50000
	pdfHeaderWindow  = 1024
	pdfVersionAbsent = "Unknown"
)

var pdfVersionPattern = regexp.MustCompile(`%PDF-(\d\.\d)`)

// PDFAnalyzer inspects raw bytes for well-known markers. It does not parse
// the document structure.
type PDFAnalyzer struct{}

func NewPDFAnalyzer() *PDFAnalyzer {
	return &PDFAnalyzer{}
}

func (a *PDFAnalyzer) Analyze(_ context.Context, req domain.ProcessingRequest) (domain.Analysis, error) {
	if len(req.Data) == 0 {
		return nil, domain.NewProcessingError(domain.KindPDF, domain.ErrAnalyzerFailure, errors.New("empty pdf payload"))
	}
	data := req.Data

	return domain.PDFAnalysis{
		EstimatedPages: estimatePages(len(data)),
		HasImages:      bytes.Contains(data, []byte("/Image")),
		HasText:        bytes.Contains(data, []byte("/Font")) || bytes.Contains(data, []byte("/Text")),
		Encrypted:      bytes.Contains(data, []byte("/Encrypt")),
		HasSignature:   bytes.Contains(data, []byte("/Sig")),
		Version:        pdfVersion(data),
		Size:           int64(len(data)),
	}, nil
}

func estimatePages(size int) int {
	return max(1, size/pdfBytesPerPage)
}

func pdfVersion(data []byte) string {
	head := data[:min(len(data), pdfHeaderWindow)]
	m := pdfVersionPattern.FindSubmatch(head)
	if m == nil {
		return pdfVersionAbsent
	}
	return string(m[1])
}
