package domain

import "strings"

const (
	MediaTypeCSV      = "text/csv"
	MediaTypeXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MediaTypeXLS      = "application/vnd.ms-excel"
	MediaTypePDF      = "application/pdf"
	MediaTypeText     = "text/plain"
	MediaTypeMarkdown = "text/markdown"
	MediaTypeOctet    = "application/octet-stream"
)

// KindForMediaType selects the analysis family from the declared media type only.
func KindForMediaType(mediaType string) AnalysisKind {
	mt := NormalizeMediaType(mediaType)
	switch {
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case mt == MediaTypeCSV, mt == "application/csv":
		return KindCSV
	case mt == MediaTypeXLSX, mt == MediaTypeXLS:
		return KindSpreadsheet
	case mt == MediaTypePDF:
		return KindPDF
	case mt == MediaTypeText, mt == MediaTypeMarkdown:
		return KindText
	default:
		return KindGeneric
	}
}

// NormalizeMediaType lowercases and strips parameters such as charset.
func NormalizeMediaType(mediaType string) string {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if idx := strings.IndexByte(mt, ';'); idx >= 0 {
		mt = strings.TrimSpace(mt[:idx])
	}
	return mt
}
