package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type AnalysisKind string

const (
	KindImage       AnalysisKind = "image"
	KindCSV         AnalysisKind = "csv"
	KindSpreadsheet AnalysisKind = "spreadsheet"
	KindPDF         AnalysisKind = "pdf"
	KindText        AnalysisKind = "text"
	KindGeneric     AnalysisKind = "generic"
)

type ResultStatus string

const (
	ResultCompleted ResultStatus = "completed"
	ResultError     ResultStatus = "error"
)

// Analysis is the family-specific payload of a result. The set of
// implementations is closed to this package.
type Analysis interface {
	Kind() AnalysisKind
	analysis()
}

type ImageAnalysis struct {
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	Format        string  `json:"format"`
	Channels      int     `json:"channels"`
	HasAlpha      bool    `json:"has_alpha"`
	ColorSpace    string  `json:"color_space"`
	ThumbnailPath string  `json:"thumbnail_path"`
	AspectRatio   float64 `json:"aspect_ratio"`
	Megapixels    float64 `json:"megapixels"`
}

type CSVAnalysis struct {
	TotalRows   int                 `json:"total_rows"`
	Columns     []string            `json:"columns"`
	ColumnCount int                 `json:"column_count"`
	SampleRows  []map[string]string `json:"sample_rows"`
	ColumnTypes map[string]string   `json:"column_types"`
}

type SheetSummary struct {
	Name        string     `json:"name"`
	RowCount    int        `json:"row_count"`
	ColumnCount int        `json:"column_count"`
	HasHeaders  bool       `json:"has_headers"`
	SampleRows  [][]string `json:"sample_rows"`
}

type SpreadsheetAnalysis struct {
	Sheets     []SheetSummary `json:"sheets"`
	SheetCount int            `json:"sheet_count"`
	Author     string         `json:"author"`
}

type PDFAnalysis struct {
	EstimatedPages int    `json:"estimated_pages"`
	HasImages      bool   `json:"has_images"`
	HasText        bool   `json:"has_text"`
	Encrypted      bool   `json:"encrypted"`
	HasSignature   bool   `json:"has_signature"`
	Version        string `json:"pdf_version"`
	Size           int64  `json:"size"`
}

type TextAnalysis struct {
	LineCount           int     `json:"line_count"`
	WordCount           int     `json:"word_count"`
	CharacterCount      int     `json:"character_count"`
	AverageWordsPerLine float64 `json:"average_words_per_line"`
	Preview             string  `json:"preview"`
}

type GenericAnalysis struct {
	Note      string `json:"note"`
	Size      int64  `json:"size"`
	MediaType string `json:"media_type"`
}

func (ImageAnalysis) Kind() AnalysisKind       { return KindImage }
func (CSVAnalysis) Kind() AnalysisKind         { return KindCSV }
func (SpreadsheetAnalysis) Kind() AnalysisKind { return KindSpreadsheet }
func (PDFAnalysis) Kind() AnalysisKind         { return KindPDF }
func (TextAnalysis) Kind() AnalysisKind        { return KindText }
func (GenericAnalysis) Kind() AnalysisKind     { return KindGeneric }

func (ImageAnalysis) analysis()       {}
func (CSVAnalysis) analysis()         {}
func (SpreadsheetAnalysis) analysis() {}
func (PDFAnalysis) analysis()         {}
func (TextAnalysis) analysis()        {}
func (GenericAnalysis) analysis()     {}

// ProcessingResult is the terminal outcome of one processing job. Analysis is
// set when Status is completed; Error, Message and Category when it is error.
type ProcessingResult struct {
	Status     ResultStatus
	Kind       AnalysisKind
	Analysis   Analysis
	Error      string
	Message    string
	Category   string
	StartTime  time.Time
	EndTime    time.Time
	DurationMs int64
}

type resultEnvelope struct {
	Status     ResultStatus    `json:"status"`
	Kind       AnalysisKind    `json:"type"`
	Analysis   json.RawMessage `json:"analysis,omitempty"`
	Error      string          `json:"error,omitempty"`
	Message    string          `json:"message,omitempty"`
	Category   string          `json:"category,omitempty"`
	StartTime  time.Time       `json:"start_time"`
	EndTime    time.Time       `json:"end_time"`
	DurationMs int64           `json:"duration_ms"`
}

func (r ProcessingResult) MarshalJSON() ([]byte, error) {
	env := resultEnvelope{
		Status:     r.Status,
		Kind:       r.Kind,
		Error:      r.Error,
		Message:    r.Message,
		Category:   r.Category,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		DurationMs: r.DurationMs,
	}
	if r.Analysis != nil {
		raw, err := json.Marshal(r.Analysis)
		if err != nil {
			return nil, fmt.Errorf("marshal %s analysis: %w", r.Analysis.Kind(), err)
		}
		env.Analysis = raw
	}
	return json.Marshal(env)
}

func (r *ProcessingResult) UnmarshalJSON(data []byte) error {
	var env resultEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*r = ProcessingResult{
		Status:     env.Status,
		Kind:       env.Kind,
		Error:      env.Error,
		Message:    env.Message,
		Category:   env.Category,
		StartTime:  env.StartTime,
		EndTime:    env.EndTime,
		DurationMs: env.DurationMs,
	}
	if len(env.Analysis) == 0 || string(env.Analysis) == "null" {
		return nil
	}

	analysis, err := decodeAnalysis(env.Kind, env.Analysis)
	if err != nil {
		return err
	}
	r.Analysis = analysis
	return nil
}

func decodeAnalysis(kind AnalysisKind, raw json.RawMessage) (Analysis, error) {
	var target Analysis
	var err error
	switch kind {
	case KindImage:
		var v ImageAnalysis
		err = json.Unmarshal(raw, &v)
		target = v
	case KindCSV:
		var v CSVAnalysis
		err = json.Unmarshal(raw, &v)
		target = v
	case KindSpreadsheet:
		var v SpreadsheetAnalysis
		err = json.Unmarshal(raw, &v)
		target = v
	case KindPDF:
		var v PDFAnalysis
		err = json.Unmarshal(raw, &v)
		target = v
	case KindText:
		var v TextAnalysis
		err = json.Unmarshal(raw, &v)
		target = v
	case KindGeneric:
		var v GenericAnalysis
		err = json.Unmarshal(raw, &v)
		target = v
	default:
		return nil, fmt.Errorf("unknown analysis type %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s analysis: %w", kind, err)
	}
	return target, nil
}
