package domain

import (
	"strings"
	"time"
)

// SourceMode identifies the input modality of a run
type SourceMode string

const (
	SourceCSV    SourceMode = "csv"
	SourceSearch SourceMode = "search"
	SourceURL    SourceMode = "url"
)

// SearchCriteria is the code-search form. Only the first non-empty field,
// in the order SKU, Barcode, EAN, Text, is submitted.
type SearchCriteria struct {
	SKU     string `json:"sku"`
	Barcode string `json:"barcode"`
	EAN     string `json:"ean"`
	Text    string `json:"text"`
}

// Query returns the first non-empty criterion in priority order
func (c SearchCriteria) Query() (string, bool) {
	for _, v := range []string{c.SKU, c.Barcode, c.EAN, c.Text} {
		if v = strings.TrimSpace(v); v != "" {
			return v, true
		}
	}
	return "", false
}

// Upload is an in-memory file handed to the CSV source
type Upload struct {
	Filename string `json:"filename"`
	Content  []byte `json:"-"`
}

// Empty reports whether no file was selected
func (u *Upload) Empty() bool {
	return u == nil || u.Filename == "" && len(u.Content) == 0
}

// ExportTarget selects the downstream export format
type ExportTarget string

const (
	ExportShopify ExportTarget = "shopify"
	ExportCSV     ExportTarget = "csv"
	ExportExcel   ExportTarget = "excel"
)

// ParseExportTarget validates an export target name
func ParseExportTarget(s string) (ExportTarget, bool) {
	switch t := ExportTarget(strings.ToLower(strings.TrimSpace(s))); t {
	case ExportShopify, ExportCSV, ExportExcel:
		return t, true
	default:
		return "", false
	}
}

// Extension is the file extension of the exported blob
func (t ExportTarget) Extension() string {
	if t == ExportExcel {
		return "xlsx"
	}
	return "csv"
}

// ContentType is the media type the export backend answers with
func (t ExportTarget) ContentType() string {
	if t == ExportExcel {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Progress is the observable status of a processing run
type Progress struct {
	Message   string        `json:"message"`
	Estimated int           `json:"estimated_rows,omitempty"`
	Elapsed   time.Duration `json:"-"`
}

// ProgressFunc receives status messages from a source adapter
type ProgressFunc func(message string)
