package usecase

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/productstudio/backend/internal/domain"
)

var multiSpacePattern = regexp.MustCompile(`\s+`)

// Form is the operator input of a run: the source mode, the pre-selected
// category and the parameters of that mode. Fields of other modes are ignored.
type Form struct {
	Mode     domain.SourceMode     `json:"mode"`
	Category string                `json:"category"`
	File     *domain.Upload        `json:"file,omitempty"`
	BrandURL string                `json:"brand_url,omitempty"`
	Criteria domain.SearchCriteria `json:"criteria"`
	URL      string                `json:"url,omitempty"`
}

// Validate checks the per-mode guard and returns the parsed category
func (f Form) Validate() (domain.Category, error) {
	switch f.Mode {
	case domain.SourceCSV:
		if f.File.Empty() {
			return "", domain.NewValidationError("Please select a CSV file to upload")
		}
	case domain.SourceSearch:
		if _, ok := f.Criteria.Query(); !ok {
			return "", domain.NewValidationError("Please enter a SKU, barcode, EAN or search text")
		}
	case domain.SourceURL:
		if strings.TrimSpace(f.URL) == "" {
			return "", domain.NewValidationError("Please enter a product URL")
		}
	default:
		return "", domain.NewValidationError("unknown source mode %q", f.Mode)
	}

	if strings.TrimSpace(f.Category) == "" {
		return "", domain.NewValidationError("Please select a category")
	}
	category, ok := domain.ParseCategory(f.Category)
	if !ok {
		return "", domain.NewValidationError("unknown category %q", f.Category)
	}
	return category, nil
}

// SearchQuery returns the criterion that is submitted for a code search,
// with inner whitespace runs collapsed
func SearchQuery(c domain.SearchCriteria) (string, bool) {
	q, ok := c.Query()
	if !ok {
		return "", false
	}
	return multiSpacePattern.ReplaceAllString(q, " "), true
}

// EstimateRows gives an advisory data-row count for a CSV upload:
// non-empty lines minus the header line
func EstimateRows(content []byte) int {
	lines := 0
	for _, line := range bytes.Split(content, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			lines++
		}
	}
	if lines <= 1 {
		return 0
	}
	return lines - 1
}
