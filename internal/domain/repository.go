package domain

import (
	"context"
	"encoding/json"
	"io"
)

// CSVRequest is the parse-csv call payload
type CSVRequest struct {
	File     Upload
	Category Category
	BrandURL string
}

// BackendClient defines the calls the pipeline makes to the product backend.
// Ingestion calls return the raw success body; callers normalize it.
type BackendClient interface {
	ParseCSV(ctx context.Context, req CSVRequest) (json.RawMessage, error)
	SearchProduct(ctx context.Context, query string, category Category) (json.RawMessage, error)
	ScrapeURL(ctx context.Context, url string, category Category) (json.RawMessage, error)
	GenerateBrandVoice(ctx context.Context, products []Product, category Category) (json.RawMessage, error)
	Export(ctx context.Context, products []Product, target ExportTarget) ([]byte, error)
}

// Regenerator is the single call the record store needs
type Regenerator interface {
	GenerateBrandVoice(ctx context.Context, products []Product, category Category) (json.RawMessage, error)
}

// Exporter is the single call the export dispatcher needs
type Exporter interface {
	Export(ctx context.Context, products []Product, target ExportTarget) ([]byte, error)
}

// Downloader delivers an exported file to the operator
type Downloader interface {
	Download(ctx context.Context, filename, contentType string, content io.Reader) error
}
