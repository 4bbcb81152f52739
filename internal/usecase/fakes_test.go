package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/productstudio/backend/internal/domain"
)

// fakeBackend records calls and answers with canned bodies
type fakeBackend struct {
	mu sync.Mutex

	csvBody    string
	searchBody string
	scrapeBody string
	regenBody  string
	exportData []byte
	err        error
	regenErr   error
	exportErr  error

	// block, when set, holds ingestion calls until it is closed
	block chan struct{}

	calls        []string
	csvRequests  []domain.CSVRequest
	queries      []string
	urls         []string
	regenInputs  [][]domain.Product
	regenCats    []domain.Category
	exportInputs [][]domain.Product
	exportTarget []domain.ExportTarget
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeBackend) wait(ctx context.Context) error {
	if f.block == nil {
		return nil
	}
	select {
	case <-f.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeBackend) ParseCSV(ctx context.Context, req domain.CSVRequest) (json.RawMessage, error) {
	f.record("parse-csv")
	f.mu.Lock()
	f.csvRequests = append(f.csvRequests, req)
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.csvBody), nil
}

func (f *fakeBackend) SearchProduct(ctx context.Context, query string, category domain.Category) (json.RawMessage, error) {
	f.record("search-product")
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.searchBody), nil
}

func (f *fakeBackend) ScrapeURL(ctx context.Context, url string, category domain.Category) (json.RawMessage, error) {
	f.record("scrape-url")
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.scrapeBody), nil
}

func (f *fakeBackend) GenerateBrandVoice(ctx context.Context, products []domain.Product, category domain.Category) (json.RawMessage, error) {
	f.record("generate-brand-voice")
	f.mu.Lock()
	f.regenInputs = append(f.regenInputs, products)
	f.regenCats = append(f.regenCats, category)
	f.mu.Unlock()
	if f.regenErr != nil {
		return nil, f.regenErr
	}
	return json.RawMessage(f.regenBody), nil
}

func (f *fakeBackend) Export(ctx context.Context, products []domain.Product, target domain.ExportTarget) ([]byte, error) {
	f.record("export")
	f.mu.Lock()
	f.exportInputs = append(f.exportInputs, products)
	f.exportTarget = append(f.exportTarget, target)
	f.mu.Unlock()
	if f.exportErr != nil {
		return nil, f.exportErr
	}
	return f.exportData, nil
}

// memoryDownloader keeps downloads in memory
type memoryDownloader struct {
	filename    string
	contentType string
	content     []byte
	err         error
}

func (d *memoryDownloader) Download(ctx context.Context, filename, contentType string, content io.Reader) error {
	if d.err != nil {
		return d.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, content); err != nil {
		return err
	}
	d.filename = filename
	d.contentType = contentType
	d.content = buf.Bytes()
	return nil
}

func remoteErr(endpoint string, status int, msg string) error {
	return &domain.Error{Kind: domain.ErrRemote, Endpoint: endpoint, Status: status, Message: msg}
}

func strPtr(s string) *string { return &s }

func catPtr(c domain.Category) *domain.Category { return &c }
