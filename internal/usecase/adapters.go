package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/productstudio/backend/internal/domain"
	"github.com/productstudio/backend/internal/infrastructure/backend"
	"go.uber.org/zap"
)

// SourceAdapter turns one input modality into normalized products
type SourceAdapter interface {
	Execute(ctx context.Context, form Form, category domain.Category, onProgress domain.ProgressFunc) ([]domain.Product, error)
}

// Keywords in a scrape failure that mean the site refused automated access
var blockedKeywords = []string{
	"block",
	"cloudflare",
	"captcha",
	"bot detection",
	"access denied",
	"could not be scraped",
}

const blockedMessage = "This website blocked automated access and could not be scraped. " +
	"Please try a different URL or use CSV upload instead."

// NewAdapters returns the three source adapters keyed by mode
func NewAdapters(client domain.BackendClient, logger *zap.Logger) map[domain.SourceMode]SourceAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return map[domain.SourceMode]SourceAdapter{
		domain.SourceCSV:    &CSVAdapter{client: client, logger: logger},
		domain.SourceSearch: &SearchAdapter{client: client, logger: logger},
		domain.SourceURL:    &URLAdapter{client: client, logger: logger},
	}
}

// CSVAdapter uploads a product CSV, optionally enriched from a brand site
type CSVAdapter struct {
	client domain.BackendClient
	logger *zap.Logger
}

func (a *CSVAdapter) Execute(ctx context.Context, form Form, category domain.Category, onProgress domain.ProgressFunc) ([]domain.Product, error) {
	if form.File.Empty() {
		return nil, domain.NewValidationError("Please select a CSV file to upload")
	}
	brandURL := strings.TrimSpace(form.BrandURL)

	report(onProgress, "Uploading %s...", form.File.Filename)
	if brandURL != "" {
		report(onProgress, "Parsing CSV and enriching products from %s. This can take a few minutes...", brandURL)
	}

	body, err := a.client.ParseCSV(ctx, domain.CSVRequest{
		File:     *form.File,
		Category: category,
		BrandURL: brandURL,
	})
	if err != nil {
		return nil, err
	}

	products, err := normalize(body, "No products were found in the uploaded file")
	if err != nil {
		return nil, err
	}
	a.logger.Info("csv parsed", zap.String("file", form.File.Filename), zap.Int("products", len(products)))
	return products, nil
}

// SearchAdapter looks a single product up by code or free text
type SearchAdapter struct {
	client domain.BackendClient
	logger *zap.Logger
}

func (a *SearchAdapter) Execute(ctx context.Context, form Form, category domain.Category, onProgress domain.ProgressFunc) ([]domain.Product, error) {
	query, ok := SearchQuery(form.Criteria)
	if !ok {
		return nil, domain.NewValidationError("Please enter a SKU, barcode, EAN or search text")
	}

	report(onProgress, "Searching for %s...", query)
	body, err := a.client.SearchProduct(ctx, query, category)
	if err != nil {
		return nil, err
	}

	products, err := normalize(body, fmt.Sprintf("No products found for %q", query))
	if err != nil {
		return nil, err
	}
	a.logger.Info("search completed", zap.String("query", query), zap.Int("products", len(products)))
	return products, nil
}

// URLAdapter scrapes a supplier product page
type URLAdapter struct {
	client domain.BackendClient
	logger *zap.Logger
}

func (a *URLAdapter) Execute(ctx context.Context, form Form, category domain.Category, onProgress domain.ProgressFunc) ([]domain.Product, error) {
	pageURL := strings.TrimSpace(form.URL)
	if pageURL == "" {
		return nil, domain.NewValidationError("Please enter a product URL")
	}

	report(onProgress, "Scraping %s...", pageURL)
	body, err := a.client.ScrapeURL(ctx, pageURL, category)
	if err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) && errors.Is(err, domain.ErrRemote) && IsBlocked(derr.Message) {
			a.logger.Warn("site blocked scraping", zap.String("url", pageURL), zap.String("reason", derr.Message))
			return nil, &domain.Error{Kind: domain.ErrBlocked, Message: blockedMessage, Endpoint: derr.Endpoint, Status: derr.Status}
		}
		return nil, err
	}

	products, err := normalize(body, "No products were found at that URL")
	if err != nil {
		if IsBlocked(err.Error()) {
			return nil, &domain.Error{Kind: domain.ErrBlocked, Message: blockedMessage, Endpoint: backend.EndpointScrapeURL}
		}
		return nil, err
	}
	a.logger.Info("url scraped", zap.String("url", pageURL), zap.Int("products", len(products)))
	return products, nil
}

// IsBlocked reports whether a backend message describes a blocked scrape
func IsBlocked(message string) bool {
	message = strings.ToLower(message)
	for _, keyword := range blockedKeywords {
		if strings.Contains(message, keyword) {
			return true
		}
	}
	return false
}

// normalize decodes a success body. An empty result carries the backend's
// own message when the body has one.
func normalize(body json.RawMessage, emptyMessage string) ([]domain.Product, error) {
	products := backend.DecodeProducts(body)
	if len(products) > 0 {
		return products, nil
	}
	if msg := backend.ErrorMessage(body); msg != "" {
		emptyMessage = msg
	}
	return nil, &domain.Error{Kind: domain.ErrEmptyResult, Message: emptyMessage}
}

func report(fn domain.ProgressFunc, format string, args ...interface{}) {
	if fn != nil {
		fn(fmt.Sprintf(format, args...))
	}
}
