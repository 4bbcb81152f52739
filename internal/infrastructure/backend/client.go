package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/productstudio/backend/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Backend endpoint names, relative to the configured base path
const (
	EndpointParseCSV      = "parse-csv"
	EndpointSearchProduct = "search-product"
	EndpointScrapeURL     = "scrape-url"
	EndpointBrandVoice    = "generate-brand-voice"
	EndpointExportShopify = "export-shopify"
	EndpointExport        = "export"
	EndpointCategories    = "categories"
	EndpointHealth        = "healthz"
)

// APIKeyHeader carries the backend API key when one is configured
const APIKeyHeader = "x-api-key"

// Default deadlines per payload kind
const (
	DefaultJSONTimeout = 120 * time.Second
	DefaultFormTimeout = 600 * time.Second
	DefaultCSVTimeout  = 180 * time.Second
)

// Config holds the settings of a backend client
type Config struct {
	BaseURL           string
	APIKey            string
	JSONTimeout       time.Duration
	FormTimeout       time.Duration
	CSVTimeout        time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client handles communication with the product backend
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	jsonTimeout time.Duration
	formTimeout time.Duration
	csvTimeout  time.Duration
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates a new backend client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		// deadlines are enforced per call through the request context
		httpClient:  &http.Client{},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		jsonTimeout: orDefault(cfg.JSONTimeout, DefaultJSONTimeout),
		formTimeout: orDefault(cfg.FormTimeout, DefaultFormTimeout),
		csvTimeout:  orDefault(cfg.CSVTimeout, DefaultCSVTimeout),
		rateLimiter: rate.NewLimiter(limit, burst),
		logger:      logger.Named("backend"),
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

type payloadKind int

const (
	payloadNone payloadKind = iota
	payloadJSON
	payloadForm
)

// formFile is the file part of a multipart body
type formFile struct {
	field    string
	filename string
	content  []byte
}

// request describes one outbound call
type request struct {
	method   string
	endpoint string
	url      string
	kind     payloadKind
	json     interface{}
	fields   [][2]string
	file     *formFile
	timeout  time.Duration
}

// response is a fully read backend response
type response struct {
	status int
	header http.Header
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (c *Client) endpointURL(endpoint string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, endpoint)
}

// do executes a request under its deadline and reads the whole body.
// The deadline's timer is released on every return path.
func (c *Client) do(ctx context.Context, r request) (*response, error) {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = c.jsonTimeout
		if r.kind == payloadForm {
			timeout = c.formTimeout
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, c.transportError(ctx, r.endpoint, timeout, err)
	}

	body, contentType, err := encode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", r.endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "ProductStudio/1.0")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("endpoint", r.endpoint),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, c.transportError(ctx, r.endpoint, timeout, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(ctx, r.endpoint, timeout, err)
	}

	c.logger.Debug("request completed",
		zap.String("endpoint", r.endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)))

	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

// transportError classifies a failure that produced no response
func (c *Client) transportError(ctx context.Context, endpoint string, timeout time.Duration, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &domain.Error{
			Kind:     domain.ErrTimeout,
			Endpoint: endpoint,
			Message: fmt.Sprintf(
				"%s timed out after %s. The server may still be working on a large request; please try again.",
				endpoint, timeout),
		}
	}
	return &domain.Error{
		Kind:     domain.ErrRemote,
		Endpoint: endpoint,
		Message:  fmt.Sprintf("%s failed: %v", endpoint, err),
	}
}

func encode(r request) (io.Reader, string, error) {
	switch r.kind {
	case payloadJSON:
		data, err := json.Marshal(r.json)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	case payloadForm:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		if r.file != nil {
			part, err := w.CreateFormFile(r.file.field, r.file.filename)
			if err != nil {
				return nil, "", err
			}
			if _, err := part.Write(r.file.content); err != nil {
				return nil, "", err
			}
		}
		for _, f := range r.fields {
			if err := w.WriteField(f[0], f[1]); err != nil {
				return nil, "", err
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return &buf, w.FormDataContentType(), nil
	default:
		return nil, "", nil
	}
}

// postJSON sends a JSON body and returns the raw success body
func (c *Client) postJSON(ctx context.Context, endpoint string, body interface{}, timeout time.Duration) (json.RawMessage, error) {
	resp, err := c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: endpoint,
		url:      c.endpointURL(endpoint),
		kind:     payloadJSON,
		json:     body,
		timeout:  timeout,
	})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, remoteError(endpoint, resp.status, resp.body)
	}
	return json.RawMessage(resp.body), nil
}

// ParseCSV uploads a CSV file for parsing and optional brand-site enrichment
func (c *Client) ParseCSV(ctx context.Context, in domain.CSVRequest) (json.RawMessage, error) {
	fields := [][2]string{{"category", string(in.Category)}}
	if brandURL := strings.TrimSpace(in.BrandURL); brandURL != "" {
		fields = append(fields, [2]string{"brand_url", brandURL})
	}

	c.logger.Info("uploading csv",
		zap.String("file", in.File.Filename),
		zap.Int("bytes", len(in.File.Content)),
		zap.String("category", string(in.Category)),
		zap.Bool("brand_url", in.BrandURL != ""))

	resp, err := c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: EndpointParseCSV,
		url:      c.endpointURL(EndpointParseCSV),
		kind:     payloadForm,
		file:     &formFile{field: "file", filename: in.File.Filename, content: in.File.Content},
		fields:   fields,
		timeout:  c.csvTimeout,
	})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, remoteError(EndpointParseCSV, resp.status, resp.body)
	}
	return json.RawMessage(resp.body), nil
}

// SearchProduct looks a product up by code or free text
func (c *Client) SearchProduct(ctx context.Context, query string, category domain.Category) (json.RawMessage, error) {
	c.logger.Info("searching product", zap.String("query", query), zap.String("category", string(category)))
	return c.postJSON(ctx, EndpointSearchProduct, map[string]string{
		"query":       query,
		"category":    string(category),
		"search_type": "sku",
	}, 0)
}

// ScrapeURL asks the backend to scrape a supplier product page
func (c *Client) ScrapeURL(ctx context.Context, pageURL string, category domain.Category) (json.RawMessage, error) {
	c.logger.Info("scraping url", zap.String("url", pageURL), zap.String("category", string(category)))
	return c.postJSON(ctx, EndpointScrapeURL, map[string]string{
		"url":      pageURL,
		"category": string(category),
	}, 0)
}

// GenerateBrandVoice regenerates descriptive copy for the given products
func (c *Client) GenerateBrandVoice(ctx context.Context, products []domain.Product, category domain.Category) (json.RawMessage, error) {
	return c.postJSON(ctx, EndpointBrandVoice, map[string]interface{}{
		"products": products,
		"category": string(category),
	}, 0)
}

// Export renders products into a downloadable file and returns its bytes
func (c *Client) Export(ctx context.Context, products []domain.Product, target domain.ExportTarget) ([]byte, error) {
	endpoint := EndpointExport
	body := map[string]interface{}{"products": products}
	switch target {
	case domain.ExportShopify:
		endpoint = EndpointExportShopify
	case domain.ExportCSV, domain.ExportExcel:
		body["format"] = string(target)
	default:
		return nil, domain.NewValidationError("unknown export target %q", target)
	}

	resp, err := c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: endpoint,
		url:      c.endpointURL(endpoint),
		kind:     payloadJSON,
		json:     body,
	})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, exportError(endpoint, resp.status, resp.body)
	}
	return resp.body, nil
}

// Categories fetches the category labels the backend accepts
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointCategories,
		url:      c.endpointURL(EndpointCategories),
	})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, remoteError(EndpointCategories, resp.status, resp.body)
	}

	var out struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return out.Categories, nil
}

// Health probes the backend liveness endpoint at the host root
func (c *Client) Health(ctx context.Context) error {
	healthURL := c.endpointURL(EndpointHealth)
	if base, err := url.Parse(c.baseURL); err == nil && base.Host != "" {
		healthURL = base.ResolveReference(&url.URL{Path: "/" + EndpointHealth}).String()
	}

	resp, err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointHealth,
		url:      healthURL,
		timeout:  5 * time.Second,
	})
	if err != nil {
		return err
	}
	if !resp.ok() {
		return remoteError(EndpointHealth, resp.status, resp.body)
	}
	return nil
}
