package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/productstudio/backend/internal/domain"
	"github.com/productstudio/backend/internal/usecase"
	"go.uber.org/zap"
)

// maxUploadBytes caps the size of an uploaded CSV
const maxUploadBytes = 20 << 20

// Sessions is the session registry the handler works against
type Sessions interface {
	Create() (string, *usecase.Machine)
	Get(id string) (*usecase.Machine, error)
	Delete(id string)
}

// HealthChecker probes the product backend
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	sessions Sessions
	exporter domain.Exporter
	backend  HealthChecker
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(sessions Sessions, exporter domain.Exporter, backend HealthChecker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions: sessions,
		exporter: exporter,
		backend:  backend,
		logger:   logger,
	}
}

// HealthCheck returns the health status of the API and its backend
func (h *Handler) HealthCheck(c *gin.Context) {
	backendStatus := "ok"
	if h.backend == nil {
		backendStatus = "unconfigured"
	} else if err := h.backend.Health(c.Request.Context()); err != nil {
		h.logger.Warn("backend health check failed", zap.Error(err))
		backendStatus = "unreachable"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "product-studio",
		"version": "1.0.0",
		"backend": backendStatus,
	})
}

type categoryResponse struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
}

// ListCategories returns the nine accepted categories
func (h *Handler) ListCategories(c *gin.Context) {
	out := make([]categoryResponse, 0, len(domain.Categories))
	for _, category := range domain.Categories {
		out = append(out, categoryResponse{Name: string(category), Subcategories: category.Subcategories()})
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

// CreateSession starts a new operator session
func (h *Handler) CreateSession(c *gin.Context) {
	id, m := h.sessions.Create()
	c.JSON(http.StatusCreated, gin.H{
		"session_id": id,
		"session":    m.Snapshot(),
	})
}

// GetSession returns the current state of a session
func (h *Handler) GetSession(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, m.Snapshot())
}

// DeleteSession ends a session
func (h *Handler) DeleteSession(c *gin.Context) {
	h.sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// StartCSVRun uploads a CSV file (multipart: file, category, brand_url)
func (h *Handler) StartCSVRun(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	form := usecase.Form{
		Mode:     domain.SourceCSV,
		Category: c.PostForm("category"),
		BrandURL: c.PostForm("brand_url"),
	}

	if header, err := c.FormFile("file"); err == nil {
		if header.Size > maxUploadBytes {
			h.writeError(c, domain.NewValidationError("CSV file is larger than %d MB", maxUploadBytes>>20))
			return
		}
		file, err := header.Open()
		if err != nil {
			h.writeError(c, domain.NewValidationError("could not read uploaded file: %v", err))
			return
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			h.writeError(c, domain.NewValidationError("could not read uploaded file: %v", err))
			return
		}
		form.File = &domain.Upload{Filename: header.Filename, Content: content}
	}

	h.run(c, m, form)
}

type searchRunRequest struct {
	Category string `json:"category"`
	SKU      string `json:"sku"`
	Barcode  string `json:"barcode"`
	EAN      string `json:"ean"`
	Text     string `json:"text"`
}

// StartSearchRun looks a product up by SKU, barcode, EAN or text
func (h *Handler) StartSearchRun(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	var req searchRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	h.run(c, m, usecase.Form{
		Mode:     domain.SourceSearch,
		Category: req.Category,
		Criteria: domain.SearchCriteria{SKU: req.SKU, Barcode: req.Barcode, EAN: req.EAN, Text: req.Text},
	})
}

type urlRunRequest struct {
	Category string `json:"category"`
	URL      string `json:"url"`
}

// StartURLRun scrapes a supplier product page
func (h *Handler) StartURLRun(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	var req urlRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	h.run(c, m, usecase.Form{Mode: domain.SourceURL, Category: req.Category, URL: req.URL})
}

// run executes a run for the lifetime of the request and answers with the
// resulting snapshot
func (h *Handler) run(c *gin.Context, m *usecase.Machine, form usecase.Form) {
	if err := m.Start(c.Request.Context(), form); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m.Snapshot())
}

// ResetSession discards the current results
func (h *Handler) ResetSession(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
	if err := m.Reset(); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m.Snapshot())
}

type productPatch struct {
	Name         *string           `json:"name"`
	SKU          *string           `json:"sku"`
	Barcode      *string           `json:"barcode"`
	Category     *string           `json:"category"`
	Descriptions map[string]string `json:"descriptions"`
}

// UpdateProduct edits fields of one product in place
func (h *Handler) UpdateProduct(c *gin.Context) {
	store, id, ok := h.product(c)
	if !ok {
		return
	}

	var patch productPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.writeError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	// reject the whole patch before touching the record
	if patch.Category != nil && *patch.Category != "" {
		if _, ok := domain.ParseCategory(*patch.Category); !ok {
			h.writeError(c, domain.NewValidationError("unknown category %q", *patch.Category))
			return
		}
	}
	for which := range patch.Descriptions {
		switch which {
		case domain.DescriptionShort, domain.DescriptionMeta, domain.DescriptionLong:
		default:
			h.writeError(c, domain.NewValidationError("unknown description field %q", which))
			return
		}
	}

	fields := []struct {
		name  string
		value *string
	}{
		{usecase.FieldName, patch.Name},
		{usecase.FieldSKU, patch.SKU},
		{usecase.FieldBarcode, patch.Barcode},
		{usecase.FieldCategory, patch.Category},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if err := store.SetField(id, f.name, *f.value); err != nil {
			h.writeError(c, err)
			return
		}
	}
	for which, value := range patch.Descriptions {
		if err := store.SetDescriptionField(id, which, value); err != nil {
			h.writeError(c, err)
			return
		}
	}

	product, _ := store.Get(id)
	c.JSON(http.StatusOK, product)
}

// RegenerateProduct rewrites one product's copy through the backend
func (h *Handler) RegenerateProduct(c *gin.Context) {
	store, id, ok := h.product(c)
	if !ok {
		return
	}
	if err := store.Regenerate(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	product, _ := store.Get(id)
	c.JSON(http.StatusOK, product)
}

// ExportProducts streams the exported file as an attachment
func (h *Handler) ExportProducts(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
	target, ok := domain.ParseExportTarget(c.DefaultQuery("target", string(domain.ExportShopify)))
	if !ok {
		h.writeError(c, domain.NewValidationError("unknown export target %q", c.Query("target")))
		return
	}
	store, err := m.Store()
	if err != nil {
		h.writeError(c, err)
		return
	}

	dispatcher := usecase.NewExportDispatcher(h.exporter, attachmentDownloader{c: c}, h.logger)
	if _, err := dispatcher.Export(c.Request.Context(), store.Products(), target); err != nil {
		if c.Writer.Written() {
			h.logger.Error("export stream interrupted", zap.Error(err))
			return
		}
		h.writeError(c, err)
	}
}

func (h *Handler) machine(c *gin.Context) (*usecase.Machine, bool) {
	m, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return nil, false
	}
	return m, true
}

func (h *Handler) product(c *gin.Context) (*usecase.Store, string, bool) {
	m, ok := h.machine(c)
	if !ok {
		return nil, "", false
	}
	store, err := m.Store()
	if err != nil {
		h.writeError(c, err)
		return nil, "", false
	}
	id := c.Param("pid")
	if _, found := store.Get(id); !found {
		h.writeError(c, &domain.Error{Kind: domain.ErrProductNotFound, Message: "product " + id + " not found"})
		return nil, "", false
	}
	return store, id, true
}

// statusFor maps a pipeline error kind to an HTTP status
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrSessionNotFound, domain.ErrProductNotFound:
		return http.StatusNotFound
	case domain.ErrEmptyResult, domain.ErrBlocked:
		return http.StatusUnprocessableEntity
	case domain.ErrRemote, domain.ErrExport:
		return http.StatusBadGateway
	case domain.ErrTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends the single blocking notification for a failed action
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		if !errors.Is(err, context.Canceled) {
			message = "internal server error"
		}
	}
	if errors.Is(err, domain.ErrSessionNotFound) {
		message = "session not found or expired"
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": strings.TrimSpace(message),
		"kind":  domain.KindName(err),
	})
}
