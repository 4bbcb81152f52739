package usecase

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/productstudio/backend/internal/domain"
	"go.uber.org/zap"
)

// ExportDispatcher renders products through the export backend and hands
// the file to a downloader
type ExportDispatcher struct {
	exporter   domain.Exporter
	downloader domain.Downloader
	now        func() time.Time
	logger     *zap.Logger
}

// NewExportDispatcher creates an export dispatcher
func NewExportDispatcher(exporter domain.Exporter, downloader domain.Downloader, logger *zap.Logger) *ExportDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportDispatcher{
		exporter:   exporter,
		downloader: downloader,
		now:        time.Now,
		logger:     logger,
	}
}

// ExportFilename names an export file: products-<target>-<unix millis>.<ext>
func ExportFilename(target domain.ExportTarget, at time.Time) string {
	return fmt.Sprintf("products-%s-%d.%s", target, at.UnixMilli(), target.Extension())
}

// Export sends the full collection to the backend and delivers the result.
// It returns the filename handed to the downloader.
func (d *ExportDispatcher) Export(ctx context.Context, products []domain.Product, target domain.ExportTarget) (string, error) {
	if _, ok := domain.ParseExportTarget(string(target)); !ok {
		return "", domain.NewValidationError("unknown export target %q", target)
	}
	if len(products) == 0 {
		return "", domain.NewValidationError("There are no products to export")
	}

	data, err := d.exporter.Export(ctx, products, target)
	if err != nil {
		d.logger.Warn("export failed", zap.String("target", string(target)), zap.Error(err))
		return "", err
	}

	filename := ExportFilename(target, d.now())
	if err := d.downloader.Download(ctx, filename, target.ContentType(), bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("%w: failed to save %s: %v", domain.ErrExport, filename, err)
	}

	d.logger.Info("export delivered",
		zap.String("target", string(target)),
		zap.String("file", filename),
		zap.Int("products", len(products)),
		zap.Int("bytes", len(data)))
	return filename, nil
}
