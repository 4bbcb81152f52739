package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FileDownloader saves exported files into a directory
type FileDownloader struct {
	dir    string
	logger *zap.Logger

	// Saved is the path of the last file written
	Saved string
}

// NewFileDownloader creates a downloader writing into dir
func NewFileDownloader(dir string, logger *zap.Logger) *FileDownloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileDownloader{dir: dir, logger: logger}
}

// Download writes content to dir/filename. The file only appears once it is
// complete; the temporary file is removed on every failure.
func (d *FileDownloader) Download(ctx context.Context, filename, contentType string, content io.Reader) (err error) {
	if filename == "" || filepath.Base(filename) != filename {
		return fmt.Errorf("invalid file name %q", filename)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", d.dir, err)
	}

	tmp, err := os.CreateTemp(d.dir, "."+filename+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, contextReader{ctx: ctx, r: content}); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}

	target := filepath.Join(d.dir, filename)
	if err = os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}

	d.Saved = target
	d.logger.Info("file saved", zap.String("path", target), zap.String("content_type", contentType))
	return nil
}

// contextReader stops a copy once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
