package http

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// attachmentDownloader streams an exported file to the client as a download
type attachmentDownloader struct {
	c *gin.Context
}

func (d attachmentDownloader) Download(ctx context.Context, filename, contentType string, content io.Reader) error {
	d.c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	d.c.Header("Content-Type", contentType)
	if sized, ok := content.(interface{ Len() int }); ok {
		d.c.Header("Content-Length", fmt.Sprint(sized.Len()))
	}
	d.c.Status(http.StatusOK)

	_, err := io.Copy(d.c.Writer, content)
	return err
}
