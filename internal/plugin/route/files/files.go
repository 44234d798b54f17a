// Package files serves stored attachments. When the file store supports
// signed URLs and direct download is enabled, downloads redirect to the
// backend instead of streaming through the service.
package files

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/firedesk/records-service/internal/config"
	"github.com/firedesk/records-service/internal/registry/attach"
	registrystore "github.com/firedesk/records-service/internal/registry/store"
)

// MountRoutes mounts GET /uploads/:filename.
func MountRoutes(r *gin.Engine, files attach.FileStore, cfg *config.Config) {
	r.GET("/uploads/:filename", func(c *gin.Context) {
		download(c, files, cfg)
	})
}

func download(c *gin.Context, files attach.FileStore, cfg *config.Config) {
	filename := c.Param("filename")

	if cfg.S3DirectDownload {
		u, err := files.SignedURL(c.Request.Context(), filename, cfg.S3DownloadURLExpiresIn)
		if err == nil {
			c.Redirect(http.StatusTemporaryRedirect, u.String())
			return
		}
		if !errors.Is(err, attach.ErrSignedURLUnsupported) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		// Fall through to streaming.
	}

	reader, err := files.Retrieve(c.Request.Context(), filename)
	if err != nil {
		var notFound *registrystore.NotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		_ = c.Error(err)
	}
}
