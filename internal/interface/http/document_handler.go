package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dkoval/ragchat/internal/domain/document"
)

// UploadDocument handles multipart upload and enqueues indexing.
func (h *Handler) UploadDocument(c *gin.Context) {
	if _, ok := getClaims(c); !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing token", nil))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "file is required", err))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "failed to read upload", err))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "upload_failed", "failed to read file", err))
		return
	}
	resp, err := h.docSvc.Upload(c.Request.Context(), document.UploadRequest{
		Filename: fileHeader.Filename,
		Title:    c.PostForm("title"),
		MimeType: fileHeader.Header.Get("Content-Type"),
		Content:  data,
	})
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

// ListDocuments returns every uploaded document with pipeline status.
func (h *Handler) ListDocuments(c *gin.Context) {
	if _, ok := getClaims(c); !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing token", nil))
		return
	}
	docs, err := h.docSvc.List(c.Request.Context())
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": docs})
}

// GetDocument returns a single document's metadata and stage history.
func (h *Handler) GetDocument(c *gin.Context) {
	if _, ok := getClaims(c); !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing token", nil))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "invalid document id", err))
		return
	}
	doc, err := h.docSvc.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, doc)
}
