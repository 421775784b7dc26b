// Package uploadhandler accepts image uploads that chat turns can reference
// by URL.
package uploadhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/storage"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

// UploadHandler handles multipart image uploads.
type UploadHandler struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewUploadHandler creates an upload handler.
func NewUploadHandler(store storage.Store, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{store: store, logger: logger}
}

// UploadResponse returns the stored file's URL.
type UploadResponse struct {
	Object string `json:"object"`
	URL    string `json:"url"`
}

// Upload stores the "file" part of a multipart request and returns its URL.
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		platformerrors.WriteValidationError(c, "multipart field \"file\" is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		platformerrors.WriteValidationError(c, "failed to open uploaded file")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	url, err := h.store.Save(c.Request.Context(), fileHeader.Filename, contentType, file, fileHeader.Size)
	if err != nil {
		platformerrors.WriteError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, UploadResponse{Object: "upload", URL: url})
}
