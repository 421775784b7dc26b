// Package modelhandler lists the chat models the registry can serve.
package modelhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/creedpetitt/ai-services-backend/internal/domain/model"
	modelresponses "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/responses/model"
)

// ModelHandler handles model listing requests.
type ModelHandler struct {
	registry *model.Registry
}

// NewModelHandler creates a model handler.
func NewModelHandler(registry *model.Registry) *ModelHandler {
	return &ModelHandler{registry: registry}
}

// List returns the available models in sorted order.
func (h *ModelHandler) List(c *gin.Context) {
	names := h.registry.Names()
	data := make([]modelresponses.ModelResponse, 0, len(names))
	for _, name := range names {
		entry := modelresponses.ModelResponse{ID: name, Object: "model"}
		if backend, err := h.registry.Resolve(c.Request.Context(), name); err == nil {
			entry.SupportsImages = backend.SupportsImages()
		}
		data = append(data, entry)
	}

	c.JSON(http.StatusOK, modelresponses.ModelListResponse{Object: "list", Data: data})
}
