package image

import (
	"github.com/gin-gonic/gin"

	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/handlers/imagehandler"
	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/middlewares"
)

// ImageRoute registers image generation endpoints. Generation is open to
// anonymous callers under their own quota; history requires authentication.
type ImageRoute struct {
	handler *imagehandler.ImageHandler
}

func NewImageRoute(handler *imagehandler.ImageHandler) *ImageRoute {
	return &ImageRoute{handler: handler}
}

func (route *ImageRoute) RegisterRouter(router gin.IRouter) {
	images := router.Group("/images")
	images.POST("/generations", route.handler.Generate)
	images.GET("/mine", middlewares.RequireAuth(), route.handler.ListMine)
}
