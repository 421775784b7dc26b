package model

import (
	"github.com/gin-gonic/gin"

	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/handlers/modelhandler"
)

// ModelRoute registers the public model listing endpoint.
type ModelRoute struct {
	handler *modelhandler.ModelHandler
}

func NewModelRoute(handler *modelhandler.ModelHandler) *ModelRoute {
	return &ModelRoute{handler: handler}
}

func (route *ModelRoute) RegisterRouter(router gin.IRouter) {
	router.GET("/models", route.handler.List)
}
