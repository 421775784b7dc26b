package conversation

import (
	"github.com/gin-gonic/gin"

	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/handlers/conversationhandler"
	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/middlewares"
)

// ConversationRoute registers the conversation REST endpoints, all of which
// require authentication.
type ConversationRoute struct {
	handler *conversationhandler.ConversationHandler
}

func NewConversationRoute(handler *conversationhandler.ConversationHandler) *ConversationRoute {
	return &ConversationRoute{handler: handler}
}

func (route *ConversationRoute) RegisterRouter(router gin.IRouter) {
	conversations := router.Group("/conversations", middlewares.RequireAuth())
	conversations.GET("", route.handler.List)
	conversations.GET("/:id", route.handler.Get)
	conversations.DELETE("/:id", route.handler.Delete)
}
