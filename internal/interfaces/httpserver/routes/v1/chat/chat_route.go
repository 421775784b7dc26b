package chat

import (
	"github.com/gin-gonic/gin"

	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/handlers/chathandler"
)

// ChatRoute registers the chat turn endpoint. Anonymous callers are allowed;
// the quota ledger limits them separately.
type ChatRoute struct {
	handler *chathandler.ChatHandler
}

func NewChatRoute(handler *chathandler.ChatHandler) *ChatRoute {
	return &ChatRoute{handler: handler}
}

func (route *ChatRoute) RegisterRouter(router gin.IRouter) {
	router.POST("/chat", route.handler.Turn)
}
