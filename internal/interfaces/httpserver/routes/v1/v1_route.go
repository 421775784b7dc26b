package v1

import (
	"github.com/gin-gonic/gin"

	chatroute "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/routes/v1/chat"
	conversationroute "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/routes/v1/conversation"
	imageroute "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/routes/v1/image"
	modelroute "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/routes/v1/model"
	uploadroute "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/routes/v1/upload"
	usageroute "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/routes/v1/usage"
)

// V1Route aggregates all /v1 API routes.
type V1Route struct {
	chat          *chatroute.ChatRoute
	conversations *conversationroute.ConversationRoute
	images        *imageroute.ImageRoute
	models        *modelroute.ModelRoute
	uploads       *uploadroute.UploadRoute
	usage         *usageroute.UsageRoute
}

func NewV1Route(
	chat *chatroute.ChatRoute,
	conversations *conversationroute.ConversationRoute,
	images *imageroute.ImageRoute,
	models *modelroute.ModelRoute,
	uploads *uploadroute.UploadRoute,
	usage *usageroute.UsageRoute,
) *V1Route {
	return &V1Route{
		chat:          chat,
		conversations: conversations,
		images:        images,
		models:        models,
		uploads:       uploads,
		usage:         usage,
	}
}

func (route *V1Route) RegisterRouter(router gin.IRouter) {
	v1 := router.Group("/v1")
	route.chat.RegisterRouter(v1)
	route.conversations.RegisterRouter(v1)
	route.images.RegisterRouter(v1)
	route.models.RegisterRouter(v1)
	route.uploads.RegisterRouter(v1)
	route.usage.RegisterRouter(v1)
}

// RegisterStatic mounts routes that must live on the engine root.
func (route *V1Route) RegisterStatic(engine *gin.Engine) {
	route.uploads.RegisterStatic(engine)
}
