package usage

import (
	"github.com/gin-gonic/gin"

	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/handlers/usagehandler"
)

// UsageRoute registers the usage endpoint. Anonymous callers see their
// quota balances; authenticated callers additionally get token usage.
type UsageRoute struct {
	handler *usagehandler.UsageHandler
}

func NewUsageRoute(handler *usagehandler.UsageHandler) *UsageRoute {
	return &UsageRoute{handler: handler}
}

func (route *UsageRoute) RegisterRouter(router gin.IRouter) {
	router.GET("/usage", route.handler.Get)
}
