package upload

import (
	"github.com/gin-gonic/gin"

	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/handlers/uploadhandler"
	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/middlewares"
)

// UploadRoute registers the upload endpoint and static serving of stored
// files.
type UploadRoute struct {
	handler   *uploadhandler.UploadHandler
	uploadDir string
	baseURL   string
}

func NewUploadRoute(handler *uploadhandler.UploadHandler, uploadDir, baseURL string) *UploadRoute {
	return &UploadRoute{handler: handler, uploadDir: uploadDir, baseURL: baseURL}
}

func (route *UploadRoute) RegisterRouter(router gin.IRouter) {
	router.POST("/uploads", middlewares.RequireAuth(), route.handler.Upload)
}

// RegisterStatic serves stored files on the engine root so upload URLs
// resolve without auth.
func (route *UploadRoute) RegisterStatic(engine *gin.Engine) {
	engine.Static(route.baseURL, route.uploadDir)
}
