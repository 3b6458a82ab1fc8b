package router

import (
	"github.com/gin-gonic/gin"

	"bankpilot.app/concierge/internal/http/handler"
)

// RegistryRouter exposes the entity registry for debugging. Admin only.
func RegistryRouter(rg *gin.RouterGroup, h *handler.RegistryHandler) {
	rg.Use(h.RequireAdminAPIKey())
	rg.GET("", h.Show)
}
