package router

import (
	"github.com/gin-gonic/gin"

	"bankpilot.app/concierge/internal/http/handler"
)

func ChatRouter(rg *gin.RouterGroup, h *handler.ChatHandler) {
	rg.POST("/chat", h.Chat)
	rg.POST("/sessions/:id/reset", h.Reset)
}
