package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"bankpilot.app/concierge/internal/http/handler"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	AdminAPIKey    string
}

func SetupRoutes(router *gin.Engine, chat handler.ChatService, registry handler.RegistryReader, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		chatHandler := handler.NewChatHandler(chat, cfg.RequestTimeout)
		ChatRouter(v1, chatHandler)

		registryHandler := handler.NewRegistryHandler(registry, cfg.AdminAPIKey)
		RegistryRouter(v1.Group("/registry"), registryHandler)
	}
}
