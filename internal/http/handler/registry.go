package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"bankpilot.app/concierge/internal/http/dto"
	"bankpilot.app/concierge/internal/registry"
)

// RegistryReader is the read-only slice of the entity registry the debug
// endpoint exposes.
type RegistryReader interface {
	Snapshot(ctx context.Context) (*registry.Snapshot, error)
}

type RegistryHandler struct {
	registry    RegistryReader
	adminAPIKey string
}

func NewRegistryHandler(registry RegistryReader, adminAPIKey string) *RegistryHandler {
	return &RegistryHandler{
		registry:    registry,
		adminAPIKey: adminAPIKey,
	}
}

func (h *RegistryHandler) Show(c *gin.Context) {
	ctx := c.Request.Context()

	snap, err := h.registry.Snapshot(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load registry snapshot", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load registry"})
		return
	}

	resp := dto.RegistryResponse{
		Banks:      canonicals(snap.Banks),
		Categories: canonicals(snap.Categories),
		Products:   canonicals(snap.Products),
		FetchedAt:  snap.FetchedAt,
	}
	for term := range snap.VagueTerms {
		resp.VagueTerms = append(resp.VagueTerms, term)
	}

	c.JSON(http.StatusOK, resp)
}

// RequireAdminAPIKey guards the debug endpoints.
func (h *RegistryHandler) RequireAdminAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.adminAPIKey == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin API not configured"})
			c.Abort()
			return
		}

		apiKey := c.GetHeader("X-Admin-API-Key")
		if apiKey == "" {
			apiKey = c.GetHeader("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}

		if apiKey != h.adminAPIKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func canonicals(entities []registry.Entity) []string {
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Canonical
	}
	return names
}
