package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bankpilot.app/concierge/internal/answer"
	"bankpilot.app/concierge/internal/http/dto"
)

// ChatService is the slice of the answer service the chat handler needs.
type ChatService interface {
	Answer(ctx context.Context, sessionID, utterance string) (*answer.Result, error)
	Reset(sessionID string)
}

type ChatHandler struct {
	service ChatService
	timeout time.Duration
}

// NewChatHandler wires the answer service behind the chat endpoints. timeout
// bounds one whole turn, routing plus handler execution.
func NewChatHandler(service ChatService, timeout time.Duration) *ChatHandler {
	return &ChatHandler{
		service: service,
		timeout: timeout,
	}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(c.Request.Context(), "invalid chat request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	result, err := h.service.Answer(ctx, req.SessionID, req.Utterance)
	if err != nil {
		slog.ErrorContext(ctx, "failed to answer utterance", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to answer"})
		return
	}

	resp := dto.ChatResponse{
		Reply:         result.Reply,
		Operations:    result.Decision.Operations,
		ClarifyPrompt: result.Decision.ClarifyPrompt,
	}
	if c.Query("debug") == "1" {
		resp.Debug = &dto.ChatDebug{
			Rewritten: result.Decision.Rewritten,
			Signals:   result.Decision.Signals,
			Evidence:  result.Decision.Evidence,
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) Reset(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id is required"})
		return
	}

	h.service.Reset(sessionID)

	c.JSON(http.StatusOK, dto.ResetResponse{
		SessionID: sessionID,
		Status:    "reset",
	})
}
