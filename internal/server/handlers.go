package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/user/voicechat/internal/chat"
	"github.com/user/voicechat/internal/logger"
	"github.com/user/voicechat/internal/provider"
	"github.com/user/voicechat/internal/store"
)

// ChatHandler serves the chat turn endpoint
type ChatHandler struct {
	svc *chat.Service
	log *logger.Logger
}

// NewChatHandler creates a ChatHandler
func NewChatHandler(log *logger.Logger, svc *chat.Service) *ChatHandler {
	return &ChatHandler{svc: svc, log: log}
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req struct {
		Message        string `json:"message"`
		Persona        string `json:"persona"`
		ConversationID string `json:"conversation_id"`
		EnableSearch   bool   `json:"enable_search"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	// A dropped client must not strand a half-persisted turn, so the turn
	// runs on a non-cancelable context; outbound calls carry their own
	// timeouts.
	ctx := context.WithoutCancel(c.Request.Context())

	resp, err := h.svc.Reply(ctx, chat.Request{
		Message:        req.Message,
		Persona:        req.Persona,
		ConversationID: req.ConversationID,
		EnableSearch:   req.EnableSearch,
	})
	if err != nil {
		h.log.Error("chat turn failed", "conversation_id", req.ConversationID, "error", err)
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, store.ErrUnknownConversation):
			status = http.StatusNotFound
		case isProviderError(err):
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id": resp.ConversationID,
		"reply":           resp.Reply,
	})
}

func isProviderError(err error) bool {
	if errors.Is(err, provider.ErrNoAPIKey) ||
		errors.Is(err, provider.ErrInvalidResponse) ||
		errors.Is(err, provider.ErrRateLimited) {
		return true
	}
	var completionErr *chat.CompletionError
	return errors.As(err, &completionErr)
}

// HistoryHandler serves the message search endpoint
type HistoryHandler struct {
	store *store.Store
	log   *logger.Logger
}

// NewHistoryHandler creates a HistoryHandler
func NewHistoryHandler(log *logger.Logger, st *store.Store) *HistoryHandler {
	return &HistoryHandler{store: st, log: log}
}

// Search handles GET /api/history/search
func (h *HistoryHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	results, err := h.store.SearchMessages(query, limit)
	if err != nil {
		h.log.Error("history search failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if results == nil {
		results = []*store.Message{}
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// HealthCheck handles GET /healthcheck
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
