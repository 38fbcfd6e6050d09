package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkoval/ragchat/internal/domain/chat"
	"github.com/dkoval/ragchat/internal/domain/document"
	"github.com/dkoval/ragchat/internal/domain/model"
	"github.com/dkoval/ragchat/internal/domain/session"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	chatSvc    *chat.Service
	docSvc     *document.Service
	sessionSvc *session.Service
	models     *model.Manager
	logger     *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(chatSvc *chat.Service, docSvc *document.Service, sessionSvc *session.Service, models *model.Manager, logger *slog.Logger) *Handler {
	return &Handler{
		chatSvc:    chatSvc,
		docSvc:     docSvc,
		sessionSvc: sessionSvc,
		models:     models,
		logger:     logger.With("component", "http.handler"),
	}
}

// CreateSession mints a session token for a new browser conversation.
func (h *Handler) CreateSession(c *gin.Context) {
	sess, err := h.sessionSvc.Create()
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// ListModels reports the providers that can be activated and which one is live.
func (h *Handler) ListModels(c *gin.Context) {
	providers := h.models.Providers()
	items := make([]gin.H, 0, len(providers))
	active := h.models.Provider()
	for _, p := range providers {
		items = append(items, gin.H{
			"provider": p,
			"active":   p == active,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"providers":   items,
		"model":       h.models.Info(),
		"initialized": h.models.IsInitialized(),
	})
}

type activatePayload struct {
	Provider string `json:"provider"`
}

// ActivateModel switches the live chat provider.
func (h *Handler) ActivateModel(c *gin.Context) {
	var req activatePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	if err := h.models.Activate(model.Provider(req.Provider)); err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"provider": h.models.Provider(),
		"model":    h.models.Info(),
	})
}

type chatPayload struct {
	Message      string `json:"message"`
	Persona      string `json:"persona"`
	CustomPrompt string `json:"customPrompt"`
	UseRAG       *bool  `json:"useRag"`
	TopK         int    `json:"topK"`
}

func (h *Handler) chatRequest(c *gin.Context) (chat.Request, bool) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing token", nil))
		return chat.Request{}, false
	}
	var req chatPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return chat.Request{}, false
	}
	return chat.Request{
		SessionID:    claims.SessionID,
		Message:      req.Message,
		Persona:      req.Persona,
		CustomPrompt: req.CustomPrompt,
		UseRAG:       req.UseRAG,
		TopK:         req.TopK,
	}, true
}

// Chat answers one user turn synchronously.
func (h *Handler) Chat(c *gin.Context) {
	req, ok := h.chatRequest(c)
	if !ok {
		return
	}
	resp, err := h.chatSvc.Chat(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ChatStream streams the answer using Server-Sent Events.
func (h *Handler) ChatStream(c *gin.Context) {
	req, ok := h.chatRequest(c)
	if !ok {
		return
	}
	stream, err := h.chatSvc.Stream(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "stream_unsupported", "streaming not supported", nil))
		return
	}

	for chunk := range stream {
		payload, err := json.Marshal(chunk)
		if err != nil {
			h.logger.Error("marshal chunk failed", "error", err)
			continue
		}
		c.Writer.Write([]byte("data: "))
		c.Writer.Write(payload)
		c.Writer.Write([]byte("\n\n"))
		flusher.Flush()
	}
}

// GetHistory returns the session transcript.
func (h *Handler) GetHistory(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing token", nil))
		return
	}
	msgs, err := h.chatSvc.History(c.Request.Context(), claims.SessionID)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// ClearHistory drops the session transcript.
func (h *Handler) ClearHistory(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing token", nil))
		return
	}
	if err := h.chatSvc.ClearHistory(c.Request.Context(), claims.SessionID); err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// Status reports model, retrieval, and conversation state for the sidebar.
func (h *Handler) Status(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing token", nil))
		return
	}
	status, err := h.chatSvc.Status(c.Request.Context(), claims.SessionID)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, status)
}

// Reset wipes indexed documents, vectors, and this session's transcript.
func (h *Handler) Reset(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing token", nil))
		return
	}
	if err := h.docSvc.Reset(c.Request.Context()); err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	if err := h.chatSvc.ClearHistory(c.Request.Context(), claims.SessionID); err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	h.models.Reset()
	c.Status(http.StatusNoContent)
}

// Healthz answers liveness probes.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
