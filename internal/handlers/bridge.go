package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"messaging-sync/internal/engine"
	"messaging-sync/internal/models"
	"messaging-sync/internal/observability"
)

// SyncEngine is the part of the engine the bridge drives.
type SyncEngine interface {
	Snapshot() models.View
	SetActiveConversation(id int64)
	QueueMessage(body string) (models.ChatMessage, error)
	SendTyping(ctx context.Context)
}

// ActivityReporter receives focus and visibility changes from the UI.
type ActivityReporter interface {
	Focus()
	Blur()
	SetVisibility(visible bool)
}

// BridgeHandler exposes the engine's view model and commands over HTTP.
type BridgeHandler struct {
	engine   SyncEngine
	activity ActivityReporter
}

// NewBridgeHandler builds a BridgeHandler.
func NewBridgeHandler(engine SyncEngine, activity ActivityReporter) *BridgeHandler {
	return &BridgeHandler{engine: engine, activity: activity}
}

// Register wires the bridge routes onto r.
func (h *BridgeHandler) Register(r gin.IRoutes) {
	r.GET("/state", h.State)
	r.PUT("/active-conversation", h.SetActiveConversation)
	r.POST("/messages", h.PostMessage)
	r.POST("/typing", h.PostTyping)
	r.POST("/activity", h.PostActivity)
}

func (h *BridgeHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// State returns the current view snapshot.
func (h *BridgeHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Snapshot())
}

// SetActiveConversation selects a conversation; null or zero deselects.
func (h *BridgeHandler) SetActiveConversation(c *gin.Context) {
	var req struct {
		ConversationID *int64 `json:"conversation_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var id int64
	if req.ConversationID != nil {
		id = *req.ConversationID
	}
	if id < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	h.engine.SetActiveConversation(id)
	logger(c).Info().Int64("conversation_id", id).Msg("active conversation set")
	c.JSON(http.StatusOK, h.engine.Snapshot())
}

// PostMessage stages a message optimistically and sends it in the background.
func (h *BridgeHandler) PostMessage(c *gin.Context) {
	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pending, err := h.engine.QueueMessage(req.Body)
	switch {
	case errors.Is(err, engine.ErrEmptyBody):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message body is required"})
		return
	case errors.Is(err, engine.ErrNoActiveConversation):
		c.JSON(http.StatusConflict, gin.H{"error": "no active conversation"})
		return
	case errors.Is(err, engine.ErrEngineClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine stopped"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue message"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": pending})
}

// PostTyping forwards a local keystroke; the engine debounces it.
func (h *BridgeHandler) PostTyping(c *gin.Context) {
	h.engine.SendTyping(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// PostActivity reports a focus, blur or visibility change.
func (h *BridgeHandler) PostActivity(c *gin.Context) {
	var req struct {
		Event   string `json:"event" binding:"required"`
		Visible *bool  `json:"visible"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Event {
	case "focus":
		h.activity.Focus()
	case "blur":
		h.activity.Blur()
	case "visibility":
		if req.Visible == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "visible is required"})
			return
		}
		h.activity.SetVisibility(*req.Visible)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown activity event"})
		return
	}

	logger(c).Debug().Str("event", req.Event).Msg("activity reported")
	c.Status(http.StatusNoContent)
}

func logger(c *gin.Context) *zerolog.Logger {
	l := observability.LoggerFromContext(auditContext(c))
	return &l
}
