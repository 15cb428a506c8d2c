package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillstream/services/chat-api/internal/domain/chat"
	"skillstream/services/chat-api/internal/infrastructure/metrics"
	"skillstream/services/chat-api/internal/interfaces/httpserver/middlewares"
	"skillstream/services/chat-api/internal/interfaces/httpserver/requests"
	"skillstream/services/chat-api/internal/interfaces/httpserver/responses"
	"skillstream/services/chat-api/internal/utils/platformerrors"
)

// MessageHandler handles message-related HTTP requests.
type MessageHandler struct {
	service chat.Service
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(service chat.Service) *MessageHandler {
	return &MessageHandler{service: service}
}

// SendMessage handles POST /v1/messages.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req requests.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body: "+err.Error())
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), middlewares.GetUserID(c), req.ToDomain())
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	metrics.RecordMessageSent(string(msg.Type))
	c.JSON(http.StatusCreated, responses.NewMessageResponse(msg))
}

// UpdateMessage handles PUT /v1/messages/:id.
func (h *MessageHandler) UpdateMessage(c *gin.Context) {
	var req requests.UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body: "+err.Error())
		return
	}

	msg, err := h.service.UpdateMessage(c.Request.Context(), middlewares.GetUserID(c), c.Param("id"), req.Content)
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.NewMessageResponse(msg))
}

// DeleteMessage handles DELETE /v1/messages/:id.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	msg, err := h.service.DeleteMessage(c.Request.Context(), middlewares.GetUserID(c), c.Param("id"))
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.NewMessageResponse(msg))
}

// MarkRead handles POST /v1/messages/:id/read.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	if err := h.service.MarkMessageRead(c.Request.Context(), middlewares.GetUserID(c), c.Param("id")); err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "read": true})
}

// AddReaction handles POST /v1/messages/:id/reactions.
func (h *MessageHandler) AddReaction(c *gin.Context) {
	var req requests.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body: "+err.Error())
		return
	}

	msg, err := h.service.AddReaction(c.Request.Context(), middlewares.GetUserID(c), c.Param("id"), req.Emoji)
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.NewMessageResponse(msg))
}

// RemoveReaction handles DELETE /v1/messages/:id/reactions.
func (h *MessageHandler) RemoveReaction(c *gin.Context) {
	var req requests.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body: "+err.Error())
		return
	}

	msg, err := h.service.RemoveReaction(c.Request.Context(), middlewares.GetUserID(c), c.Param("id"), req.Emoji)
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.NewMessageResponse(msg))
}

// SearchMessages handles GET /v1/messages/search.
func (h *MessageHandler) SearchMessages(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		term = c.Query("query")
	}
	var conversationID *string
	if raw := c.Query("conversation_id"); raw != "" {
		conversationID = &raw
	}

	messages, err := h.service.SearchMessages(c.Request.Context(), middlewares.GetUserID(c), term, conversationID, parsePagination(c))
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.NewMessageListResponse(messages))
}
