package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"skillstream/services/chat-api/internal/domain/chat"
	"skillstream/services/chat-api/internal/domain/query"
	"skillstream/services/chat-api/internal/interfaces/httpserver/middlewares"
	"skillstream/services/chat-api/internal/interfaces/httpserver/requests"
	"skillstream/services/chat-api/internal/interfaces/httpserver/responses"
	"skillstream/services/chat-api/internal/utils/platformerrors"
)

// ConversationHandler handles conversation-related HTTP requests.
type ConversationHandler struct {
	service chat.Service
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(service chat.Service) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// CreateConversation handles POST /v1/conversations.
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	var req requests.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body: "+err.Error())
		return
	}

	conv, err := h.service.CreateConversation(c.Request.Context(), middlewares.GetUserID(c), req.ToDomain())
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, responses.NewConversationResponse(conv))
}

// ListConversations handles GET /v1/conversations.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	input := chat.ListConversationsInput{}
	if raw := c.Query("type"); raw != "" {
		convType := chat.ConversationType(raw)
		if !convType.Valid() {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "unknown conversation type")
			return
		}
		input.Type = &convType
	}
	if raw := c.Query("q"); raw != "" {
		input.Search = &raw
	}

	conversations, total, err := h.service.ListConversations(c.Request.Context(), middlewares.GetUserID(c), input, parsePagination(c))
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.NewConversationListResponse(conversations, total))
}

// GetConversation handles GET /v1/conversations/:id.
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conv, err := h.service.GetConversation(c.Request.Context(), middlewares.GetUserID(c), c.Param("id"))
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.NewConversationResponse(conv))
}

// UpdateConversation handles PUT /v1/conversations/:id.
func (h *ConversationHandler) UpdateConversation(c *gin.Context) {
	var req requests.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body: "+err.Error())
		return
	}

	conv, err := h.service.UpdateConversation(c.Request.Context(), middlewares.GetUserID(c), c.Param("id"), req.ToDomain())
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.NewConversationResponse(conv))
}

// DeleteConversation handles DELETE /v1/conversations/:id.
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	if err := h.service.DeleteConversation(c.Request.Context(), middlewares.GetUserID(c), c.Param("id")); err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "deleted": true})
}

// AddParticipants handles POST /v1/conversations/:id/participants.
func (h *ConversationHandler) AddParticipants(c *gin.Context) {
	var req requests.AddParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body: "+err.Error())
		return
	}

	conv, err := h.service.AddParticipants(c.Request.Context(), middlewares.GetUserID(c), c.Param("id"), req.UserIDs)
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.NewConversationResponse(conv))
}

// RemoveParticipant handles DELETE /v1/conversations/:id/participants/:user_id.
func (h *ConversationHandler) RemoveParticipant(c *gin.Context) {
	err := h.service.RemoveParticipant(c.Request.Context(), middlewares.GetUserID(c), c.Param("id"), c.Param("user_id"))
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": c.Param("user_id"), "removed": true})
}

// MarkRead handles POST /v1/conversations/:id/read.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	if err := h.service.MarkConversationRead(c.Request.Context(), middlewares.GetUserID(c), c.Param("id")); err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "read": true})
}

// ListMessages handles GET /v1/conversations/:id/messages.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	window := chat.MessageWindow{}
	if raw := c.Query("before"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "before must be an RFC3339 timestamp")
			return
		}
		window.Before = &ts
	}
	if raw := c.Query("after"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "after must be an RFC3339 timestamp")
			return
		}
		window.After = &ts
	}

	messages, err := h.service.ListMessages(c.Request.Context(), middlewares.GetUserID(c), c.Param("id"), window, parsePagination(c))
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.NewMessageListResponse(messages))
}

func parsePagination(c *gin.Context) *query.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(query.DefaultLimit)))
	return query.NewPagination(page, limit)
}
