package v1

import (
	"github.com/gin-gonic/gin"

	"skillstream/services/chat-api/internal/interfaces/httpserver/handlers"
)

// RegisterChatRoutes registers the conversation and message routes.
func RegisterChatRoutes(router *gin.RouterGroup, provider *handlers.Provider, sendLimiter gin.HandlerFunc) {
	conversations := router.Group("/conversations")
	{
		conversations.POST("", provider.Conversation.CreateConversation)
		conversations.GET("", provider.Conversation.ListConversations)
		conversations.GET("/:id", provider.Conversation.GetConversation)
		conversations.PUT("/:id", provider.Conversation.UpdateConversation)
		conversations.DELETE("/:id", provider.Conversation.DeleteConversation)

		conversations.POST("/:id/participants", provider.Conversation.AddParticipants)
		conversations.DELETE("/:id/participants/:user_id", provider.Conversation.RemoveParticipant)

		conversations.POST("/:id/read", provider.Conversation.MarkRead)
		conversations.GET("/:id/messages", provider.Conversation.ListMessages)
	}

	messages := router.Group("/messages")
	{
		if sendLimiter != nil {
			messages.POST("", sendLimiter, provider.Message.SendMessage)
		} else {
			messages.POST("", provider.Message.SendMessage)
		}

		messages.GET("/search", provider.Message.SearchMessages)
		messages.PUT("/:id", provider.Message.UpdateMessage)
		messages.DELETE("/:id", provider.Message.DeleteMessage)
		messages.POST("/:id/read", provider.Message.MarkRead)
		messages.POST("/:id/reactions", provider.Message.AddReaction)
		messages.DELETE("/:id/reactions", provider.Message.RemoveReaction)
	}
}
