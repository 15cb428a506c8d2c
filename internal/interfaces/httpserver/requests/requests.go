// Package requests contains HTTP request DTOs for the chat-api.
package requests

import (
	"skillstream/services/chat-api/internal/domain/chat"
)

// CreateConversationRequest represents the request body for creating a
// conversation.
type CreateConversationRequest struct {
	Type           string   `json:"type" binding:"required"`
	ParticipantIDs []string `json:"participant_ids"`
	Name           *string  `json:"name,omitempty"`
	Description    *string  `json:"description,omitempty"`
}

// ToDomain converts the request into domain input.
func (r *CreateConversationRequest) ToDomain() chat.CreateConversationInput {
	return chat.CreateConversationInput{
		Type:           chat.ConversationType(r.Type),
		ParticipantIDs: r.ParticipantIDs,
		Name:           r.Name,
		Description:    r.Description,
	}
}

// UpdateConversationRequest represents a conversation metadata update.
// Absent fields are left unchanged.
type UpdateConversationRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ToDomain converts the request into domain input.
func (r *UpdateConversationRequest) ToDomain() chat.UpdateConversationInput {
	return chat.UpdateConversationInput{
		Name:        r.Name,
		Description: r.Description,
	}
}

// AddParticipantsRequest represents a membership addition.
type AddParticipantsRequest struct {
	UserIDs []string `json:"user_ids" binding:"required"`
}

// AttachmentPayload mirrors a message attachment reference.
type AttachmentPayload struct {
	Filename string `json:"filename"`
	URL      string `json:"url" binding:"required"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// SendMessageRequest represents the request body for sending a message.
// Exactly one of ConversationID or ReceiverID must be set.
type SendMessageRequest struct {
	ConversationID *string             `json:"conversation_id,omitempty"`
	ReceiverID     *string             `json:"receiver_id,omitempty"`
	Content        string              `json:"content"`
	Type           string              `json:"type,omitempty"`
	Attachments    []AttachmentPayload `json:"attachments,omitempty"`
	ReplyToID      *string             `json:"reply_to_id,omitempty"`
}

// ToDomain converts the request into domain input.
func (r *SendMessageRequest) ToDomain() chat.SendMessageInput {
	attachments := make([]chat.Attachment, len(r.Attachments))
	for i, a := range r.Attachments {
		attachments[i] = chat.Attachment{
			Filename: a.Filename,
			URL:      a.URL,
			Size:     a.Size,
			MimeType: a.MimeType,
		}
	}
	if len(attachments) == 0 {
		attachments = nil
	}

	return chat.SendMessageInput{
		ConversationID: r.ConversationID,
		ReceiverID:     r.ReceiverID,
		Content:        r.Content,
		Type:           chat.MessageType(r.Type),
		Attachments:    attachments,
		ReplyToID:      r.ReplyToID,
	}
}

// UpdateMessageRequest represents a message edit.
type UpdateMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// ReactionRequest represents a reaction add or remove.
type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}
