// Package responses contains HTTP response DTOs for the chat-api.
package responses

import (
	"time"

	"skillstream/services/chat-api/internal/domain/chat"
)

// ParticipantResponse represents one conversation member.
type ParticipantResponse struct {
	UserID     string     `json:"user_id"`
	Role       string     `json:"role"`
	JoinedAt   time.Time  `json:"joined_at"`
	LeftAt     *time.Time `json:"left_at,omitempty"`
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
}

// ConversationResponse represents a conversation.
type ConversationResponse struct {
	ID           string                `json:"id"`
	Object       string                `json:"object"`
	Type         string                `json:"type"`
	Name         *string               `json:"name,omitempty"`
	Description  *string               `json:"description,omitempty"`
	Participants []ParticipantResponse `json:"participants"`
	UnreadCount  int64                 `json:"unread_count"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// ConversationListResponse represents a page of conversations.
type ConversationListResponse struct {
	Object string                 `json:"object"`
	Data   []ConversationResponse `json:"data"`
	Total  int64                  `json:"total"`
}

// AttachmentResponse represents a message attachment reference.
type AttachmentResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// MessageResponse represents one timeline entry. Deleted messages keep
// their position but carry no content.
type MessageResponse struct {
	ID             string               `json:"id"`
	Object         string               `json:"object"`
	ConversationID string               `json:"conversation_id"`
	SenderID       string               `json:"sender_id"`
	Type           string               `json:"type"`
	Content        string               `json:"content"`
	Attachments    []AttachmentResponse `json:"attachments,omitempty"`
	ReplyToID      *string              `json:"reply_to_id,omitempty"`
	Reactions      map[string][]string  `json:"reactions,omitempty"`
	ReadBy         []string             `json:"read_by,omitempty"`
	EditedAt       *time.Time           `json:"edited_at,omitempty"`
	Deleted        bool                 `json:"deleted"`
	CreatedAt      time.Time            `json:"created_at"`
}

// MessageListResponse represents a page of messages.
type MessageListResponse struct {
	Object string            `json:"object"`
	Data   []MessageResponse `json:"data"`
}

// NewConversationResponse maps a domain conversation.
func NewConversationResponse(conv *chat.Conversation) ConversationResponse {
	participants := make([]ParticipantResponse, len(conv.Participants))
	for i, p := range conv.Participants {
		participants[i] = ParticipantResponse{
			UserID:     p.UserID,
			Role:       string(p.Role),
			JoinedAt:   p.JoinedAt,
			LeftAt:     p.LeftAt,
			LastReadAt: p.LastReadAt,
		}
	}

	return ConversationResponse{
		ID:           conv.PublicID,
		Object:       "conversation",
		Type:         string(conv.Type),
		Name:         conv.Name,
		Description:  conv.Description,
		Participants: participants,
		UnreadCount:  conv.UnreadCount,
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
	}
}

// NewConversationListResponse maps a page of domain conversations.
func NewConversationListResponse(conversations []*chat.Conversation, total int64) ConversationListResponse {
	data := make([]ConversationResponse, len(conversations))
	for i, conv := range conversations {
		data[i] = NewConversationResponse(conv)
	}
	return ConversationListResponse{Object: "list", Data: data, Total: total}
}

// NewMessageResponse maps a domain message, redacting deleted content.
func NewMessageResponse(msg *chat.Message) MessageResponse {
	resp := MessageResponse{
		ID:             msg.PublicID,
		Object:         "message",
		ConversationID: msg.ConversationPublicID,
		SenderID:       msg.SenderID,
		Type:           string(msg.Type),
		ReplyToID:      msg.ReplyToID,
		EditedAt:       msg.EditedAt,
		Deleted:        msg.Deleted(),
		CreatedAt:      msg.CreatedAt,
	}

	if msg.Deleted() {
		return resp
	}

	attachments := make([]AttachmentResponse, len(msg.Attachments))
	for i, a := range msg.Attachments {
		attachments[i] = AttachmentResponse{
			Filename: a.Filename,
			URL:      a.URL,
			Size:     a.Size,
			MimeType: a.MimeType,
		}
	}
	if len(attachments) == 0 {
		attachments = nil
	}

	resp.Content = msg.Content
	resp.Attachments = attachments
	resp.Reactions = msg.Reactions
	resp.ReadBy = msg.ReadBy
	return resp
}

// NewMessageListResponse maps a page of domain messages.
func NewMessageListResponse(messages []*chat.Message) MessageListResponse {
	data := make([]MessageResponse, len(messages))
	for i, msg := range messages {
		data[i] = NewMessageResponse(msg)
	}
	return MessageListResponse{Object: "list", Data: data}
}
