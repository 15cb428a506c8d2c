package chat

import "time"

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
)

// Valid reports whether the message type is one of the known values.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeSystem:
		return true
	}
	return false
}

// Attachment references an already-uploaded object; the service never
// touches object storage itself.
type Attachment struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// Message is a single timeline entry of a conversation. CreatedAt is the
// authoritative order key (ties broken by ID). Delete is always soft:
// DeletedAt is stamped and content is redacted at the API boundary.
type Message struct {
	ID                   uint   `json:"-"`
	PublicID             string `json:"id"`
	ConversationID       uint   `json:"-"`
	ConversationPublicID string `json:"conversation_id"`
	SenderID             string `json:"sender_id"`

	Type        MessageType  `json:"type"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ReplyToID   *string      `json:"reply_to_id,omitempty"`

	// Reactions maps an emoji token to the set of users who reacted
	// with it. Membership is idempotent per (emoji, user).
	Reactions map[string][]string `json:"reactions,omitempty"`

	// ReadBy is the per-message read receipt set, maintained alongside
	// the coarser participant watermark.
	ReadBy []string `json:"read_by,omitempty"`

	EditedAt  *time.Time `json:"edited_at,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewMessage builds a message entity ready for persistence.
func NewMessage(publicID string, conv *Conversation, senderID string, msgType MessageType, content string, attachments []Attachment, replyToID *string) *Message {
	return &Message{
		PublicID:             publicID,
		ConversationID:       conv.ID,
		ConversationPublicID: conv.PublicID,
		SenderID:             senderID,
		Type:                 msgType,
		Content:              content,
		Attachments:          attachments,
		ReplyToID:            replyToID,
		CreatedAt:            time.Now().UTC(),
	}
}

// Deleted reports whether the message has been soft deleted.
func (m *Message) Deleted() bool {
	return m.DeletedAt != nil
}

// HasReaction reports whether userID already reacted with emoji.
func (m *Message) HasReaction(emoji, userID string) bool {
	for _, id := range m.Reactions[emoji] {
		if id == userID {
			return true
		}
	}
	return false
}

// ReadByUser reports whether userID is in the read receipt set.
func (m *Message) ReadByUser(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}
