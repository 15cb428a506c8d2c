package entities

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"skillstream/services/chat-api/internal/domain/chat"
)

// Message represents the database schema for conversation messages.
// conversation_public_id is denormalized so timeline reads and search
// never join back to conversations for the API identifier.
type Message struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index:idx_message_conversation_created,priority:2;not null"`

	PublicID             string `gorm:"type:varchar(50);uniqueIndex;not null"`
	ConversationID       uint   `gorm:"index:idx_message_conversation_created,priority:1;not null"`
	ConversationPublicID string `gorm:"type:varchar(50);index;not null"`
	SenderID             string `gorm:"type:varchar(64);index;not null"`

	Type        chat.MessageType `gorm:"type:varchar(16);not null;default:'text'"`
	Content     string           `gorm:"type:text;not null"`
	Attachments JSONAttachments  `gorm:"type:jsonb"`
	ReplyToID   *string          `gorm:"type:varchar(50)"`

	Reactions JSONReactions  `gorm:"type:jsonb"`
	ReadBy    JSONStringList `gorm:"type:jsonb"`

	EditedAt  *time.Time
	DeletedAt *time.Time `gorm:"index"`
}

// TableName specifies the table name for Message.
func (Message) TableName() string {
	return "messages"
}

// ===============================================
// JSON Types for GORM
// ===============================================

// JSONAttachments stores the attachment list as JSONB.
type JSONAttachments []chat.Attachment

func (j JSONAttachments) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONAttachments) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// JSONReactions stores the emoji to reacting-users map as JSONB.
type JSONReactions map[string][]string

func (j JSONReactions) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONReactions) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// JSONStringList stores a string set as JSONB.
type JSONStringList []string

func (j JSONStringList) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONStringList) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// ===============================================
// Conversion Functions
// ===============================================

// EtoD converts database entity to domain model
func (m *Message) EtoD() *chat.Message {
	return &chat.Message{
		ID:                   m.ID,
		PublicID:             m.PublicID,
		ConversationID:       m.ConversationID,
		ConversationPublicID: m.ConversationPublicID,
		SenderID:             m.SenderID,
		Type:                 m.Type,
		Content:              m.Content,
		Attachments:          m.Attachments,
		ReplyToID:            m.ReplyToID,
		Reactions:            m.Reactions,
		ReadBy:               m.ReadBy,
		EditedAt:             m.EditedAt,
		DeletedAt:            m.DeletedAt,
		CreatedAt:            m.CreatedAt,
	}
}

// NewSchemaMessage creates a database entity from domain model
func NewSchemaMessage(m *chat.Message) *Message {
	return &Message{
		ID:                   m.ID,
		PublicID:             m.PublicID,
		ConversationID:       m.ConversationID,
		ConversationPublicID: m.ConversationPublicID,
		SenderID:             m.SenderID,
		Type:                 m.Type,
		Content:              m.Content,
		Attachments:          m.Attachments,
		ReplyToID:            m.ReplyToID,
		Reactions:            m.Reactions,
		ReadBy:               m.ReadBy,
		EditedAt:             m.EditedAt,
		DeletedAt:            m.DeletedAt,
		CreatedAt:            m.CreatedAt,
	}
}
