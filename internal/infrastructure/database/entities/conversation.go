package entities

import (
	"time"

	"skillstream/services/chat-api/internal/domain/chat"
)

// Conversation represents the database schema for conversations
type Conversation struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"index:idx_conversation_updated_at"`

	PublicID    string                `gorm:"type:varchar(50);uniqueIndex;not null"`
	Type        chat.ConversationType `gorm:"type:varchar(16);not null"`
	Name        *string               `gorm:"type:varchar(128)"`
	Description *string               `gorm:"type:varchar(512)"`

	// DirectKey is the sorted participant pair of a direct conversation;
	// its unique index is what deduplicates concurrent direct creation.
	DirectKey *string `gorm:"type:varchar(160);uniqueIndex"`

	DeletedAt *time.Time `gorm:"index"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID"`
}

// TableName specifies the table name for Conversation.
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationParticipant represents a (conversation, user) membership
// row. Leaving stamps left_at; the composite unique index keeps one row
// per pair so re-adding revives instead of duplicating.
type ConversationParticipant struct {
	ID             uint                 `gorm:"primaryKey"`
	ConversationID uint                 `gorm:"uniqueIndex:idx_participant_conversation_user;not null"`
	UserID         string               `gorm:"type:varchar(64);uniqueIndex:idx_participant_conversation_user;index:idx_participant_user;not null"`
	Role           chat.ParticipantRole `gorm:"type:varchar(16);not null;default:'member'"`
	JoinedAt       time.Time            `gorm:"not null"`
	LeftAt         *time.Time
	LastReadAt     *time.Time
}

// TableName specifies the table name for ConversationParticipant.
func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}

// ===============================================
// Conversion Functions
// ===============================================

// EtoD converts database entity to domain model
func (c *Conversation) EtoD() *chat.Conversation {
	participants := make([]chat.Participant, len(c.Participants))
	for i, p := range c.Participants {
		participants[i] = chat.Participant{
			ConversationID: p.ConversationID,
			UserID:         p.UserID,
			Role:           p.Role,
			JoinedAt:       p.JoinedAt,
			LeftAt:         p.LeftAt,
			LastReadAt:     p.LastReadAt,
		}
	}

	return &chat.Conversation{
		ID:           c.ID,
		PublicID:     c.PublicID,
		Type:         c.Type,
		Name:         c.Name,
		Description:  c.Description,
		DirectKey:    c.DirectKey,
		Participants: participants,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		DeletedAt:    c.DeletedAt,
	}
}

// NewSchemaConversation creates a database entity from domain model
func NewSchemaConversation(c *chat.Conversation) *Conversation {
	participants := make([]ConversationParticipant, len(c.Participants))
	for i, p := range c.Participants {
		participants[i] = ConversationParticipant{
			ConversationID: c.ID,
			UserID:         p.UserID,
			Role:           p.Role,
			JoinedAt:       p.JoinedAt,
			LeftAt:         p.LeftAt,
			LastReadAt:     p.LastReadAt,
		}
	}

	return &Conversation{
		ID:           c.ID,
		PublicID:     c.PublicID,
		Type:         c.Type,
		Name:         c.Name,
		Description:  c.Description,
		DirectKey:    c.DirectKey,
		Participants: participants,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		DeletedAt:    c.DeletedAt,
	}
}
