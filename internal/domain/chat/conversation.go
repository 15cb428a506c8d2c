package chat

import (
	"sort"
	"strings"
	"time"
)

type ConversationType string

const (
	ConversationTypeDirect ConversationType = "direct"
	ConversationTypeGroup  ConversationType = "group"
)

// Valid reports whether the conversation type is one of the known values.
func (t ConversationType) Valid() bool {
	return t == ConversationTypeDirect || t == ConversationTypeGroup
}

type ParticipantRole string

const (
	RoleOwner  ParticipantRole = "owner"
	RoleMember ParticipantRole = "member"
)

// Conversation is a named or ad hoc channel with an ordered message
// history and a participant set. Direct conversations hold exactly two
// members and are deduplicated through DirectKey.
type Conversation struct {
	ID          uint             `json:"-"`
	PublicID    string           `json:"id"`
	Type        ConversationType `json:"type"`
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	DirectKey   *string          `json:"-"`

	Participants []Participant `json:"participants,omitempty"`

	// UnreadCount is computed per caller on list/fetch paths; it is not
	// a stored attribute.
	UnreadCount int64 `json:"unread_count"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// Participant is a (conversation, user) membership record. Leaving stamps
// LeftAt instead of deleting the row so presence history survives.
type Participant struct {
	ConversationID uint            `json:"-"`
	UserID         string          `json:"user_id"`
	Role           ParticipantRole `json:"role"`
	JoinedAt       time.Time       `json:"joined_at"`
	LeftAt         *time.Time      `json:"left_at,omitempty"`
	LastReadAt     *time.Time      `json:"last_read_at,omitempty"`
}

// Active reports whether the membership is current.
func (p *Participant) Active() bool {
	return p.LeftAt == nil
}

// NewConversation builds a conversation entity with the given members.
// The creator gets the owner role for group conversations; direct
// conversations have two equal members and a deduplication key.
func NewConversation(publicID string, convType ConversationType, creatorID string, memberIDs []string, name, description *string) *Conversation {
	now := time.Now().UTC()

	conv := &Conversation{
		PublicID:    publicID,
		Type:        convType,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if convType == ConversationTypeDirect {
		key := DirectKey(memberIDs[0], memberIDs[1])
		conv.DirectKey = &key
	}

	for _, userID := range memberIDs {
		role := RoleMember
		if convType == ConversationTypeGroup && userID == creatorID {
			role = RoleOwner
		}
		conv.Participants = append(conv.Participants, Participant{
			UserID:   userID,
			Role:     role,
			JoinedAt: now,
		})
	}

	return conv
}

// Participant returns the membership row for userID, or nil.
func (c *Conversation) Participant(userID string) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// IsActiveParticipant reports whether userID currently belongs to the
// conversation.
func (c *Conversation) IsActiveParticipant(userID string) bool {
	p := c.Participant(userID)
	return p != nil && p.Active()
}

// IsOwner reports whether userID holds the owner role.
func (c *Conversation) IsOwner(userID string) bool {
	p := c.Participant(userID)
	return p != nil && p.Active() && p.Role == RoleOwner
}

// ActiveParticipants returns the current membership set.
func (c *Conversation) ActiveParticipants() []Participant {
	var out []Participant
	for _, p := range c.Participants {
		if p.Active() {
			out = append(out, p)
		}
	}
	return out
}

// Deleted reports whether the conversation has been soft deleted.
func (c *Conversation) Deleted() bool {
	return c.DeletedAt != nil
}

// DirectKey derives the storage-level deduplication key for a direct
// conversation between two users. The pair is sorted so the key is
// independent of argument order; a unique index on this key is what
// makes direct-conversation creation idempotent under races.
func DirectKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "|")
}
