package chat

import (
	"context"
	"time"

	"skillstream/services/chat-api/internal/domain/query"
)

// ConversationFilter narrows conversation list queries.
type ConversationFilter struct {
	// UserID restricts results to conversations where the user holds an
	// active membership.
	UserID *string
	Type   *ConversationType
	// Search matches conversation names by substring.
	Search *string
}

// ConversationRepository is the persistence contract for conversations
// and their participant rows.
type ConversationRepository interface {
	// Create persists the conversation together with its initial
	// participant rows.
	Create(ctx context.Context, conv *Conversation) error

	FindByPublicID(ctx context.Context, publicID string) (*Conversation, error)

	// FindByDirectKey resolves the deduplicated direct conversation for
	// a sorted participant pair. Returns NOT_FOUND when none exists.
	FindByDirectKey(ctx context.Context, directKey string) (*Conversation, error)

	FindByFilter(ctx context.Context, filter ConversationFilter, pagination *query.Pagination) ([]*Conversation, error)
	Count(ctx context.Context, filter ConversationFilter) (int64, error)

	// Update persists name/description changes and bumps updated_at.
	Update(ctx context.Context, conv *Conversation) error

	// SoftDelete stamps deleted_at without removing rows.
	SoftDelete(ctx context.Context, id uint, at time.Time) error

	// Touch advances the conversation's updated_at to drive recency
	// ordering of conversation lists.
	Touch(ctx context.Context, id uint, at time.Time) error

	// UpsertParticipant atomically creates or revives a membership row
	// keyed on (conversation, user): a previously-left row gets left_at
	// cleared and the role reset, and concurrent calls converge on a
	// single active row.
	UpsertParticipant(ctx context.Context, conversationID uint, userID string, role ParticipantRole, at time.Time) error

	// MarkParticipantLeft stamps left_at on the active membership row.
	MarkParticipantLeft(ctx context.Context, conversationID uint, userID string, at time.Time) error

	// AdvanceReadWatermark sets last_read_at to at, but never backwards.
	AdvanceReadWatermark(ctx context.Context, conversationID uint, userID string, at time.Time) error

	// UnreadCount counts non-deleted messages from other senders newer
	// than the user's read watermark.
	UnreadCount(ctx context.Context, conversationID uint, userID string) (int64, error)
}

// MessageWindow bounds a timeline read to a time range.
type MessageWindow struct {
	Before *time.Time
	After  *time.Time
}

// MessageRepository is the persistence contract for messages. Reaction
// and read-receipt mutations are repository-level so they can be applied
// under a row lock.
type MessageRepository interface {
	Create(ctx context.Context, msg *Message) error
	FindByPublicID(ctx context.Context, publicID string) (*Message, error)

	// ListByConversation returns messages in authoritative order:
	// created_at ascending, ties broken by id.
	ListByConversation(ctx context.Context, conversationID uint, window MessageWindow, pagination *query.Pagination) ([]*Message, error)

	// UpdateContent persists an edit, stamping edited_at.
	UpdateContent(ctx context.Context, id uint, content string, editedAt time.Time) error

	// SoftDelete stamps deleted_at; the row keeps its timeline position.
	SoftDelete(ctx context.Context, id uint, at time.Time) error

	// SetReaction adds or removes userID from the emoji's reaction set
	// atomically. Both directions are idempotent.
	SetReaction(ctx context.Context, id uint, emoji, userID string, add bool) (*Message, error)

	// AddReadBy inserts userID into the message's read set (idempotent).
	AddReadBy(ctx context.Context, id uint, userID string) error

	// Search matches message content by substring across the
	// conversations where userID holds a past or present membership,
	// optionally scoped to one conversation.
	Search(ctx context.Context, userID, term string, conversationID *uint, pagination *query.Pagination) ([]*Message, error)
}
