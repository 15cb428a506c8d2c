package chat

import (
	"context"
	"time"
)

// EventType names a broadcast event as delivered to live sessions.
type EventType string

const (
	EventMessageCreated     EventType = "message.created"
	EventMessageUpdated     EventType = "message.updated"
	EventMessageDeleted     EventType = "message.deleted"
	EventParticipantAdded   EventType = "participant.added"
	EventParticipantRemoved EventType = "participant.removed"
	EventReactionChanged    EventType = "reaction.changed"
	EventReadUpdated        EventType = "read.updated"
)

// Critical reports whether the event must never be silently dropped by a
// backpressured connection. A client that cannot absorb a message.created
// is disconnected instead, so it re-fetches history on reconnect.
func (t EventType) Critical() bool {
	return t == EventMessageCreated
}

// Event is the envelope published after a message-affecting write
// commits. It is serialized as-is onto live sessions.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id"`
	ActorID        string    `json:"actor_id,omitempty"`

	// Message carries the affected message for message.* and
	// reaction.changed events.
	Message *Message `json:"message,omitempty"`

	// UserID identifies the affected member for participant.* and
	// read.updated events.
	UserID string `json:"user_id,omitempty"`

	LastReadAt *time.Time `json:"last_read_at,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Publisher is the publish half of the broadcast capability. The service
// publishes only after the store write is durable; failures are logged
// and never fail the originating write.
type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
}

// ConversationChannel names the fan-out channel for one conversation.
func ConversationChannel(conversationPublicID string) string {
	return "conv." + conversationPublicID
}

// UserChannel names the per-user channel carrying membership changes, so
// a live session learns about conversations it was just added to.
func UserChannel(userID string) string {
	return "user." + userID
}

func newMessageEvent(eventType EventType, actorID string, msg *Message) *Event {
	return &Event{
		Type:           eventType,
		ConversationID: msg.ConversationPublicID,
		ActorID:        actorID,
		Message:        msg,
		OccurredAt:     time.Now().UTC(),
	}
}

func newParticipantEvent(eventType EventType, conversationPublicID, actorID, userID string) *Event {
	return &Event{
		Type:           eventType,
		ConversationID: conversationPublicID,
		ActorID:        actorID,
		UserID:         userID,
		OccurredAt:     time.Now().UTC(),
	}
}

func newReadEvent(conversationPublicID, userID string, lastReadAt time.Time) *Event {
	return &Event{
		Type:           EventReadUpdated,
		ConversationID: conversationPublicID,
		ActorID:        userID,
		UserID:         userID,
		LastReadAt:     &lastReadAt,
		OccurredAt:     time.Now().UTC(),
	}
}
