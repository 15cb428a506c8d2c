package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"skillstream/services/chat-api/internal/domain/query"
	"skillstream/services/chat-api/internal/utils/idgen"
	"skillstream/services/chat-api/internal/utils/platformerrors"
)

// publishTimeout bounds the broadcast publish on the write path. A slow
// or unreachable broker must not hold the HTTP response hostage.
const publishTimeout = 5 * time.Second

// CreateConversationInput carries validated conversation-creation fields.
type CreateConversationInput struct {
	Type           ConversationType
	ParticipantIDs []string
	Name           *string
	Description    *string
}

// UpdateConversationInput carries metadata updates; nil fields are left
// untouched.
type UpdateConversationInput struct {
	Name        *string
	Description *string
}

// SendMessageInput targets exactly one of ConversationID (public ID) or
// ReceiverID (peer user, resolving or creating the direct conversation).
type SendMessageInput struct {
	ConversationID *string
	ReceiverID     *string
	Content        string
	Type           MessageType
	Attachments    []Attachment
	ReplyToID      *string
}

// ListConversationsInput narrows the caller's conversation list.
type ListConversationsInput struct {
	Type   *ConversationType
	Search *string
}

// Service is the conversation/message core consumed by the Write API and
// the live session gateway.
type Service interface {
	CreateConversation(ctx context.Context, requesterID string, input CreateConversationInput) (*Conversation, error)
	GetConversation(ctx context.Context, requesterID, publicID string) (*Conversation, error)
	ListConversations(ctx context.Context, requesterID string, input ListConversationsInput, pagination *query.Pagination) ([]*Conversation, int64, error)
	UpdateConversation(ctx context.Context, requesterID, publicID string, input UpdateConversationInput) (*Conversation, error)
	DeleteConversation(ctx context.Context, requesterID, publicID string) error

	AddParticipants(ctx context.Context, requesterID, publicID string, userIDs []string) (*Conversation, error)
	RemoveParticipant(ctx context.Context, requesterID, publicID, targetUserID string) error

	SendMessage(ctx context.Context, senderID string, input SendMessageInput) (*Message, error)
	ListMessages(ctx context.Context, requesterID, conversationPublicID string, window MessageWindow, pagination *query.Pagination) ([]*Message, error)
	UpdateMessage(ctx context.Context, requesterID, messagePublicID, content string) (*Message, error)
	DeleteMessage(ctx context.Context, requesterID, messagePublicID string) (*Message, error)

	MarkConversationRead(ctx context.Context, requesterID, conversationPublicID string) error
	MarkMessageRead(ctx context.Context, requesterID, messagePublicID string) error

	AddReaction(ctx context.Context, requesterID, messagePublicID, emoji string) (*Message, error)
	RemoveReaction(ctx context.Context, requesterID, messagePublicID, emoji string) (*Message, error)

	SearchMessages(ctx context.Context, requesterID, term string, conversationPublicID *string, pagination *query.Pagination) ([]*Message, error)

	// ActiveConversationIDs lists the public IDs of the user's current
	// conversations; the gateway uses it to seed channel subscriptions.
	ActiveConversationIDs(ctx context.Context, userID string) ([]string, error)
}

type service struct {
	conversations ConversationRepository
	messages      MessageRepository
	publisher     Publisher
	validator     *Validator
	log           zerolog.Logger
}

var _ Service = (*service)(nil)

// NewService wires the chat core. The publisher may be nil in contexts
// that have no live delivery (some tests); publishes are then skipped.
func NewService(conversations ConversationRepository, messages MessageRepository, publisher Publisher, log zerolog.Logger) Service {
	return &service{
		conversations: conversations,
		messages:      messages,
		publisher:     publisher,
		validator:     NewValidator(nil),
		log:           log.With().Str("component", "chat-service").Logger(),
	}
}

// ===============================================
// Conversation lifecycle
// ===============================================

func (s *service) CreateConversation(ctx context.Context, requesterID string, input CreateConversationInput) (*Conversation, error) {
	memberIDs := ensureMember(input.ParticipantIDs, requesterID)

	if err := s.validator.ValidateMembership(input.Type, memberIDs); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid membership", err, "5b2f9d41-7c3e-4f8a-9d16-0a4be72c8351")
	}
	if err := s.validator.ValidateConversationMeta(input.Name, input.Description); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid conversation metadata", err, "8c1d4e27-9f5a-4b3c-8e72-619d0fa3b584")
	}

	if input.Type == ConversationTypeDirect {
		existing, err := s.conversations.FindByDirectKey(ctx, DirectKey(memberIDs[0], memberIDs[1]))
		if err == nil {
			existing, err = s.reviveDirectMembership(ctx, existing, requesterID)
			if err != nil {
				return nil, err
			}
			return s.withUnread(ctx, existing, requesterID), nil
		}
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to look up direct conversation")
		}
	}

	publicID, err := idgen.NewConversationID()
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to generate conversation ID")
	}

	conv := NewConversation(publicID, input.Type, requesterID, memberIDs, input.Name, input.Description)
	if err := s.conversations.Create(ctx, conv); err != nil {
		// Race loser on the direct_key unique index: converge on the
		// conversation the winner created.
		if input.Type == ConversationTypeDirect && platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			existing, lookupErr := s.conversations.FindByDirectKey(ctx, DirectKey(memberIDs[0], memberIDs[1]))
			if lookupErr == nil {
				return s.withUnread(ctx, existing, requesterID), nil
			}
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create conversation")
	}

	return conv, nil
}

func (s *service) GetConversation(ctx context.Context, requesterID, publicID string) (*Conversation, error) {
	conv, err := s.findVisibleConversation(ctx, requesterID, publicID)
	if err != nil {
		return nil, err
	}
	return s.withUnread(ctx, conv, requesterID), nil
}

func (s *service) ListConversations(ctx context.Context, requesterID string, input ListConversationsInput, pagination *query.Pagination) ([]*Conversation, int64, error) {
	filter := ConversationFilter{
		UserID: &requesterID,
		Type:   input.Type,
		Search: input.Search,
	}

	conversations, err := s.conversations.FindByFilter(ctx, filter, pagination)
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list conversations")
	}
	total, err := s.conversations.Count(ctx, filter)
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to count conversations")
	}

	for _, conv := range conversations {
		s.withUnread(ctx, conv, requesterID)
	}
	return conversations, total, nil
}

func (s *service) UpdateConversation(ctx context.Context, requesterID, publicID string, input UpdateConversationInput) (*Conversation, error) {
	conv, err := s.findVisibleConversation(ctx, requesterID, publicID)
	if err != nil {
		return nil, err
	}
	if !conv.IsOwner(requesterID) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the conversation owner may update it", nil, "3e7a1c95-2d48-4f6b-a310-58c9e4d7f2a6")
	}
	if err := s.validator.ValidateConversationMeta(input.Name, input.Description); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid conversation metadata", err, "b94d2f68-1e3a-4c57-9f82-7a05c1d6e483")
	}

	if input.Name != nil {
		conv.Name = input.Name
	}
	if input.Description != nil {
		conv.Description = input.Description
	}
	conv.UpdatedAt = time.Now().UTC()

	if err := s.conversations.Update(ctx, conv); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update conversation")
	}
	return conv, nil
}

func (s *service) DeleteConversation(ctx context.Context, requesterID, publicID string) error {
	conv, err := s.findVisibleConversation(ctx, requesterID, publicID)
	if err != nil {
		return err
	}
	if !conv.IsOwner(requesterID) {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the conversation owner may delete it", nil, "6f8b3a12-5c9d-4e70-8241-d3a6f59c0e87")
	}
	if err := s.conversations.SoftDelete(ctx, conv.ID, time.Now().UTC()); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete conversation")
	}
	return nil
}

// ===============================================
// Participant management
// ===============================================

func (s *service) AddParticipants(ctx context.Context, requesterID, publicID string, userIDs []string) (*Conversation, error) {
	if err := s.validator.ValidateParticipantsAdd(userIDs); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid participant list", err, "0d4e8f26-7a1b-4c93-b5e8-2f60a9d1c734")
	}

	conv, err := s.findVisibleConversation(ctx, requesterID, publicID)
	if err != nil {
		return nil, err
	}
	if !conv.IsActiveParticipant(requesterID) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only active participants may add members", nil, "e2c7b491-8d35-4a60-9f17-53b8d0e4a926")
	}
	if conv.Type == ConversationTypeDirect {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "direct conversations cannot gain members", nil, "1a5c9e37-4b82-4d06-8f43-c7d2905b6e18")
	}

	now := time.Now().UTC()
	added := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		// An active member's row stays untouched: re-listing the owner
		// must not demote them to member.
		if conv.IsActiveParticipant(userID) {
			continue
		}
		if err := s.conversations.UpsertParticipant(ctx, conv.ID, userID, RoleMember, now); err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to add participant")
		}
		added = append(added, userID)
	}
	if len(added) == 0 {
		return conv, nil
	}

	if err := s.conversations.Touch(ctx, conv.ID, now); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conv.PublicID).Msg("failed to bump conversation recency")
	}

	for _, userID := range added {
		event := newParticipantEvent(EventParticipantAdded, conv.PublicID, requesterID, userID)
		s.publish(ConversationChannel(conv.PublicID), event)
		s.publish(UserChannel(userID), event)
	}
	s.systemMessage(ctx, conv, requesterID, fmt.Sprintf("%s added %d participant(s)", requesterID, len(added)))

	refreshed, err := s.conversations.FindByPublicID(ctx, conv.PublicID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to reload conversation")
	}
	return refreshed, nil
}

func (s *service) RemoveParticipant(ctx context.Context, requesterID, publicID, targetUserID string) error {
	conv, err := s.findVisibleConversation(ctx, requesterID, publicID)
	if err != nil {
		return err
	}
	if requesterID != targetUserID && !conv.IsOwner(requesterID) {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the owner may remove other participants", nil, "74b0d6c2-3f9e-4a18-85c7-e1a4f82d9560")
	}
	target := conv.Participant(targetUserID)
	if target == nil || !target.Active() {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "participant not found", nil, "9c3f7a85-6e21-4d4b-b096-48d5c2e7f013")
	}

	now := time.Now().UTC()
	if err := s.conversations.MarkParticipantLeft(ctx, conv.ID, targetUserID, now); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to remove participant")
	}
	if err := s.conversations.Touch(ctx, conv.ID, now); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conv.PublicID).Msg("failed to bump conversation recency")
	}

	event := newParticipantEvent(EventParticipantRemoved, conv.PublicID, requesterID, targetUserID)
	s.publish(ConversationChannel(conv.PublicID), event)
	s.publish(UserChannel(targetUserID), event)

	text := fmt.Sprintf("%s left the conversation", targetUserID)
	if requesterID != targetUserID {
		text = fmt.Sprintf("%s removed %s from the conversation", requesterID, targetUserID)
	}
	s.systemMessage(ctx, conv, requesterID, text)

	return nil
}

// ===============================================
// Message lifecycle
// ===============================================

func (s *service) SendMessage(ctx context.Context, senderID string, input SendMessageInput) (*Message, error) {
	if (input.ConversationID == nil) == (input.ReceiverID == nil) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "exactly one of conversation_id or receiver_id is required", nil, "f1e6a2d8-0b47-4c35-92e1-6d78a3f5c094")
	}

	msgType := input.Type
	if msgType == "" {
		msgType = MessageTypeText
	}
	if err := s.validator.ValidateContent(input.Content, msgType, input.Attachments); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid message", err, "a8d31f7b-5e92-4c06-b748-091c6e2d5fa3")
	}

	var conv *Conversation
	var err error
	if input.ConversationID != nil {
		conv, err = s.findVisibleConversation(ctx, senderID, *input.ConversationID)
		if err != nil {
			return nil, err
		}
	} else {
		conv, err = s.ensureDirectConversation(ctx, senderID, *input.ReceiverID)
		if err != nil {
			return nil, err
		}
	}

	if !conv.IsActiveParticipant(senderID) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "sender is not an active participant", nil, "27c5e9a4-8f13-4b6d-a072-3d94b1c8e657")
	}

	if input.ReplyToID != nil {
		parent, err := s.messages.FindByPublicID(ctx, *input.ReplyToID)
		if err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "reply target not found", err, "4e92c7d1-6a38-4f05-b8c4-75d0e3a1f926")
		}
		if parent.ConversationID != conv.ID {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "reply target belongs to another conversation", nil, "d60b3e84-2c97-4a51-9f36-18e7c4d2b095")
		}
	}

	publicID, err := idgen.NewMessageID()
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to generate message ID")
	}

	msg := NewMessage(publicID, conv, senderID, msgType, input.Content, input.Attachments, input.ReplyToID)
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to persist message")
	}

	// The message being durable is authoritative; a lagging recency
	// stamp self-heals on the next send.
	if err := s.conversations.Touch(ctx, conv.ID, msg.CreatedAt); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conv.PublicID).Msg("failed to bump conversation recency")
	}

	s.publish(ConversationChannel(conv.PublicID), newMessageEvent(EventMessageCreated, senderID, msg))
	return msg, nil
}

func (s *service) ListMessages(ctx context.Context, requesterID, conversationPublicID string, window MessageWindow, pagination *query.Pagination) ([]*Message, error) {
	conv, err := s.findVisibleConversation(ctx, requesterID, conversationPublicID)
	if err != nil {
		return nil, err
	}

	messages, err := s.messages.ListByConversation(ctx, conv.ID, window, pagination)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list messages")
	}
	return messages, nil
}

func (s *service) UpdateMessage(ctx context.Context, requesterID, messagePublicID, content string) (*Message, error) {
	msg, err := s.findMessage(ctx, messagePublicID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != requesterID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the sender may edit a message", nil, "82f4c1a6-9d07-4e53-b2a9-60c3d8e5f714")
	}
	if msg.Deleted() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "deleted messages cannot be edited", nil, "35a8e0d7-1b64-4f29-8c50-942d7e6a3b18")
	}
	if err := s.validator.ValidateContent(content, msg.Type, msg.Attachments); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid message", err, "c9b72e05-4d83-4a16-9f48-d105c3e8a672")
	}

	now := time.Now().UTC()
	if err := s.messages.UpdateContent(ctx, msg.ID, content, now); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update message")
	}
	msg.Content = content
	msg.EditedAt = &now

	s.publish(ConversationChannel(msg.ConversationPublicID), newMessageEvent(EventMessageUpdated, requesterID, msg))
	return msg, nil
}

func (s *service) DeleteMessage(ctx context.Context, requesterID, messagePublicID string) (*Message, error) {
	msg, err := s.findMessage(ctx, messagePublicID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != requesterID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the sender may delete a message", nil, "7d2a9f36-0e85-4c41-b673-18f5a0c2d9e4")
	}
	if msg.Deleted() {
		return msg, nil
	}

	now := time.Now().UTC()
	if err := s.messages.SoftDelete(ctx, msg.ID, now); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete message")
	}
	msg.DeletedAt = &now

	s.publish(ConversationChannel(msg.ConversationPublicID), newMessageEvent(EventMessageDeleted, requesterID, msg))
	return msg, nil
}

// ===============================================
// Read tracking & reactions
// ===============================================

func (s *service) MarkConversationRead(ctx context.Context, requesterID, conversationPublicID string) error {
	conv, err := s.findVisibleConversation(ctx, requesterID, conversationPublicID)
	if err != nil {
		return err
	}
	if !conv.IsActiveParticipant(requesterID) {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "not an active participant", nil, "48e6d2b9-7a05-4f38-91c2-e3b7d5a0f146")
	}

	now := time.Now().UTC()
	if err := s.conversations.AdvanceReadWatermark(ctx, conv.ID, requesterID, now); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to advance read watermark")
	}

	s.publish(ConversationChannel(conv.PublicID), newReadEvent(conv.PublicID, requesterID, now))
	return nil
}

func (s *service) MarkMessageRead(ctx context.Context, requesterID, messagePublicID string) error {
	msg, err := s.findMessage(ctx, messagePublicID)
	if err != nil {
		return err
	}
	if err := s.requireMembership(ctx, requesterID, msg.ConversationPublicID); err != nil {
		return err
	}
	// A redacted message has nothing left to read.
	if msg.Deleted() {
		return nil
	}
	if err := s.messages.AddReadBy(ctx, msg.ID, requesterID); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to record read receipt")
	}
	return nil
}

func (s *service) AddReaction(ctx context.Context, requesterID, messagePublicID, emoji string) (*Message, error) {
	return s.setReaction(ctx, requesterID, messagePublicID, emoji, true)
}

func (s *service) RemoveReaction(ctx context.Context, requesterID, messagePublicID, emoji string) (*Message, error) {
	return s.setReaction(ctx, requesterID, messagePublicID, emoji, false)
}

func (s *service) setReaction(ctx context.Context, requesterID, messagePublicID, emoji string, add bool) (*Message, error) {
	if err := s.validator.ValidateEmoji(emoji); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid reaction", err, "b3f09c57-6d24-4e81-a5f0-27c8e4d1a936")
	}

	msg, err := s.findMessage(ctx, messagePublicID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMembership(ctx, requesterID, msg.ConversationPublicID); err != nil {
		return nil, err
	}
	if msg.Deleted() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "deleted messages cannot be reacted to", nil, "92e5c3b7-1a84-4f06-bd72-45c8e0a6d319")
	}

	updated, err := s.messages.SetReaction(ctx, msg.ID, emoji, requesterID, add)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update reaction")
	}
	updated.ConversationPublicID = msg.ConversationPublicID

	s.publish(ConversationChannel(msg.ConversationPublicID), newMessageEvent(EventReactionChanged, requesterID, updated))
	return updated, nil
}

// ===============================================
// Search & gateway support
// ===============================================

func (s *service) SearchMessages(ctx context.Context, requesterID, term string, conversationPublicID *string, pagination *query.Pagination) ([]*Message, error) {
	if term == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "search query is required", nil, "e17d4b92-3a60-4c85-bf21-08d6c9e3a574")
	}

	var conversationID *uint
	if conversationPublicID != nil {
		conv, err := s.findVisibleConversation(ctx, requesterID, *conversationPublicID)
		if err != nil {
			return nil, err
		}
		conversationID = &conv.ID
	}

	messages, err := s.messages.Search(ctx, requesterID, term, conversationID, pagination)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to search messages")
	}
	return messages, nil
}

func (s *service) ActiveConversationIDs(ctx context.Context, userID string) ([]string, error) {
	conversations, err := s.conversations.FindByFilter(ctx, ConversationFilter{UserID: &userID}, nil)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list conversations")
	}
	ids := make([]string, 0, len(conversations))
	for _, conv := range conversations {
		ids = append(ids, conv.PublicID)
	}
	return ids, nil
}

// ===============================================
// Internals
// ===============================================

// findVisibleConversation loads a conversation and enforces the read
// rule: past or present participants only, and never soft-deleted ones.
// Outsiders get NOT_FOUND rather than FORBIDDEN so conversation IDs leak
// nothing.
func (s *service) findVisibleConversation(ctx context.Context, requesterID, publicID string) (*Conversation, error) {
	conv, err := s.conversations.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "conversation not found")
	}
	if conv.Deleted() || conv.Participant(requesterID) == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "50c8f3e1-9b27-4d64-a815-72e0d6c4b9a3")
	}
	return conv, nil
}

func (s *service) findMessage(ctx context.Context, messagePublicID string) (*Message, error) {
	msg, err := s.messages.FindByPublicID(ctx, messagePublicID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "message not found")
	}
	return msg, nil
}

func (s *service) requireMembership(ctx context.Context, requesterID, conversationPublicID string) error {
	_, err := s.findVisibleConversation(ctx, requesterID, conversationPublicID)
	return err
}

func (s *service) ensureDirectConversation(ctx context.Context, senderID, receiverID string) (*Conversation, error) {
	if receiverID == "" || receiverID == senderID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid receiver", nil, "69a2d5f8-4c07-4e31-b9d6-853f0c1e7a24")
	}
	return s.CreateConversation(ctx, senderID, CreateConversationInput{
		Type:           ConversationTypeDirect,
		ParticipantIDs: []string{senderID, receiverID},
	})
}

// reviveDirectMembership clears a left_at stamp when a user comes back
// to their direct conversation. The direct_key dedupe means the pair
// can never get a fresh conversation, so leaving must be reversible.
func (s *service) reviveDirectMembership(ctx context.Context, conv *Conversation, userID string) (*Conversation, error) {
	p := conv.Participant(userID)
	if p == nil || p.Active() {
		return conv, nil
	}

	if err := s.conversations.UpsertParticipant(ctx, conv.ID, userID, RoleMember, time.Now().UTC()); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to rejoin direct conversation")
	}
	refreshed, err := s.conversations.FindByPublicID(ctx, conv.PublicID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to reload conversation")
	}
	return refreshed, nil
}

func (s *service) withUnread(ctx context.Context, conv *Conversation, userID string) *Conversation {
	count, err := s.conversations.UnreadCount(ctx, conv.ID, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conv.PublicID).Msg("failed to compute unread count")
		return conv
	}
	conv.UnreadCount = count
	return conv
}

// systemMessage records a membership change in the timeline. Failures
// are logged only; the membership change itself already committed.
func (s *service) systemMessage(ctx context.Context, conv *Conversation, actorID, content string) {
	publicID, err := idgen.NewMessageID()
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to generate system message ID")
		return
	}
	msg := NewMessage(publicID, conv, actorID, MessageTypeSystem, content, nil, nil)
	if err := s.messages.Create(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conv.PublicID).Msg("failed to record system message")
		return
	}
	s.publish(ConversationChannel(conv.PublicID), newMessageEvent(EventMessageCreated, actorID, msg))
}

// publish fans an event out after the originating write committed.
// Publish failures must never fail the write; the record is durable and
// clients converge by re-fetching history.
func (s *service) publish(channel string, event *Event) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, channel, event); err != nil {
		s.log.Error().Err(err).
			Str("channel", channel).
			Str("event_type", string(event.Type)).
			Msg("broadcast publish failed")
	}
}

func ensureMember(ids []string, userID string) []string {
	for _, id := range ids {
		if id == userID {
			return ids
		}
	}
	return append(append([]string{}, ids...), userID)
}
