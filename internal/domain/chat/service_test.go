package chat

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillstream/services/chat-api/internal/domain/query"
	"skillstream/services/chat-api/internal/utils/platformerrors"
)

// ===============================================
// In-memory fakes
// ===============================================

type fakeConversationRepo struct {
	mu     sync.Mutex
	nextID uint
	convs  map[uint]*Conversation
	// msgs backs UnreadCount the way the SQL repository does: count
	// other senders' live messages past the read watermark.
	msgs *fakeMessageRepo
}

func newFakeConversationRepo(msgs *fakeMessageRepo) *fakeConversationRepo {
	return &fakeConversationRepo{convs: make(map[uint]*Conversation), msgs: msgs}
}

func (r *fakeConversationRepo) Create(_ context.Context, conv *Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv.DirectKey != nil {
		for _, existing := range r.convs {
			if existing.DirectKey != nil && *existing.DirectKey == *conv.DirectKey {
				return platformerrors.NewError(context.Background(), platformerrors.LayerRepository, platformerrors.ErrorTypeConflict, "duplicate direct key", nil, "c1a2b3d4-0000-4000-8000-000000000001")
			}
		}
	}
	r.nextID++
	conv.ID = r.nextID
	for i := range conv.Participants {
		conv.Participants[i].ConversationID = conv.ID
	}
	r.convs[conv.ID] = conv
	return nil
}

func (r *fakeConversationRepo) FindByPublicID(_ context.Context, publicID string) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conv := range r.convs {
		if conv.PublicID == publicID {
			return conv, nil
		}
	}
	return nil, notFound("conversation")
}

func (r *fakeConversationRepo) FindByDirectKey(_ context.Context, directKey string) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conv := range r.convs {
		if conv.DirectKey != nil && *conv.DirectKey == directKey && !conv.Deleted() {
			return conv, nil
		}
	}
	return nil, notFound("conversation")
}

func (r *fakeConversationRepo) FindByFilter(_ context.Context, filter ConversationFilter, _ *query.Pagination) ([]*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Conversation
	for _, conv := range r.convs {
		if conv.Deleted() {
			continue
		}
		if filter.UserID != nil && !conv.IsActiveParticipant(*filter.UserID) {
			continue
		}
		if filter.Type != nil && conv.Type != *filter.Type {
			continue
		}
		if filter.Search != nil {
			if conv.Name == nil || !strings.Contains(strings.ToLower(*conv.Name), strings.ToLower(*filter.Search)) {
				continue
			}
		}
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *fakeConversationRepo) Count(ctx context.Context, filter ConversationFilter) (int64, error) {
	out, err := r.FindByFilter(ctx, filter, nil)
	return int64(len(out)), err
}

func (r *fakeConversationRepo) Update(_ context.Context, conv *Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.convs[conv.ID] = conv
	return nil
}

func (r *fakeConversationRepo) SoftDelete(_ context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv, ok := r.convs[id]; ok {
		conv.DeletedAt = &at
	}
	return nil
}

func (r *fakeConversationRepo) Touch(_ context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv, ok := r.convs[id]; ok {
		conv.UpdatedAt = at
	}
	return nil
}

func (r *fakeConversationRepo) UpsertParticipant(_ context.Context, conversationID uint, userID string, role ParticipantRole, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv := r.convs[conversationID]
	if p := conv.Participant(userID); p != nil {
		// Mirrors the conditional conflict update: an active row is
		// untouched, only a left row is revived.
		if p.LeftAt != nil {
			p.LeftAt = nil
			p.Role = role
		}
		return nil
	}
	conv.Participants = append(conv.Participants, Participant{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		JoinedAt:       at,
	})
	return nil
}

func (r *fakeConversationRepo) MarkParticipantLeft(_ context.Context, conversationID uint, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p := r.convs[conversationID].Participant(userID); p != nil && p.Active() {
		p.LeftAt = &at
	}
	return nil
}

func (r *fakeConversationRepo) AdvanceReadWatermark(_ context.Context, conversationID uint, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.convs[conversationID].Participant(userID)
	if p == nil {
		return notFound("participant")
	}
	if p.LastReadAt == nil || at.After(*p.LastReadAt) {
		p.LastReadAt = &at
	}
	return nil
}

func (r *fakeConversationRepo) UnreadCount(_ context.Context, conversationID uint, userID string) (int64, error) {
	r.mu.Lock()
	watermark := (*time.Time)(nil)
	if conv, ok := r.convs[conversationID]; ok {
		if p := conv.Participant(userID); p != nil {
			watermark = p.LastReadAt
		}
	}
	r.mu.Unlock()

	r.msgs.mu.Lock()
	defer r.msgs.mu.Unlock()
	var count int64
	for _, msg := range r.msgs.msgs {
		if msg.ConversationID != conversationID || msg.SenderID == userID || msg.Deleted() {
			continue
		}
		if watermark != nil && !msg.CreatedAt.After(*watermark) {
			continue
		}
		count++
	}
	return count, nil
}

type fakeMessageRepo struct {
	mu     sync.Mutex
	nextID uint
	msgs   map[uint]*Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{msgs: make(map[uint]*Message)}
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	msg.ID = r.nextID
	r.msgs[msg.ID] = msg
	return nil
}

func (r *fakeMessageRepo) FindByPublicID(_ context.Context, publicID string) (*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.msgs {
		if msg.PublicID == publicID {
			return msg, nil
		}
	}
	return nil, notFound("message")
}

func (r *fakeMessageRepo) ListByConversation(_ context.Context, conversationID uint, window MessageWindow, _ *query.Pagination) ([]*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Message
	for _, msg := range r.msgs {
		if msg.ConversationID != conversationID {
			continue
		}
		if window.Before != nil && !msg.CreatedAt.Before(*window.Before) {
			continue
		}
		if window.After != nil && !msg.CreatedAt.After(*window.After) {
			continue
		}
		out = append(out, msg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakeMessageRepo) UpdateContent(_ context.Context, id uint, content string, editedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg := r.msgs[id]
	msg.Content = content
	msg.EditedAt = &editedAt
	return nil
}

func (r *fakeMessageRepo) SoftDelete(_ context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs[id].DeletedAt = &at
	return nil
}

func (r *fakeMessageRepo) SetReaction(_ context.Context, id uint, emoji, userID string, add bool) (*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg := r.msgs[id]
	if msg.Reactions == nil {
		msg.Reactions = make(map[string][]string)
	}
	if add {
		if !msg.HasReaction(emoji, userID) {
			msg.Reactions[emoji] = append(msg.Reactions[emoji], userID)
		}
	} else {
		kept := msg.Reactions[emoji][:0]
		for _, uid := range msg.Reactions[emoji] {
			if uid != userID {
				kept = append(kept, uid)
			}
		}
		if len(kept) == 0 {
			delete(msg.Reactions, emoji)
		} else {
			msg.Reactions[emoji] = kept
		}
	}
	return msg, nil
}

func (r *fakeMessageRepo) AddReadBy(_ context.Context, id uint, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg := r.msgs[id]
	if !msg.ReadByUser(userID) {
		msg.ReadBy = append(msg.ReadBy, userID)
	}
	return nil
}

func (r *fakeMessageRepo) Search(_ context.Context, _ string, term string, conversationID *uint, _ *query.Pagination) ([]*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Message
	for _, msg := range r.msgs {
		if msg.Deleted() || !strings.Contains(strings.ToLower(msg.Content), strings.ToLower(term)) {
			continue
		}
		if conversationID != nil && msg.ConversationID != *conversationID {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	channel string
	event   *Event
}

func (p *capturePublisher) Publish(_ context.Context, channel string, event *Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{channel: channel, event: event})
	return nil
}

func (p *capturePublisher) byType(t EventType) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, pe := range p.events {
		if pe.event.Type == t {
			out = append(out, pe)
		}
	}
	return out
}

func notFound(what string) error {
	return platformerrors.NewError(context.Background(), platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, what+" not found", nil, "c1a2b3d4-0000-4000-8000-000000000002")
}

func newTestService(t *testing.T) (Service, *fakeConversationRepo, *fakeMessageRepo, *capturePublisher) {
	t.Helper()
	msgRepo := newFakeMessageRepo()
	convRepo := newFakeConversationRepo(msgRepo)
	pub := &capturePublisher{}
	return NewService(convRepo, msgRepo, pub, zerolog.Nop()), convRepo, msgRepo, pub
}

// ===============================================
// Conversation tests
// ===============================================

func TestCreateConversationDirectDedupes(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeDirect,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)
	require.NotNil(t, first)

	// Same pair in reverse order resolves to the same conversation.
	second, err := svc.CreateConversation(ctx, "u2", CreateConversationInput{
		Type:           ConversationTypeDirect,
		ParticipantIDs: []string{"u2", "u1"},
	})
	require.NoError(t, err)
	assert.Equal(t, first.PublicID, second.PublicID)
}

func TestCreateConversationGroupCreatorIsOwner(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	name := "study group"
	conv, err := svc.CreateConversation(context.Background(), "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u2", "u3"},
		Name:           &name,
	})
	require.NoError(t, err)

	assert.True(t, conv.IsOwner("u1"), "creator should hold owner role")
	assert.False(t, conv.IsOwner("u2"))
	assert.Len(t, conv.ActiveParticipants(), 3)
}

func TestCreateConversationValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateConversationInput
	}{
		{
			name: "direct with three members",
			input: CreateConversationInput{
				Type:           ConversationTypeDirect,
				ParticipantIDs: []string{"u1", "u2", "u3"},
			},
		},
		{
			name: "solo conversation",
			input: CreateConversationInput{
				Type:           ConversationTypeGroup,
				ParticipantIDs: []string{"u1"},
			},
		},
		{
			name: "unknown type",
			input: CreateConversationInput{
				Type:           ConversationType("broadcast"),
				ParticipantIDs: []string{"u1", "u2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateConversation(ctx, "u1", tt.input)
			require.Error(t, err)
			assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
		})
	}
}

func TestGetConversationHiddenFromOutsiders(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	_, err = svc.GetConversation(ctx, "outsider", conv.PublicID)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestGetConversationVisibleToFormerParticipant(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveParticipant(ctx, "u2", conv.PublicID, "u2"))

	got, err := svc.GetConversation(ctx, "u2", conv.PublicID)
	require.NoError(t, err)
	assert.Equal(t, conv.PublicID, got.PublicID)
}

func TestUpdateConversationOwnerOnly(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	name := "renamed"
	_, err = svc.UpdateConversation(ctx, "u2", conv.PublicID, UpdateConversationInput{Name: &name})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))

	updated, err := svc.UpdateConversation(ctx, "u1", conv.PublicID, UpdateConversationInput{Name: &name})
	require.NoError(t, err)
	require.NotNil(t, updated.Name)
	assert.Equal(t, "renamed", *updated.Name)
}

func TestDeleteConversationHidesIt(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteConversation(ctx, "u1", conv.PublicID))

	_, err = svc.GetConversation(ctx, "u1", conv.PublicID)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

// ===============================================
// Participant tests
// ===============================================

func TestAddParticipantsPublishesAndRecordsSystemMessage(t *testing.T) {
	svc, _, _, pub := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	updated, err := svc.AddParticipants(ctx, "u1", conv.PublicID, []string{"u3"})
	require.NoError(t, err)
	assert.True(t, updated.IsActiveParticipant("u3"))

	added := pub.byType(EventParticipantAdded)
	require.Len(t, added, 2)
	channels := []string{added[0].channel, added[1].channel}
	assert.Contains(t, channels, ConversationChannel(conv.PublicID))
	assert.Contains(t, channels, UserChannel("u3"))

	// Membership change lands in the timeline as a system message.
	messages, err := svc.ListMessages(ctx, "u1", conv.PublicID, MessageWindow{}, nil)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, MessageTypeSystem, messages[0].Type)
}

func TestAddParticipantsRevivesFormerMember(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2", "u3"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveParticipant(ctx, "u3", conv.PublicID, "u3"))
	updated, err := svc.AddParticipants(ctx, "u1", conv.PublicID, []string{"u3"})
	require.NoError(t, err)
	assert.True(t, updated.IsActiveParticipant("u3"))
}

func TestAddParticipantsDoesNotDemoteActiveOwner(t *testing.T) {
	svc, _, _, pub := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2", "u3"},
	})
	require.NoError(t, err)

	// A member re-listing the owner must not touch the owner's row.
	updated, err := svc.AddParticipants(ctx, "u2", conv.PublicID, []string{"u1"})
	require.NoError(t, err)
	assert.True(t, updated.IsOwner("u1"))

	// Owner-only operations keep working afterwards.
	name := "renamed by owner"
	_, err = svc.UpdateConversation(ctx, "u1", conv.PublicID, UpdateConversationInput{Name: &name})
	require.NoError(t, err)

	// Nothing was actually added: no events, no system message.
	assert.Empty(t, pub.byType(EventParticipantAdded))
	messages, err := svc.ListMessages(ctx, "u1", conv.PublicID, MessageWindow{}, nil)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestAddParticipantsRejectedForDirect(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeDirect,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	_, err = svc.AddParticipants(ctx, "u1", conv.PublicID, []string{"u3"})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestRemoveParticipantPermissions(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2", "u3"},
	})
	require.NoError(t, err)

	// A plain member cannot remove someone else.
	err = svc.RemoveParticipant(ctx, "u2", conv.PublicID, "u3")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))

	// Anyone may leave on their own.
	require.NoError(t, svc.RemoveParticipant(ctx, "u2", conv.PublicID, "u2"))

	// The owner can remove anyone.
	require.NoError(t, svc.RemoveParticipant(ctx, "u1", conv.PublicID, "u3"))
}

func TestRemoveParticipantSystemMessageNamesActor(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2", "u3"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveParticipant(ctx, "u2", conv.PublicID, "u2"))
	require.NoError(t, svc.RemoveParticipant(ctx, "u1", conv.PublicID, "u3"))

	// Leaving and being removed read differently in the timeline.
	messages, err := svc.ListMessages(ctx, "u1", conv.PublicID, MessageWindow{}, nil)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "u2 left the conversation", messages[0].Content)
	assert.Equal(t, "u1 removed u3 from the conversation", messages[1].Content)
}

// ===============================================
// Message tests
// ===============================================

func TestSendMessagePublishesAfterPersist(t *testing.T) {
	svc, convRepo, _, pub := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, "u1", SendMessageInput{
		ConversationID: &conv.PublicID,
		Content:        "hello",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.PublicID)
	assert.Equal(t, MessageTypeText, msg.Type)

	created := pub.byType(EventMessageCreated)
	require.Len(t, created, 1)
	assert.Equal(t, ConversationChannel(conv.PublicID), created[0].channel)
	assert.Equal(t, msg.PublicID, created[0].event.Message.PublicID)

	// Sending bumps conversation recency.
	stored := convRepo.convs[conv.ID]
	assert.Equal(t, msg.CreatedAt, stored.UpdatedAt)
}

func TestSendMessageByReceiverCreatesDirect(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	receiver := "u2"
	msg, err := svc.SendMessage(ctx, "u1", SendMessageInput{
		ReceiverID: &receiver,
		Content:    "hi there",
	})
	require.NoError(t, err)

	conv, err := svc.GetConversation(ctx, "u2", msg.ConversationPublicID)
	require.NoError(t, err)
	assert.Equal(t, ConversationTypeDirect, conv.Type)

	// A second send reuses the same conversation.
	again, err := svc.SendMessage(ctx, "u2", SendMessageInput{
		ReceiverID: strPtr("u1"),
		Content:    "hi back",
	})
	require.NoError(t, err)
	assert.Equal(t, msg.ConversationPublicID, again.ConversationPublicID)
}

func TestSendMessageRejoinsLeftDirectConversation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	receiver := "u2"
	first, err := svc.SendMessage(ctx, "u1", SendMessageInput{
		ReceiverID: &receiver,
		Content:    "hello",
	})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveParticipant(ctx, "u1", first.ConversationPublicID, "u1"))

	// The pair always converges on the same conversation, so leaving
	// must be reversible when the user messages the peer again.
	again, err := svc.SendMessage(ctx, "u1", SendMessageInput{
		ReceiverID: &receiver,
		Content:    "back again",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ConversationPublicID, again.ConversationPublicID)

	conv, err := svc.GetConversation(ctx, "u1", again.ConversationPublicID)
	require.NoError(t, err)
	assert.True(t, conv.IsActiveParticipant("u1"))
}

func TestSendMessageTargetValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, "u1", SendMessageInput{Content: "no target"})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	conv := "conv_x"
	recv := "u2"
	_, err = svc.SendMessage(ctx, "u1", SendMessageInput{
		ConversationID: &conv,
		ReceiverID:     &recv,
		Content:        "both targets",
	})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestSendMessageRejectsFormerParticipant(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)
	require.NoError(t, svc.RemoveParticipant(ctx, "u2", conv.PublicID, "u2"))

	_, err = svc.SendMessage(ctx, "u2", SendMessageInput{
		ConversationID: &conv.PublicID,
		Content:        "am I still here",
	})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))
}

func TestSendMessageReplyMustShareConversation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	convA, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)
	convB, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u3"},
	})
	require.NoError(t, err)

	parent, err := svc.SendMessage(ctx, "u1", SendMessageInput{
		ConversationID: &convA.PublicID,
		Content:        "root",
	})
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "u1", SendMessageInput{
		ConversationID: &convB.PublicID,
		Content:        "cross reply",
		ReplyToID:      &parent.PublicID,
	})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestUpdateMessageSenderOnly(t *testing.T) {
	svc, _, _, pub := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, "u1", SendMessageInput{
		ConversationID: &conv.PublicID,
		Content:        "original",
	})
	require.NoError(t, err)

	_, err = svc.UpdateMessage(ctx, "u2", msg.PublicID, "hijacked")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))

	edited, err := svc.UpdateMessage(ctx, "u1", msg.PublicID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Content)
	assert.NotNil(t, edited.EditedAt)
	assert.Len(t, pub.byType(EventMessageUpdated), 1)
}

func TestDeleteMessageSoftAndIdempotent(t *testing.T) {
	svc, _, _, pub := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, "u1", SendMessageInput{
		ConversationID: &conv.PublicID,
		Content:        "ephemeral",
	})
	require.NoError(t, err)

	deleted, err := svc.DeleteMessage(ctx, "u1", msg.PublicID)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted())

	// Deleting again is a no-op and publishes nothing further.
	_, err = svc.DeleteMessage(ctx, "u1", msg.PublicID)
	require.NoError(t, err)
	assert.Len(t, pub.byType(EventMessageDeleted), 1)

	// The row keeps its timeline position.
	messages, err := svc.ListMessages(ctx, "u1", conv.PublicID, MessageWindow{}, nil)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].Deleted())
}

func TestEditDeletedMessageRejected(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, "u1", SendMessageInput{
		ConversationID: &conv.PublicID,
		Content:        "going away",
	})
	require.NoError(t, err)
	_, err = svc.DeleteMessage(ctx, "u1", msg.PublicID)
	require.NoError(t, err)

	_, err = svc.UpdateMessage(ctx, "u1", msg.PublicID, "resurrect")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

// ===============================================
// Read tracking & reaction tests
// ===============================================

func TestMarkConversationReadPublishesWatermark(t *testing.T) {
	svc, convRepo, _, pub := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkConversationRead(ctx, "u2", conv.PublicID))

	p := convRepo.convs[conv.ID].Participant("u2")
	require.NotNil(t, p.LastReadAt)

	events := pub.byType(EventReadUpdated)
	require.Len(t, events, 1)
	assert.Equal(t, "u2", events[0].event.UserID)
	assert.NotNil(t, events[0].event.LastReadAt)
}

func TestUnreadCountFollowsWatermark(t *testing.T) {
	svc, convRepo, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	for _, content := range []string{"lecture notes", "exercise sheet"} {
		_, err = svc.SendMessage(ctx, "u1", SendMessageInput{
			ConversationID: &conv.PublicID,
			Content:        content,
		})
		require.NoError(t, err)
	}

	got, err := svc.GetConversation(ctx, "u2", conv.PublicID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.UnreadCount)

	// Own messages never count as unread.
	got, err = svc.GetConversation(ctx, "u1", conv.PublicID)
	require.NoError(t, err)
	assert.Zero(t, got.UnreadCount)

	require.NoError(t, svc.MarkConversationRead(ctx, "u2", conv.PublicID))
	got, err = svc.GetConversation(ctx, "u2", conv.PublicID)
	require.NoError(t, err)
	assert.Zero(t, got.UnreadCount)

	// A stale mark cannot move the watermark backwards.
	p := convRepo.convs[conv.ID].Participant("u2")
	require.NotNil(t, p.LastReadAt)
	watermark := *p.LastReadAt
	require.NoError(t, convRepo.AdvanceReadWatermark(ctx, conv.ID, "u2", watermark.Add(-time.Hour)))
	assert.Equal(t, watermark, *p.LastReadAt)

	// Fresh traffic counts again.
	_, err = svc.SendMessage(ctx, "u1", SendMessageInput{
		ConversationID: &conv.PublicID,
		Content:        "one more thing",
	})
	require.NoError(t, err)
	got, err = svc.GetConversation(ctx, "u2", conv.PublicID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.UnreadCount)
}

func TestReactionsIdempotent(t *testing.T) {
	svc, _, _, pub := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, "u1", SendMessageInput{
		ConversationID: &conv.PublicID,
		Content:        "react to me",
	})
	require.NoError(t, err)

	first, err := svc.AddReaction(ctx, "u2", msg.PublicID, "👍")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, first.Reactions["👍"])

	// Duplicate add leaves a single membership.
	again, err := svc.AddReaction(ctx, "u2", msg.PublicID, "👍")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, again.Reactions["👍"])

	removed, err := svc.RemoveReaction(ctx, "u2", msg.PublicID, "👍")
	require.NoError(t, err)
	assert.Empty(t, removed.Reactions["👍"])

	// Removing an absent reaction is a no-op, not an error.
	_, err = svc.RemoveReaction(ctx, "u2", msg.PublicID, "👍")
	require.NoError(t, err)

	assert.Len(t, pub.byType(EventReactionChanged), 4)
}

func TestReactionRequiresMembership(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, "u1", SendMessageInput{
		ConversationID: &conv.PublicID,
		Content:        "members only",
	})
	require.NoError(t, err)

	_, err = svc.AddReaction(ctx, "outsider", msg.PublicID, "👀")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestMarkMessageRead(t *testing.T) {
	svc, _, msgRepo, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, "u1", SendMessageInput{
		ConversationID: &conv.PublicID,
		Content:        "read me",
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkMessageRead(ctx, "u2", msg.PublicID))
	require.NoError(t, svc.MarkMessageRead(ctx, "u2", msg.PublicID))
	assert.Equal(t, []string{"u2"}, msgRepo.msgs[msg.ID].ReadBy)
}

func TestReactionRejectedOnDeletedMessage(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, "u1", SendMessageInput{
		ConversationID: &conv.PublicID,
		Content:        "short lived",
	})
	require.NoError(t, err)
	_, err = svc.DeleteMessage(ctx, "u1", msg.PublicID)
	require.NoError(t, err)

	_, err = svc.AddReaction(ctx, "u2", msg.PublicID, "👍")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, err = svc.RemoveReaction(ctx, "u2", msg.PublicID, "👍")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestMarkMessageReadDeletedIsNoOp(t *testing.T) {
	svc, _, msgRepo, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, "u1", SendMessageInput{
		ConversationID: &conv.PublicID,
		Content:        "gone before read",
	})
	require.NoError(t, err)
	_, err = svc.DeleteMessage(ctx, "u1", msg.PublicID)
	require.NoError(t, err)

	require.NoError(t, svc.MarkMessageRead(ctx, "u2", msg.PublicID))
	assert.Empty(t, msgRepo.msgs[msg.ID].ReadBy)
}

// ===============================================
// Search & listing tests
// ===============================================

func TestSearchMessagesScopedRequiresMembership(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "u1", SendMessageInput{
		ConversationID: &conv.PublicID,
		Content:        "quarterly syllabus",
	})
	require.NoError(t, err)

	found, err := svc.SearchMessages(ctx, "u1", "syllabus", &conv.PublicID, nil)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = svc.SearchMessages(ctx, "outsider", "syllabus", &conv.PublicID, nil)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	_, err = svc.SearchMessages(ctx, "u1", "", nil, nil)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestListConversationsFiltersAndCounts(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	name := "algebra cohort"
	group, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
		Name:           &name,
	})
	require.NoError(t, err)
	direct, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeDirect,
		ParticipantIDs: []string{"u1", "u3"},
	})
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "u2", SendMessageInput{ConversationID: &group.PublicID, Content: "homework is up"})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, "u3", SendMessageInput{ConversationID: &direct.PublicID, Content: "got a minute?"})
	require.NoError(t, err)

	all, total, err := svc.ListConversations(ctx, "u1", ListConversationsInput{}, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.EqualValues(t, 2, total)
	for _, conv := range all {
		assert.EqualValues(t, 1, conv.UnreadCount)
	}

	groupType := ConversationTypeGroup
	groups, _, err := svc.ListConversations(ctx, "u1", ListConversationsInput{Type: &groupType}, nil)
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	search := "algebra"
	named, _, err := svc.ListConversations(ctx, "u1", ListConversationsInput{Search: &search}, nil)
	require.NoError(t, err)
	assert.Len(t, named, 1)

	none, total, err := svc.ListConversations(ctx, "stranger", ListConversationsInput{}, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Zero(t, total)
}

func TestActiveConversationIDs(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeGroup,
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)
	b, err := svc.CreateConversation(ctx, "u1", CreateConversationInput{
		Type:           ConversationTypeDirect,
		ParticipantIDs: []string{"u1", "u3"},
	})
	require.NoError(t, err)

	ids, err := svc.ActiveConversationIDs(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.PublicID, b.PublicID}, ids)
}

func strPtr(s string) *string { return &s }
