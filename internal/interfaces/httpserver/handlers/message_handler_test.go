package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillstream/services/chat-api/internal/domain/chat"
	"skillstream/services/chat-api/internal/domain/query"
	"skillstream/services/chat-api/internal/utils/platformerrors"
)

func testMessage(publicID, senderID string) *chat.Message {
	conv := &chat.Conversation{ID: 1, PublicID: "conv_abc"}
	return chat.NewMessage(publicID, conv, senderID, chat.MessageTypeText, "hello", nil, nil)
}

func TestSendMessageHandler(t *testing.T) {
	svc := &mockChatService{
		sendMessageFn: func(_ context.Context, senderID string, input chat.SendMessageInput) (*chat.Message, error) {
			assert.Equal(t, "u1", senderID)
			require.NotNil(t, input.ConversationID)
			assert.Equal(t, "conv_abc", *input.ConversationID)
			assert.Equal(t, "hello", input.Content)
			return testMessage("msg_1", senderID), nil
		},
	}
	engine := newTestRouter(svc)

	recorder := doRequest(t, engine, http.MethodPost, "/v1/messages", gin.H{
		"conversation_id": "conv_abc",
		"content":         "hello",
	}, "u1")

	require.Equal(t, http.StatusCreated, recorder.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "msg_1", resp["id"])
	assert.Equal(t, "conv_abc", resp["conversation_id"])
	assert.Equal(t, "hello", resp["content"])
}

func TestSendMessageHandlerMapsValidation(t *testing.T) {
	svc := &mockChatService{
		sendMessageFn: func(ctx context.Context, _ string, _ chat.SendMessageInput) (*chat.Message, error) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "exactly one of conversation_id or receiver_id is required", nil, "11111111-2222-4333-8444-777777777777")
		},
	}
	engine := newTestRouter(svc)

	recorder := doRequest(t, engine, http.MethodPost, "/v1/messages", gin.H{"content": "hi"}, "u1")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestUpdateMessageHandler(t *testing.T) {
	svc := &mockChatService{
		updateMessageFn: func(_ context.Context, requesterID, messagePublicID, content string) (*chat.Message, error) {
			assert.Equal(t, "u1", requesterID)
			assert.Equal(t, "msg_1", messagePublicID)
			msg := testMessage(messagePublicID, requesterID)
			msg.Content = content
			now := time.Now().UTC()
			msg.EditedAt = &now
			return msg, nil
		},
	}
	engine := newTestRouter(svc)

	recorder := doRequest(t, engine, http.MethodPut, "/v1/messages/msg_1", gin.H{"content": "edited"}, "u1")
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "edited", resp["content"])
	assert.NotEmpty(t, resp["edited_at"])
}

func TestUpdateMessageHandlerRequiresContent(t *testing.T) {
	svc := &mockChatService{}
	engine := newTestRouter(svc)

	recorder := doRequest(t, engine, http.MethodPut, "/v1/messages/msg_1", gin.H{}, "u1")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestDeleteMessageHandlerRedactsContent(t *testing.T) {
	svc := &mockChatService{
		deleteMessageFn: func(_ context.Context, requesterID, messagePublicID string) (*chat.Message, error) {
			msg := testMessage(messagePublicID, requesterID)
			now := time.Now().UTC()
			msg.DeletedAt = &now
			return msg, nil
		},
	}
	engine := newTestRouter(svc)

	recorder := doRequest(t, engine, http.MethodDelete, "/v1/messages/msg_1", nil, "u1")
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["deleted"])
	assert.Equal(t, "", resp["content"])
	assert.Equal(t, "msg_1", resp["id"])
}

func TestAddReactionHandler(t *testing.T) {
	svc := &mockChatService{
		addReactionFn: func(_ context.Context, requesterID, messagePublicID, emoji string) (*chat.Message, error) {
			assert.Equal(t, "👍", emoji)
			msg := testMessage(messagePublicID, "u2")
			msg.Reactions = map[string][]string{emoji: {requesterID}}
			return msg, nil
		},
	}
	engine := newTestRouter(svc)

	recorder := doRequest(t, engine, http.MethodPost, "/v1/messages/msg_1/reactions", gin.H{"emoji": "👍"}, "u1")
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	reactions, ok := resp["reactions"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, reactions, "👍")
}

func TestRemoveReactionHandler(t *testing.T) {
	var captured string
	svc := &mockChatService{
		removeReactionFn: func(_ context.Context, _, messagePublicID, emoji string) (*chat.Message, error) {
			captured = emoji
			return testMessage(messagePublicID, "u2"), nil
		},
	}
	engine := newTestRouter(svc)

	recorder := doRequest(t, engine, http.MethodDelete, "/v1/messages/msg_1/reactions", gin.H{"emoji": "👍"}, "u1")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "👍", captured)
}

func TestMarkMessageReadHandler(t *testing.T) {
	called := false
	svc := &mockChatService{
		markMessageReadFn: func(_ context.Context, requesterID, messagePublicID string) error {
			called = true
			assert.Equal(t, "u1", requesterID)
			assert.Equal(t, "msg_1", messagePublicID)
			return nil
		},
	}
	engine := newTestRouter(svc)

	recorder := doRequest(t, engine, http.MethodPost, "/v1/messages/msg_1/read", nil, "u1")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, called)
}

func TestSearchMessagesHandler(t *testing.T) {
	svc := &mockChatService{
		searchMessagesFn: func(_ context.Context, requesterID, term string, conversationPublicID *string, _ *query.Pagination) ([]*chat.Message, error) {
			assert.Equal(t, "u1", requesterID)
			assert.Equal(t, "algebra", term)
			require.NotNil(t, conversationPublicID)
			assert.Equal(t, "conv_abc", *conversationPublicID)
			return []*chat.Message{testMessage("msg_1", "u2")}, nil
		},
	}
	engine := newTestRouter(svc)

	recorder := doRequest(t, engine, http.MethodGet, "/v1/messages/search?q=algebra&conversation_id=conv_abc", nil, "u1")
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	data, ok := resp["data"].([]any)
	require.True(t, ok)
	assert.Len(t, data, 1)
}

func TestSearchMessagesHandlerRejectsEmptyTerm(t *testing.T) {
	svc := &mockChatService{
		searchMessagesFn: func(ctx context.Context, _, term string, _ *string, _ *query.Pagination) ([]*chat.Message, error) {
			require.Empty(t, term)
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "search query is required", nil, "11111111-2222-4333-8444-888888888888")
		},
	}
	engine := newTestRouter(svc)

	recorder := doRequest(t, engine, http.MethodGet, "/v1/messages/search", nil, "u1")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
