package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateContent(t *testing.T) {
	v := NewValidator(nil)

	testCases := []struct {
		name        string
		content     string
		msgType     MessageType
		attachments []Attachment
		wantErr     bool
	}{
		{name: "plain text", content: "hello", msgType: MessageTypeText},
		{name: "unknown type", content: "hello", msgType: MessageType("carrier-pigeon"), wantErr: true},
		{name: "empty without attachments", content: "   ", msgType: MessageTypeText, wantErr: true},
		{name: "empty with attachment", content: "", msgType: MessageTypeFile, attachments: []Attachment{{URL: "https://files.example/a.pdf"}}},
		{name: "content at limit", content: strings.Repeat("a", 10000), msgType: MessageTypeText},
		{name: "content over limit", content: strings.Repeat("a", 10001), msgType: MessageTypeText, wantErr: true},
		{name: "attachment missing url", content: "doc", msgType: MessageTypeFile, attachments: []Attachment{{URL: "  "}}, wantErr: true},
		{name: "attachment negative size", content: "doc", msgType: MessageTypeFile, attachments: []Attachment{{URL: "https://files.example/a.pdf", Size: -1}}, wantErr: true},
		{name: "too many attachments", content: "docs", msgType: MessageTypeFile, attachments: make([]Attachment, 11), wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for i := range tc.attachments {
				if tc.attachments[i].URL == "" {
					tc.attachments[i].URL = "https://files.example/fill.bin"
				}
			}
			err := v.ValidateContent(tc.content, tc.msgType, tc.attachments)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateContentMultibyteCountsRunes(t *testing.T) {
	v := NewValidator(&ValidationConfig{
		MaxContentLength:     5,
		MaxNameLength:        128,
		MaxDescriptionLength: 512,
		MaxAttachments:       10,
		MaxEmojiLength:       32,
		MaxParticipantsAdd:   50,
	})

	assert.NoError(t, v.ValidateContent("héllo", MessageTypeText, nil))
	assert.Error(t, v.ValidateContent("héllo!", MessageTypeText, nil))
}

func TestValidateConversationMeta(t *testing.T) {
	v := NewValidator(nil)
	longName := strings.Repeat("n", 129)
	longDescription := strings.Repeat("d", 513)
	okName := "study group"

	assert.NoError(t, v.ValidateConversationMeta(nil, nil))
	assert.NoError(t, v.ValidateConversationMeta(&okName, nil))
	assert.Error(t, v.ValidateConversationMeta(&longName, nil))
	assert.Error(t, v.ValidateConversationMeta(nil, &longDescription))
}

func TestValidateMembership(t *testing.T) {
	v := NewValidator(nil)

	testCases := []struct {
		name      string
		convType  ConversationType
		memberIDs []string
		wantErr   bool
	}{
		{name: "direct pair", convType: ConversationTypeDirect, memberIDs: []string{"u1", "u2"}},
		{name: "group of three", convType: ConversationTypeGroup, memberIDs: []string{"u1", "u2", "u3"}},
		{name: "unknown type", convType: ConversationType("broadcast"), memberIDs: []string{"u1", "u2"}, wantErr: true},
		{name: "single member", convType: ConversationTypeGroup, memberIDs: []string{"u1"}, wantErr: true},
		{name: "direct with three", convType: ConversationTypeDirect, memberIDs: []string{"u1", "u2", "u3"}, wantErr: true},
		{name: "duplicate member", convType: ConversationTypeGroup, memberIDs: []string{"u1", "u2", "u1"}, wantErr: true},
		{name: "blank member", convType: ConversationTypeGroup, memberIDs: []string{"u1", " "}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateMembership(tc.convType, tc.memberIDs)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateParticipantsAdd(t *testing.T) {
	v := NewValidator(nil)

	assert.NoError(t, v.ValidateParticipantsAdd([]string{"u5", "u6"}))
	assert.Error(t, v.ValidateParticipantsAdd(nil))
	assert.Error(t, v.ValidateParticipantsAdd([]string{""}))

	tooMany := make([]string, 51)
	for i := range tooMany {
		tooMany[i] = "u" + strings.Repeat("x", i%3+1)
	}
	assert.Error(t, v.ValidateParticipantsAdd(tooMany))
}

func TestValidateEmoji(t *testing.T) {
	v := NewValidator(nil)

	assert.NoError(t, v.ValidateEmoji("👍"))
	assert.NoError(t, v.ValidateEmoji(":thumbsup:"))
	assert.Error(t, v.ValidateEmoji(""))
	assert.Error(t, v.ValidateEmoji("  "))
	assert.Error(t, v.ValidateEmoji(strings.Repeat("x", 33)))
}
