package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationConfig holds the write-path validation rules.
type ValidationConfig struct {
	MaxContentLength     int
	MaxNameLength        int
	MaxDescriptionLength int
	MaxAttachments       int
	MaxEmojiLength       int
	MaxParticipantsAdd   int
}

// DefaultValidationConfig returns the platform defaults.
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		MaxContentLength:     10000,
		MaxNameLength:        128,
		MaxDescriptionLength: 512,
		MaxAttachments:       10,
		MaxEmojiLength:       32,
		MaxParticipantsAdd:   50,
	}
}

// Validator checks inputs before they reach the persistence layer.
type Validator struct {
	config *ValidationConfig
}

// NewValidator creates a validator; nil config selects the defaults.
func NewValidator(config *ValidationConfig) *Validator {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &Validator{config: config}
}

// ValidateContent checks message body constraints.
func (v *Validator) ValidateContent(content string, msgType MessageType, attachments []Attachment) error {
	if !msgType.Valid() {
		return fmt.Errorf("unknown message type %q", msgType)
	}
	if utf8.RuneCountInString(content) > v.config.MaxContentLength {
		return fmt.Errorf("content exceeds %d characters", v.config.MaxContentLength)
	}
	if strings.TrimSpace(content) == "" && len(attachments) == 0 {
		return fmt.Errorf("message requires content or attachments")
	}
	if len(attachments) > v.config.MaxAttachments {
		return fmt.Errorf("too many attachments (max %d)", v.config.MaxAttachments)
	}
	for i, a := range attachments {
		if strings.TrimSpace(a.URL) == "" {
			return fmt.Errorf("attachment %d is missing a url", i)
		}
		if a.Size < 0 {
			return fmt.Errorf("attachment %d has negative size", i)
		}
	}
	return nil
}

// ValidateConversationMeta checks name/description constraints.
func (v *Validator) ValidateConversationMeta(name, description *string) error {
	if name != nil && utf8.RuneCountInString(*name) > v.config.MaxNameLength {
		return fmt.Errorf("name exceeds %d characters", v.config.MaxNameLength)
	}
	if description != nil && utf8.RuneCountInString(*description) > v.config.MaxDescriptionLength {
		return fmt.Errorf("description exceeds %d characters", v.config.MaxDescriptionLength)
	}
	return nil
}

// ValidateMembership checks the member set for conversation creation.
// The requester must already be part of memberIDs.
func (v *Validator) ValidateMembership(convType ConversationType, memberIDs []string) error {
	if !convType.Valid() {
		return fmt.Errorf("unknown conversation type %q", convType)
	}

	seen := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("participant id cannot be empty")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate participant %q", id)
		}
		seen[id] = struct{}{}
	}

	if len(memberIDs) < 2 {
		return fmt.Errorf("a conversation requires at least 2 participants")
	}
	if convType == ConversationTypeDirect && len(memberIDs) != 2 {
		return fmt.Errorf("a direct conversation requires exactly 2 participants")
	}
	return nil
}

// ValidateParticipantsAdd checks a membership-addition target list.
func (v *Validator) ValidateParticipantsAdd(userIDs []string) error {
	if len(userIDs) == 0 {
		return fmt.Errorf("no participants to add")
	}
	if len(userIDs) > v.config.MaxParticipantsAdd {
		return fmt.Errorf("too many participants (max %d)", v.config.MaxParticipantsAdd)
	}
	for _, id := range userIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("participant id cannot be empty")
		}
	}
	return nil
}

// ValidateEmoji checks a reaction token.
func (v *Validator) ValidateEmoji(emoji string) error {
	if strings.TrimSpace(emoji) == "" {
		return fmt.Errorf("emoji cannot be empty")
	}
	if utf8.RuneCountInString(emoji) > v.config.MaxEmojiLength {
		return fmt.Errorf("emoji exceeds %d characters", v.config.MaxEmojiLength)
	}
	return nil
}
