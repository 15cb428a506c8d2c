package idgen

import (
	"crypto/rand"
	"fmt"
)

// Prefixes for public entity identifiers.
const (
	PrefixConversation = "conv"
	PrefixMessage      = "msg"
)

// DefaultLength is the random suffix length used for public IDs.
const DefaultLength = 16

// GenerateSecureID generates a cryptographically secure ID with the given prefix and length.
// Uses only alphanumeric characters (0-9, a-z) - no dashes or special characters.
func GenerateSecureID(prefix string, length int) (string, error) {
	bytes := make([]byte, length*2)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	const charset = "0123456789abcdefghijklmnopqrstuvwxyz"
	encoded := make([]byte, length)
	for i := 0; i < length; i++ {
		encoded[i] = charset[bytes[i]%36] // 36 = len(charset)
	}

	return fmt.Sprintf("%s_%s", prefix, string(encoded)), nil
}

// NewConversationID returns a fresh public conversation ID ("conv_...").
func NewConversationID() (string, error) {
	return GenerateSecureID(PrefixConversation, DefaultLength)
}

// NewMessageID returns a fresh public message ID ("msg_...").
func NewMessageID() (string, error) {
	return GenerateSecureID(PrefixMessage, DefaultLength)
}
