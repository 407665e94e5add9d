package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateMessageContent validates a chat message body.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("message cannot be empty")
	}
	if len(content) > 100000 {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a session id.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateAttachmentID validates an attachment id.
func ValidateAttachmentID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid attachment ID format")
	}
	return nil
}
